package wstransport

import (
	"time"

	"github.com/dorpc/rpc/errs"
	"github.com/dorpc/rpc/internal/wire"
)

// pendingRequest tracks one outstanding Call: a correlation id, a result
// sink, and a deadline timer. It is inserted into Client.pending at call
// issue and removed on response, timeout, or close.
type pendingRequest struct {
	id      int64
	resultC chan pendingResult
	timer   *time.Timer
}

type pendingResult struct {
	value any
	err   error
}

// resolve completes a pending request exactly once; the deadline timer is
// stopped by the caller before resolve is invoked (see completePending).
func (p *pendingRequest) resolve(value any, err error) {
	p.resultC <- pendingResult{value: value, err: err}
}

// rpcErrorFromPayload reconstructs an RpcError{code, message, data} from a
// ResponseEnvelope's Error field.
func rpcErrorFromPayload(e *wire.ErrorPayload) error {
	if e == nil {
		return nil
	}
	return errs.NewRpcErrorWithData(errs.RpcCode(e.Code), e.Message, e.Data)
}
