package methodpath

import (
	"context"
	"reflect"

	"github.com/dorpc/rpc/errs"
)

var ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
var errType = reflect.TypeOf((*error)(nil)).Elem()

// Invoke calls fn (as returned by NavigateNamespace) with args, optionally
// threading ctx through as the function's first parameter if its signature
// declares one. It normalizes every supported return shape — (any, error),
// (any), (error), or no return — into a single (any, error) pair, since
// local and server targets are free to implement handlers in whichever of
// those shapes is convenient.
func Invoke(fn any, ctx context.Context, args []any) (any, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, errs.NewRpcError(errs.CodeUnknownMethod, "resolved value is not callable")
	}
	ft := fv.Type()

	in := make([]reflect.Value, 0, len(args)+1)
	argIdx := 0
	if ft.NumIn() > 0 && ft.In(0).Implements(ctxType) {
		if ctx == nil {
			ctx = context.Background()
		}
		in = append(in, reflect.ValueOf(ctx))
	}

	variadic := ft.IsVariadic()
	for ; argIdx < len(args); argIdx++ {
		var target reflect.Type
		pos := len(in)
		switch {
		case variadic && pos >= ft.NumIn()-1:
			target = ft.In(ft.NumIn() - 1).Elem()
		case pos < ft.NumIn():
			target = ft.In(pos)
		default:
			return nil, errs.NewRpcErrorWithData(errs.CodeRequestError,
				"too many arguments for method", map[string]any{"given": len(args), "accepted": ft.NumIn()})
		}
		in = append(in, convertArg(args[argIdx], target))
	}

	return callSafely(fv, in)
}

// callSafely invokes fv, converting an argument-mismatch panic (reflect's
// only way to report one) into a RequestError instead of propagating it.
func callSafely(fv reflect.Value, in []reflect.Value) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errs.NewRpcErrorWithData(errs.CodeRequestError,
				"argument type mismatch calling method", map[string]any{"panic": r})
		}
	}()
	return splitResults(fv.Call(in))
}

// convertArg best-effort converts v to target, falling back to the raw
// reflect.Value of v (nil-safe) when no conversion is needed or possible;
// a genuinely incompatible argument surfaces as a panic from reflect.Call,
// which callers see as a RequestError via the recover in splitResults'
// caller (Call sites in this module never pass attacker-controlled Go
// values across this boundary without prior JSON decoding into target's
// shape, so this stays a best-effort convenience, not a security boundary).
func convertArg(v any, target reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(target)
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(target) {
		return rv
	}
	if rv.Type().ConvertibleTo(target) {
		return rv.Convert(target)
	}
	return rv
}

func splitResults(out []reflect.Value) (any, error) {
	var result any
	var err error
	for _, v := range out {
		if v.Type().Implements(errType) {
			if !v.IsNil() {
				err, _ = v.Interface().(error)
			}
			continue
		}
		result = v.Interface()
	}
	return result, err
}
