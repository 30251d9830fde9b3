// Package methodpath parses and navigates the dotted method paths ("a.b.c")
// used to address RPC methods across every transport in this module.
package methodpath

import (
	"reflect"
	"strings"

	"github.com/dorpc/rpc/errs"
)

// MethodPath is a parsed, validated dotted path. Segments is always
// non-empty and every segment is non-empty.
type MethodPath struct {
	Raw      string
	Segments []string
}

// Parse splits path on "." and validates that it is non-empty and contains
// no empty segments. It returns *errs.RpcError{Code: CodeInvalidPath} on
// failure, before any remote call is attempted.
func Parse(path string) (MethodPath, error) {
	if path == "" {
		return MethodPath{}, errs.NewRpcError(errs.CodeInvalidPath, "path must not be empty")
	}
	segments := strings.Split(path, ".")
	for _, s := range segments {
		if s == "" {
			return MethodPath{}, errs.NewRpcErrorWithData(errs.CodeInvalidPath,
				"path must not contain empty segments", map[string]any{"path": path})
		}
	}
	return MethodPath{Raw: path, Segments: segments}, nil
}

// Split returns the dot-separated segments of path without validation.
func Split(path string) []string {
	return strings.Split(path, ".")
}

// Join re-assembles segments into a dotted path. Join(Split(p)) == p holds
// for any non-empty p with no empty segments.
func Join(segments []string) string {
	return strings.Join(segments, ".")
}

// NavigateNamespace walks target through every segment but the last,
// requiring each intermediate value to be a non-nil map[string]any or
// struct/pointer reachable via reflection, then requires the final segment
// to resolve to something callable (a func value). It is used by
// transports that treat the remote namespace as a nested object graph
// addressed over the wire (the Local transport) and uses the
// UnknownNamespace/UnknownMethod vocabulary.
func NavigateNamespace(target any, path MethodPath) (any, error) {
	cur := reflect.ValueOf(target)
	for i, seg := range path.Segments {
		last := i == len(path.Segments)-1
		if !cur.IsValid() {
			return nil, errs.NewRpcErrorWithData(errs.CodeUnknownNamespace,
				"nil value encountered while navigating path", map[string]any{"path": path.Raw, "segment": seg})
		}
		for cur.Kind() == reflect.Interface || cur.Kind() == reflect.Ptr {
			if cur.IsNil() {
				return nil, errs.NewRpcErrorWithData(errs.CodeUnknownNamespace,
					"nil value encountered while navigating path", map[string]any{"path": path.Raw, "segment": seg})
			}
			cur = cur.Elem()
		}

		switch cur.Kind() {
		case reflect.Map:
			v := cur.MapIndex(reflect.ValueOf(seg))
			if !v.IsValid() {
				code := errs.CodeUnknownNamespace
				if last {
					code = errs.CodeUnknownMethod
				}
				return nil, errs.NewRpcErrorWithData(code,
					"segment not found", map[string]any{"path": path.Raw, "segment": seg})
			}
			cur = v
		case reflect.Struct:
			v := cur.FieldByName(strings.Title(seg))
			if !v.IsValid() {
				code := errs.CodeUnknownNamespace
				if last {
					code = errs.CodeUnknownMethod
				}
				return nil, errs.NewRpcErrorWithData(code,
					"field not found", map[string]any{"path": path.Raw, "segment": seg})
			}
			cur = v
		default:
			code := errs.CodeUnknownNamespace
			if last {
				code = errs.CodeUnknownMethod
			}
			return nil, errs.NewRpcErrorWithData(code,
				"value is not navigable", map[string]any{"path": path.Raw, "segment": seg})
		}

		if !last {
			for cur.Kind() == reflect.Interface {
				cur = cur.Elem()
			}
			if !cur.IsValid() || (cur.Kind() != reflect.Map && cur.Kind() != reflect.Struct && cur.Kind() != reflect.Ptr) {
				return nil, errs.NewRpcErrorWithData(errs.CodeUnknownNamespace,
					"intermediate segment is not an object", map[string]any{"path": path.Raw, "segment": seg})
			}
		}
	}

	for cur.Kind() == reflect.Interface && !cur.IsNil() {
		cur = cur.Elem()
	}
	if cur.Kind() != reflect.Func {
		return nil, errs.NewRpcErrorWithData(errs.CodeUnknownMethod,
			"resolved value is not callable", map[string]any{"path": path.Raw})
	}
	return cur.Interface(), nil
}

// NavigateBatch is the HTTP-batch-transport analogue of NavigateNamespace:
// it uses the InvalidPath/MethodNotFound vocabulary instead of
// UnknownNamespace/UnknownMethod, since the remote object graph there is a
// third-party session's dotted proxy rather than a user-supplied binding.
func NavigateBatch(target any, path MethodPath) (any, error) {
	v, err := NavigateNamespace(target, path)
	if err != nil {
		var re *errs.RpcError
		if asRpcError(err, &re) {
			switch re.Code {
			case errs.CodeUnknownNamespace:
				return nil, errs.NewRpcErrorWithData(errs.CodeInvalidPath, re.Message, re.Data)
			case errs.CodeUnknownMethod:
				return nil, errs.NewRpcErrorWithData(errs.CodeMethodNotFound, re.Message, re.Data)
			}
		}
		return nil, err
	}
	return v, nil
}

func asRpcError(err error, target **errs.RpcError) bool {
	re, ok := err.(*errs.RpcError)
	if ok {
		*target = re
	}
	return ok
}
