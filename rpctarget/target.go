// Package rpctarget recursively wraps an arbitrary Go value into a callable
// dispatch target, the server-side counterpart to methodpath: where
// methodpath navigates an already-addressable namespace, rpctarget builds
// that namespace by reflecting over a value's exported methods and fields.
//
// There is no pack precedent for this exact shape; it is grounded on the
// standard library's own net/rpc package, which solves the same problem
// (turn a registered Go value's exported methods into dispatchable RPC
// targets via reflect) with the same reflect-only toolset used here.
package rpctarget

import (
	"context"
	"reflect"
	"strings"

	"github.com/dorpc/rpc/errs"
	"github.com/dorpc/rpc/methodpath"
)

// maxDepth bounds how many nested struct fields are followed while looking
// for methods, so a deeply (but non-cyclically) nested object graph cannot
// make Wrap recurse without limit.
const maxDepth = 8

// skipNames are names that are never exposed as callable methods or nested
// targets: constructor-ish, stringify-ish, and the awaiting-protocol names,
// adapted to the Go-exported spellings these would take after methodpath's
// lowercase-to-Title lookup.
var skipNames = map[string]bool{
	"Constructor": true,
	"ToString":    true,
	"String":      true,
	"ValueOf":     true,
	"ToJSON":      true,
	"Then":        true,
	"Catch":       true,
	"Finally":     true,
	"Error":       true,
}

func skip(name string) bool {
	if strings.HasPrefix(name, "_") {
		return true
	}
	return skipNames[name]
}

// Target is a node in the wrapped object graph: a set of callable methods
// bound to the original receiver, plus nested Targets for fields that
// transitively contain at least one method.
type Target struct {
	methods  map[string]reflect.Value
	children map[string]*Target
}

func newTarget() *Target {
	return &Target{methods: map[string]reflect.Value{}, children: map[string]*Target{}}
}

// Wrap recursively wraps obj into a Target. obj is typically a pointer to a
// struct whose exported methods become the dispatchable surface; exported
// struct fields that themselves expose methods (directly or transitively)
// become nested Targets reachable by field name.
func Wrap(obj any) *Target {
	return wrap(reflect.ValueOf(obj), map[uintptr]bool{}, 0)
}

// wrap does the actual recursion. seen tracks the pointer identities
// currently being visited on this recursion path (not ever visited); a
// revisit means the object graph cycles back on itself, and wrap returns an
// empty Target rather than recursing forever.
func wrap(v reflect.Value, seen map[uintptr]bool, depth int) *Target {
	t := newTarget()
	if !v.IsValid() || depth > maxDepth {
		return t
	}
	for v.Kind() == reflect.Interface {
		if v.IsNil() {
			return t
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return t
		}
		ptr := v.Pointer()
		if seen[ptr] {
			return t
		}
		seen[ptr] = true
		defer delete(seen, ptr)
	}

	collectMethods(v, t)

	sv := v
	if sv.Kind() == reflect.Ptr {
		sv = sv.Elem()
	}
	if sv.Kind() != reflect.Struct {
		return t
	}
	if v.Kind() != reflect.Ptr && sv.CanAddr() {
		collectMethods(sv.Addr(), t)
	}

	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.IsExported() || skip(f.Name) {
			continue
		}
		child := wrap(sv.Field(i), seen, depth+1)
		if len(child.methods) > 0 || len(child.children) > 0 {
			t.children[f.Name] = child
		}
	}
	return t
}

func collectMethods(v reflect.Value, t *Target) {
	vt := v.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		if skip(m.Name) {
			continue
		}
		if _, exists := t.methods[m.Name]; exists {
			continue
		}
		t.methods[m.Name] = v.Method(i)
	}
}

// Resolve navigates path against t, the way methodpath.NavigateNamespace
// navigates a plain object graph, returning the terminal bound method as an
// any suitable for methodpath.Invoke. Path segments are matched against the
// Title-cased Go field/method name, the same convention
// methodpath.NavigateNamespace uses for struct navigation.
func (t *Target) Resolve(path methodpath.MethodPath) (any, error) {
	cur := t
	for i, seg := range path.Segments {
		name := strings.Title(seg) //nolint:staticcheck // matches methodpath's existing struct-field convention
		last := i == len(path.Segments)-1

		if last {
			if m, ok := cur.methods[name]; ok {
				return m.Interface(), nil
			}
			if _, ok := cur.children[name]; ok {
				return nil, errs.NewRpcErrorWithData(errs.CodeUnknownMethod,
					"path resolves to a namespace, not a method", map[string]any{"path": path.Raw})
			}
			return nil, errs.NewRpcErrorWithData(errs.CodeUnknownMethod,
				"method not found", map[string]any{"path": path.Raw, "segment": seg})
		}

		child, ok := cur.children[name]
		if !ok {
			return nil, errs.NewRpcErrorWithData(errs.CodeUnknownNamespace,
				"namespace not found", map[string]any{"path": path.Raw, "segment": seg})
		}
		cur = child
	}
	return nil, errs.NewRpcError(errs.CodeUnknownMethod, "empty path")
}

// Call parses path, resolves it against t, and invokes the result with
// args, giving Target the same Call(ctx, path, args) shape every other
// dispatch surface in this module exposes.
func (t *Target) Call(ctx context.Context, path string, args []any) (any, error) {
	mp, err := methodpath.Parse(path)
	if err != nil {
		return nil, err
	}
	fn, err := t.Resolve(mp)
	if err != nil {
		return nil, err
	}
	return methodpath.Invoke(fn, ctx, args)
}
