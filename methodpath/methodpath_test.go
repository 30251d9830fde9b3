package methodpath_test

import (
	"testing"

	"github.com/dorpc/rpc/errs"
	"github.com/dorpc/rpc/methodpath"
)

func TestParseValid(t *testing.T) {
	p, err := methodpath.Parse("db.users.find")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"db", "users", "find"}
	if len(p.Segments) != len(want) {
		t.Fatalf("got %v segments, want %v", p.Segments, want)
	}
	for i := range want {
		if p.Segments[i] != want[i] {
			t.Errorf("segment %d = %q, want %q", i, p.Segments[i], want[i])
		}
	}
}

func TestParseEmptyPath(t *testing.T) {
	_, err := methodpath.Parse("")
	if !errs.IsRpcCode(err, errs.CodeInvalidPath) {
		t.Fatalf("expected InvalidPath, got %v", err)
	}
}

func TestParseEmptySegment(t *testing.T) {
	for _, p := range []string{"a..b", ".a.b", "a.b.", "."} {
		_, err := methodpath.Parse(p)
		if !errs.IsRpcCode(err, errs.CodeInvalidPath) {
			t.Errorf("path %q: expected InvalidPath, got %v", p, err)
		}
	}
}

func TestJoinSplitRoundTrip(t *testing.T) {
	cases := []string{"a", "a.b", "a.b.c.d"}
	for _, p := range cases {
		got := methodpath.Join(methodpath.Split(p))
		if got != p {
			t.Errorf("Join(Split(%q)) = %q, want %q", p, got, p)
		}
	}
}

func TestNavigateNamespaceMap(t *testing.T) {
	target := map[string]any{
		"db": map[string]any{
			"users": map[string]any{
				"find": func(args ...any) (any, error) { return map[string]any{"name": "Test"}, nil },
			},
		},
	}
	p, _ := methodpath.Parse("db.users.find")
	fn, err := methodpath.NavigateNamespace(target, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fn == nil {
		t.Fatal("expected non-nil callable")
	}
}

func TestNavigateNamespaceUnknownNamespace(t *testing.T) {
	target := map[string]any{"db": map[string]any{}}
	p, _ := methodpath.Parse("db.users.find")
	_, err := methodpath.NavigateNamespace(target, p)
	if !errs.IsRpcCode(err, errs.CodeUnknownNamespace) {
		t.Fatalf("expected UnknownNamespace, got %v", err)
	}
}

func TestNavigateNamespaceUnknownMethod(t *testing.T) {
	target := map[string]any{"db": map[string]any{"users": map[string]any{}}}
	p, _ := methodpath.Parse("db.users.find")
	_, err := methodpath.NavigateNamespace(target, p)
	if !errs.IsRpcCode(err, errs.CodeUnknownMethod) {
		t.Fatalf("expected UnknownMethod, got %v", err)
	}
}

func TestNavigateBatchTranslatesCodes(t *testing.T) {
	target := map[string]any{}
	p, _ := methodpath.Parse("db.users.find")
	_, err := methodpath.NavigateBatch(target, p)
	if !errs.IsRpcCode(err, errs.CodeInvalidPath) {
		t.Fatalf("expected InvalidPath, got %v", err)
	}
}
