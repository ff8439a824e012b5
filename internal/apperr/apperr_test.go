package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKind(t *testing.T) {
	t.Parallel()

	base := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", Invalid("date", "unknown format %q", "x"), "validation"},
		{"not found", &NotFoundError{Kind: "schedule", ID: 1}, "not_found"},
		{"permission", &PermissionError{Kind: "schedule", ID: 1, UserID: "u"}, "permission"},
		{"storage", Storage("insert", base), "storage"},
		{"wrapped storage", fmt.Errorf("add: %w", Storage("insert", base)), "storage"},
		{"resolution", &ResolutionError{Input: "x", Err: base}, "resolution"},
		{"transport", &TransportError{GuildID: "g", Op: "connect", Err: base}, "transport"},
		{"plain", base, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Fatalf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStorageKeepsExistingWrapper(t *testing.T) {
	t.Parallel()

	inner := Storage("select", errors.New("disk"))
	outer := Storage("list", fmt.Errorf("query: %w", inner))

	var se *StorageError
	if !errors.As(outer, &se) {
		t.Fatal("expected StorageError")
	}
	if se.Op != "select" {
		t.Fatalf("Op = %q, want select", se.Op)
	}
	if Storage("noop", nil) != nil {
		t.Fatal("nil error must stay nil")
	}
}

func TestUnwrapChains(t *testing.T) {
	t.Parallel()

	base := errors.New("eof")
	for _, err := range []error{
		&StorageError{Op: "x", Err: base},
		&ResolutionError{Input: "x", Err: base},
		&TransportError{GuildID: "g", Op: "play", Err: base},
	} {
		if !errors.Is(err, base) {
			t.Errorf("%T does not unwrap to base", err)
		}
	}
}
