package apperr

import (
	"errors"
	"testing"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindInput, "input"},
		{KindEngineTransport, "engine_transport"},
		{KindInfrastructure, "infrastructure"},
		{KindLogic, "logic"},
		{Kind(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestErrorMessageWithAndWithoutOp(t *testing.T) {
	cause := errors.New("boom")

	withOp := New(KindInput, "parse_fen", cause)
	if got, want := withOp.Error(), "parse_fen: input: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	withoutOp := New(KindLogic, "", cause)
	if got, want := withoutOp.Error(), "logic: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := New(KindEngineTransport, "analyze", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should see through Unwrap() to the cause")
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := Infrastructure("queue_claim", errors.New("redis down"))

	if !Is(err, KindInfrastructure) {
		t.Error("Is(err, KindInfrastructure) should be true")
	}
	if Is(err, KindInput) {
		t.Error("Is(err, KindInput) should be false")
	}
}

func TestIsFalseForPlainError(t *testing.T) {
	if Is(errors.New("plain"), KindInput) {
		t.Error("a plain error should never match any Kind")
	}
}

func TestConstructorsTagCorrectKind(t *testing.T) {
	cause := errors.New("x")
	cases := []struct {
		name string
		err  *Error
		kind Kind
	}{
		{"Input", Input("op", cause), KindInput},
		{"EngineTransport", EngineTransport("op", cause), KindEngineTransport},
		{"Infrastructure", Infrastructure("op", cause), KindInfrastructure},
		{"Logic", Logic("op", cause), KindLogic},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if c.err.Kind != c.kind {
				t.Errorf("%s: Kind = %v, want %v", c.name, c.err.Kind, c.kind)
			}
		})
	}
}
