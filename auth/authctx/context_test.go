package authctx

import (
	"context"
	"testing"
)

type claims struct{ sub string }

func TestSetGet(t *testing.T) {
	ctx := Set(context.Background(), &claims{sub: "alice"})

	c, ok := Get[*claims](ctx)
	if !ok || c.sub != "alice" {
		t.Fatalf("Get = %+v, %v", c, ok)
	}
	if _, ok := Get[string](ctx); ok {
		t.Error("wrong type should not match")
	}
	if _, err := GetOrError[*claims](context.Background()); err != ErrNoClaims {
		t.Errorf("GetOrError on empty context = %v", err)
	}
}
