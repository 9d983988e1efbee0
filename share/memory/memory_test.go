package memory

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/filevault/share"
	"github.com/kbukum/filevault/share/sharetest"
)

func TestStore_Conformance(t *testing.T) {
	sharetest.RunStoreSuite(t, func(t *testing.T) share.Store { return New() })
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := New()
	l := sharetest.NewLink(t, "f", time.Hour, 1)
	if err := s.Create(context.Background(), l); err != nil {
		t.Fatal(err)
	}
	l.MaxRedemptions = 100

	got, _ := s.Get(context.Background(), l.Token)
	got.RedemptionCount = 50
	again, _ := s.Get(context.Background(), l.Token)
	if again.MaxRedemptions != 1 || again.RedemptionCount != 0 {
		t.Errorf("store shares memory with callers: %+v", again)
	}
}
