package policy

import (
	"context"
	"testing"
	"time"
)

func TestApprovalManagerResolveApproved(t *testing.T) {
	m := NewApprovalManager()
	nonce, _ := NewNonce()
	m.Request(nonce, time.Second)

	go func() {
		time.Sleep(5 * time.Millisecond)
		if err := m.Resolve(nonce, true, ""); err != nil {
			t.Errorf("resolve: %v", err)
		}
	}()

	if err := m.Await(context.Background(), nonce); err != nil {
		t.Fatalf("await: %v", err)
	}
}

func TestApprovalManagerResolveDenied(t *testing.T) {
	m := NewApprovalManager()
	nonce, _ := NewNonce()
	m.Request(nonce, time.Second)

	go m.Resolve(nonce, false, "user declined")

	err := m.Await(context.Background(), nonce)
	if err != ErrApprovalDenied {
		t.Fatalf("err = %v, want ErrApprovalDenied", err)
	}
}

func TestApprovalManagerTimeout(t *testing.T) {
	m := NewApprovalManager()
	nonce, _ := NewNonce()
	m.Request(nonce, 5*time.Millisecond)

	err := m.Await(context.Background(), nonce)
	if err != ErrApprovalTimeout {
		t.Fatalf("err = %v, want ErrApprovalTimeout", err)
	}
}

func TestApprovalManagerUnknownNonce(t *testing.T) {
	m := NewApprovalManager()
	if err := m.Await(context.Background(), "never-requested"); err != ErrUnknownNonce {
		t.Fatalf("err = %v, want ErrUnknownNonce", err)
	}
	if err := m.Resolve("never-requested", true, ""); err != ErrUnknownNonce {
		t.Fatalf("resolve err = %v, want ErrUnknownNonce", err)
	}
}

func TestApprovalManagerDoubleResolveFails(t *testing.T) {
	m := NewApprovalManager()
	nonce, _ := NewNonce()
	m.Request(nonce, time.Second)

	if err := m.Resolve(nonce, true, ""); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if err := m.Resolve(nonce, true, ""); err != ErrUnknownNonce {
		t.Fatalf("second resolve err = %v, want ErrUnknownNonce", err)
	}
}

func TestApprovalManagerContextCancelled(t *testing.T) {
	m := NewApprovalManager()
	nonce, _ := NewNonce()
	m.Request(nonce, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Await(ctx, nonce)
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if m.Pending() != 0 {
		t.Errorf("pending = %d, want 0 after cancellation cleanup", m.Pending())
	}
}
