package policy

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/nexuscore/agentcore/pkg/models"
)

// ErrApprovalTimeout is returned by Await when the nonce's timeout elapses
// before a response arrives.
var ErrApprovalTimeout = errors.New("policy: approval request timed out")

// ErrApprovalDenied is returned by Await when the user explicitly rejects
// the request.
var ErrApprovalDenied = errors.New("policy: approval request denied")

// ErrUnknownNonce is returned by Resolve when the nonce has no pending
// request (already resolved, expired, or never issued).
var ErrUnknownNonce = errors.New("policy: unknown or already-resolved approval nonce")

type pendingApproval struct {
	result chan approvalOutcome
	timer  *time.Timer
}

type approvalOutcome struct {
	approved bool
	reason   string
}

// ApprovalManager holds the nonce-keyed table of in-flight approval
// requests. Grounded on the teacher's internal/tools/policy/approval.go
// ApprovalManager.
type ApprovalManager struct {
	mu      sync.Mutex
	pending map[string]*pendingApproval
}

// NewApprovalManager returns an empty manager.
func NewApprovalManager() *ApprovalManager {
	return &ApprovalManager{pending: make(map[string]*pendingApproval)}
}

// NewNonce generates a fresh, unpredictable approval token.
func NewNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Request registers a pending approval under nonce with the given timeout,
// returning a function the orchestrator calls to block for the outcome.
// Grounded on the teacher's nonce-keyed pending-future table: each call
// gets its own buffered channel so Resolve never blocks on a slow waiter.
func (m *ApprovalManager) Request(nonce string, timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := &pendingApproval{result: make(chan approvalOutcome, 1)}
	p.timer = time.AfterFunc(timeout, func() {
		m.mu.Lock()
		if _, ok := m.pending[nonce]; ok {
			delete(m.pending, nonce)
			p.result <- approvalOutcome{approved: false, reason: "timeout"}
		}
		m.mu.Unlock()
	})
	m.pending[nonce] = p
}

// Await blocks until nonce is resolved, its timeout fires, or ctx is
// cancelled — whichever comes first.
func (m *ApprovalManager) Await(ctx context.Context, nonce string) error {
	m.mu.Lock()
	p, ok := m.pending[nonce]
	m.mu.Unlock()
	if !ok {
		return ErrUnknownNonce
	}

	select {
	case outcome := <-p.result:
		if !outcome.approved {
			if outcome.reason == "timeout" {
				return ErrApprovalTimeout
			}
			return ErrApprovalDenied
		}
		return nil
	case <-ctx.Done():
		m.cancel(nonce)
		return ctx.Err()
	}
}

// Resolve delivers a human's approve/deny decision for nonce. It is
// idempotent: resolving an already-resolved or expired nonce returns
// ErrUnknownNonce.
func (m *ApprovalManager) Resolve(nonce string, approved bool, reason string) error {
	m.mu.Lock()
	p, ok := m.pending[nonce]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownNonce
	}
	delete(m.pending, nonce)
	m.mu.Unlock()

	p.timer.Stop()
	p.result <- approvalOutcome{approved: approved, reason: reason}
	return nil
}

func (m *ApprovalManager) cancel(nonce string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pending[nonce]; ok {
		p.timer.Stop()
		delete(m.pending, nonce)
	}
}

// Pending reports how many approval requests are currently outstanding,
// used by diagnostics/metrics.
func (m *ApprovalManager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// BuildRequestedEvent constructs the ApprovalRequestedPayload for the
// event log, matching the shape the orchestrator appends before calling
// Request.
func BuildRequestedEvent(nonce, toolName, inputSummary, affectedResource string, risk models.RiskLevel, timeoutAt time.Time) models.ApprovalRequestedPayload {
	return models.ApprovalRequestedPayload{
		Nonce:               nonce,
		ToolName:            toolName,
		InputSummary:        inputSummary,
		AffectedResource:    affectedResource,
		RiskLevel:           risk,
		TimeoutAtUnixMillis: timeoutAt.UnixMilli(),
	}
}
