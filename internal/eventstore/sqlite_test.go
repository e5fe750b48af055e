package eventstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nexuscore/agentcore/pkg/models"
)

func openTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "events.db")
	store, err := OpenSQLiteStore(context.Background(), dsn)
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreAppendAssignsContiguousSeqFromZero(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLiteStore(t)

	first, err := store.Append(ctx, "exec-1", models.EventUserInput, []byte(`{}`))
	if err != nil {
		t.Fatalf("append 1: %v", err)
	}
	second, err := store.Append(ctx, "exec-1", models.EventModelRequest, []byte(`{}`))
	if err != nil {
		t.Fatalf("append 2: %v", err)
	}
	if first.Seq != 0 || second.Seq != 1 {
		t.Fatalf("seqs = %d, %d; want 0, 1", first.Seq, second.Seq)
	}

	other, err := store.Append(ctx, "exec-2", models.EventUserInput, []byte(`{}`))
	if err != nil {
		t.Fatalf("append to exec-2: %v", err)
	}
	if other.Seq != 0 {
		t.Fatalf("seq for independent execution = %d, want 0", other.Seq)
	}
}

func TestSQLiteStoreListByExecutionOrdered(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLiteStore(t)

	for i := 0; i < 5; i++ {
		if _, err := store.Append(ctx, "exec-1", models.EventToolCall, []byte(`{}`)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	events, err := store.ListByExecution(ctx, "exec-1")
	if err != nil {
		t.Fatalf("list by execution: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("len = %d, want 5", len(events))
	}
	for i, evt := range events {
		if evt.Seq != int64(i) {
			t.Errorf("events[%d].Seq = %d, want %d", i, evt.Seq, i)
		}
		if evt.ExecutionID != "exec-1" {
			t.Errorf("events[%d].ExecutionID = %q, want exec-1", i, evt.ExecutionID)
		}
	}
}

func TestSQLiteStoreSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLiteStore(t)
	key := models.SessionKey{Channel: "slack", Workspace: "w1", User: "u1", Thread: "t1"}

	if err := store.RegisterSession(ctx, "exec-1", key); err != nil {
		t.Fatalf("register session: %v", err)
	}
	got, err := store.SessionForExecution(ctx, "exec-1")
	if err != nil {
		t.Fatalf("session for execution: %v", err)
	}
	if got.String() != key.String() {
		t.Errorf("got %v, want %v", got, key)
	}

	if _, err := store.SessionForExecution(ctx, "never-registered"); err == nil {
		t.Error("expected error for unregistered execution")
	}
}

func TestSQLiteStoreListBySession(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLiteStore(t)
	key := models.SessionKey{Channel: "slack", Workspace: "w1", User: "u1", Thread: "t1"}
	other := models.SessionKey{Channel: "slack", Workspace: "w1", User: "u2", Thread: "t2"}

	if err := store.RegisterSession(ctx, "exec-1", key); err != nil {
		t.Fatalf("register exec-1: %v", err)
	}
	if err := store.RegisterSession(ctx, "exec-2", other); err != nil {
		t.Fatalf("register exec-2: %v", err)
	}
	if _, err := store.Append(ctx, "exec-1", models.EventUserInput, []byte(`{}`)); err != nil {
		t.Fatalf("append exec-1: %v", err)
	}
	if _, err := store.Append(ctx, "exec-2", models.EventUserInput, []byte(`{}`)); err != nil {
		t.Fatalf("append exec-2: %v", err)
	}

	events, err := store.ListBySession(ctx, key)
	if err != nil {
		t.Fatalf("list by session: %v", err)
	}
	if len(events) != 1 || events[0].ExecutionID != "exec-1" {
		t.Fatalf("events = %+v, want exactly exec-1's event", events)
	}
}

func TestSQLiteStoreOpenExecutions(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLiteStore(t)

	if _, err := store.Append(ctx, "done", models.EventUserInput, []byte(`{}`)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := store.Append(ctx, "done", models.EventFinalResponse, []byte(`{}`)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := store.Append(ctx, "hanging", models.EventUserInput, []byte(`{}`)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := store.Append(ctx, "hanging", models.EventToolCall, []byte(`{}`)); err != nil {
		t.Fatalf("append: %v", err)
	}

	open, err := store.OpenExecutions(ctx)
	if err != nil {
		t.Fatalf("open executions: %v", err)
	}
	if len(open) != 1 || open[0] != "hanging" {
		t.Fatalf("open = %v, want [hanging]", open)
	}
}

func TestSQLiteStoreRecentRespectsLimitAndOrder(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLiteStore(t)

	for i := 0; i < 10; i++ {
		if _, err := store.Append(ctx, "exec-1", models.EventToolCall, []byte(`{}`)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	recent, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("len = %d, want 3", len(recent))
	}
	if recent[2].Seq != 9 {
		t.Errorf("last recent seq = %d, want 9", recent[2].Seq)
	}
}

func TestSQLiteStorePayloadRoundTrips(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLiteStore(t)

	payload := []byte(`{"text":"hello world"}`)
	appended, err := store.Append(ctx, "exec-1", models.EventUserInput, payload)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	events, err := store.ListByExecution(ctx, "exec-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len = %d, want 1", len(events))
	}
	if string(events[0].Payload) != string(payload) {
		t.Errorf("payload = %s, want %s", events[0].Payload, payload)
	}
	if events[0].Version != models.CurrentEventSchemaVersion {
		t.Errorf("version = %d, want %d", events[0].Version, models.CurrentEventSchemaVersion)
	}
	if appended.Kind != models.EventUserInput {
		t.Errorf("kind = %v, want EventUserInput", appended.Kind)
	}
}
