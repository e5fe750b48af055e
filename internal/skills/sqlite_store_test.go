package skills

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nexuscore/agentcore/pkg/models"
)

func openTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "skills.db")
	store, err := OpenSQLiteStore(context.Background(), dsn)
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testSkill(name string) models.Skill {
	return models.Skill{
		Name:        name,
		Description: "does a thing",
		Category:    models.CategoryWorkflow,
		Origin:      models.OriginAutoGenerated,
		Status:      models.SkillDraft,
		Triggers:    models.TriggerSet{Keywords: []string{"thing"}, Priority: 1},
		Steps: []models.SkillStep{
			{Order: 0, ToolName: "file_read", InputTmpl: `{"path":"{{path}}"}`, OnError: models.ActionAbort},
		},
	}
}

func TestSQLiteStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLiteStore(t)

	created, err := store.Create(ctx, testSkill("greeter"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated ID")
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be stamped")
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "greeter" {
		t.Errorf("name = %q, want greeter", got.Name)
	}
	if len(got.Steps) != 1 || got.Steps[0].ToolName != "file_read" {
		t.Errorf("steps = %+v, want one file_read step", got.Steps)
	}
	if len(got.Triggers.Keywords) != 1 || got.Triggers.Keywords[0] != "thing" {
		t.Errorf("triggers = %+v, want keywords [thing]", got.Triggers)
	}
}

func TestSQLiteStoreGetMissingReturnsErrNotFound(t *testing.T) {
	store := openTestSQLiteStore(t)
	if _, err := store.Get(context.Background(), "does-not-exist"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStoreUpdate(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLiteStore(t)

	created, err := store.Create(ctx, testSkill("greeter"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	created.Status = models.SkillActive
	created.Description = "updated description"
	if err := store.Update(ctx, created); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.SkillActive {
		t.Errorf("status = %v, want Active", got.Status)
	}
	if got.Description != "updated description" {
		t.Errorf("description = %q, want updated", got.Description)
	}
}

func TestSQLiteStoreUpdateMissingReturnsErrNotFound(t *testing.T) {
	store := openTestSQLiteStore(t)
	skill := testSkill("ghost")
	skill.ID = "missing-id"
	if err := store.Update(context.Background(), skill); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLiteStore(t)

	created, err := store.Create(ctx, testSkill("greeter"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after delete", err)
	}
	if err := store.Delete(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStoreListOrderedByName(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLiteStore(t)

	if _, err := store.Create(ctx, testSkill("zebra")); err != nil {
		t.Fatalf("create zebra: %v", err)
	}
	if _, err := store.Create(ctx, testSkill("alpha")); err != nil {
		t.Fatalf("create alpha: %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Name != "alpha" || list[1].Name != "zebra" {
		t.Fatalf("order = [%s, %s], want [alpha, zebra]", list[0].Name, list[1].Name)
	}
}

func TestSQLiteStoreRecordUsageAccumulates(t *testing.T) {
	ctx := context.Background()
	store := openTestSQLiteStore(t)

	created, err := store.Create(ctx, testSkill("greeter"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.RecordUsage(ctx, created.ID, true, 100*time.Millisecond); err != nil {
		t.Fatalf("record usage 1: %v", err)
	}
	if err := store.RecordUsage(ctx, created.ID, false, 300*time.Millisecond); err != nil {
		t.Fatalf("record usage 2: %v", err)
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Stats.UsageCount != 2 {
		t.Fatalf("usage count = %d, want 2", got.Stats.UsageCount)
	}
	if got.Stats.SuccessRate != 0.5 {
		t.Fatalf("success rate = %f, want 0.5", got.Stats.SuccessRate)
	}
	if got.Stats.MeanDurationMS != 200 {
		t.Fatalf("mean duration = %d, want 200", got.Stats.MeanDurationMS)
	}
	if got.Stats.LastUsedAt.IsZero() {
		t.Fatal("expected LastUsedAt to be stamped")
	}
}
