package files

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/nexuscore/agentcore/pkg/models"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	ts := Toolset{WorkspaceRoot: t.TempDir()}
	writeInput, _ := json.Marshal(map[string]string{"path": "notes.txt", "content": "hello"})

	result, err := ts.WriteHandler(context.Background(), models.ToolInvocation{Input: writeInput})
	if err != nil || result.IsError {
		t.Fatalf("write: err=%v result=%+v", err, result)
	}

	readInput, _ := json.Marshal(map[string]string{"path": "notes.txt"})
	result, err = ts.ReadHandler(context.Background(), models.ToolInvocation{Input: readInput})
	if err != nil || result.IsError {
		t.Fatalf("read: err=%v result=%+v", err, result)
	}
	if result.Content != "hello" {
		t.Errorf("content = %q, want hello", result.Content)
	}
}

func TestListHandlerSortsEntries(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "b.txt"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644)

	ts := Toolset{WorkspaceRoot: root}
	listInput, _ := json.Marshal(map[string]string{"path": "."})
	result, err := ts.ListHandler(context.Background(), models.ToolInvocation{Input: listInput})
	if err != nil || result.IsError {
		t.Fatalf("list: err=%v result=%+v", err, result)
	}
	if result.Content != "a.txt\nb.txt" {
		t.Errorf("content = %q, want a.txt\\nb.txt", result.Content)
	}
}

func TestResolveRejectsEscape(t *testing.T) {
	ts := Toolset{WorkspaceRoot: t.TempDir()}
	readInput, _ := json.Marshal(map[string]string{"path": "../../etc/passwd"})
	result, err := ts.ReadHandler(context.Background(), models.ToolInvocation{Input: readInput})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !result.IsError {
		t.Error("expected workspace escape to be rejected")
	}
}

func TestReadMissingFileIsSoftFailure(t *testing.T) {
	ts := Toolset{WorkspaceRoot: t.TempDir()}
	readInput, _ := json.Marshal(map[string]string{"path": "missing.txt"})
	result, err := ts.ReadHandler(context.Background(), models.ToolInvocation{Input: readInput})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !result.SoftFailure() {
		t.Errorf("expected a soft failure (ok=false with diagnosis), got %+v", result)
	}
}
