// Package files implements the file_list/file_read/file_write tools from
// spec.md's worked scenarios. Grounded on the teacher's workspace-jailed
// file tool handlers, sharing the same path-escape check internal/shell
// applies to shell commands.
package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nexuscore/agentcore/pkg/models"
)

const (
	NameList  = "file_list"
	NameRead  = "file_read"
	NameWrite = "file_write"
)

// ListDefinition describes the file_list tool.
func ListDefinition() models.ToolDefinition {
	schema := []byte(`{
		"type": "object",
		"properties": {"path": {"type": "string"}},
		"required": ["path"],
		"additionalProperties": false
	}`)
	return models.ToolDefinition{
		Name:           NameList,
		Description:    "Lists files in a directory within the workspace.",
		InputSchema:    schema,
		RiskLevel:      models.RiskLow,
		SideEffectFree: true,
	}
}

// ReadDefinition describes the file_read tool.
func ReadDefinition() models.ToolDefinition {
	schema := []byte(`{
		"type": "object",
		"properties": {"path": {"type": "string"}},
		"required": ["path"],
		"additionalProperties": false
	}`)
	return models.ToolDefinition{
		Name:           NameRead,
		Description:    "Reads a file's contents within the workspace.",
		InputSchema:    schema,
		RiskLevel:      models.RiskLow,
		SideEffectFree: true,
	}
}

// WriteDefinition describes the file_write tool. Medium risk: it mutates
// the workspace but can't escape it or destroy anything outside it.
func WriteDefinition() models.ToolDefinition {
	schema := []byte(`{
		"type": "object",
		"properties": {
			"path": {"type": "string"},
			"content": {"type": "string"}
		},
		"required": ["path", "content"],
		"additionalProperties": false
	}`)
	return models.ToolDefinition{
		Name:        NameWrite,
		Description: "Writes content to a file within the workspace, creating or overwriting it.",
		InputSchema: schema,
		RiskLevel:   models.RiskMedium,
	}
}

// Toolset bundles the workspace root every handler jails itself to.
type Toolset struct {
	WorkspaceRoot string
}

func (t Toolset) resolve(path string) (string, error) {
	root, err := filepath.Abs(t.WorkspaceRoot)
	if err != nil {
		return "", err
	}
	var abs string
	if filepath.IsAbs(path) {
		abs = filepath.Clean(path)
	} else {
		abs = filepath.Clean(filepath.Join(root, path))
	}
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", fmt.Errorf("files: path %q escapes the workspace", path)
	}
	return abs, nil
}

type pathInput struct {
	Path string `json:"path"`
}

// ListHandler lists directory entries.
func (t Toolset) ListHandler(ctx context.Context, inv models.ToolInvocation) (models.ToolResult, error) {
	var in pathInput
	if err := json.Unmarshal(inv.Input, &in); err != nil {
		return errResult(inv, "invalid input: "+err.Error()), nil
	}
	abs, err := t.resolve(in.Path)
	if err != nil {
		return errResult(inv, err.Error()), nil
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return models.ToolResult{CorrelationID: inv.CorrelationID, Diagnosis: err.Error()}, nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return models.ToolResult{CorrelationID: inv.CorrelationID, Content: strings.Join(names, "\n")}, nil
}

// ReadHandler reads a file's contents.
func (t Toolset) ReadHandler(ctx context.Context, inv models.ToolInvocation) (models.ToolResult, error) {
	var in pathInput
	if err := json.Unmarshal(inv.Input, &in); err != nil {
		return errResult(inv, "invalid input: "+err.Error()), nil
	}
	abs, err := t.resolve(in.Path)
	if err != nil {
		return errResult(inv, err.Error()), nil
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return models.ToolResult{CorrelationID: inv.CorrelationID, Diagnosis: err.Error()}, nil
	}
	return models.ToolResult{CorrelationID: inv.CorrelationID, Content: string(data)}, nil
}

type writeInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// WriteHandler writes (creating or overwriting) a file's contents.
func (t Toolset) WriteHandler(ctx context.Context, inv models.ToolInvocation) (models.ToolResult, error) {
	var in writeInput
	if err := json.Unmarshal(inv.Input, &in); err != nil {
		return errResult(inv, "invalid input: "+err.Error()), nil
	}
	abs, err := t.resolve(in.Path)
	if err != nil {
		return errResult(inv, err.Error()), nil
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return models.ToolResult{CorrelationID: inv.CorrelationID, Diagnosis: err.Error()}, nil
	}
	if err := os.WriteFile(abs, []byte(in.Content), 0o644); err != nil {
		return models.ToolResult{CorrelationID: inv.CorrelationID, Diagnosis: err.Error()}, nil
	}
	return models.ToolResult{CorrelationID: inv.CorrelationID, Content: fmt.Sprintf("wrote %d bytes to %s", len(in.Content), in.Path)}, nil
}

func errResult(inv models.ToolInvocation, msg string) models.ToolResult {
	return models.ToolResult{CorrelationID: inv.CorrelationID, IsError: true, Content: msg}
}
