//go:build integration

package integration

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petal-labs/conduit/core"
)

func TestCLI_Version(t *testing.T) {
	result := runCLI(t, "version")
	if result.ExitCode != 0 || !strings.HasPrefix(result.Stdout, "conduit ") {
		t.Errorf("exit = %d, stdout = %q", result.ExitCode, result.Stdout)
	}
}

func TestCLI_ChatMissingModel(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	result := runCLI(t, "--config", cfg, "chat", "hi")
	if result.ExitCode != 1 || !strings.Contains(result.Stderr, "model required") {
		t.Errorf("exit = %d, stderr = %q", result.ExitCode, result.Stderr)
	}
}

func TestCLI_ChatJSON(t *testing.T) {
	keysFor(t, "groq")
	cfg := filepath.Join(t.TempDir(), "config.yaml")

	result := runCLI(t, "--config", cfg, "--json", "chat",
		"--model", "llama-3.3-70b-versatile",
		"--prompt", "Say 'hello' and nothing else.")
	if result.ExitCode != 0 {
		t.Fatalf("exit = %d\nstderr: %s", result.ExitCode, result.Stderr)
	}

	var tr core.Transcript
	if err := json.Unmarshal([]byte(result.Stdout), &tr); err != nil {
		t.Fatalf("output is not a transcript: %v\n%s", err, result.Stdout)
	}
	if !tr.Done || tr.Text == "" {
		t.Errorf("transcript = %+v", tr)
	}
}

func TestCLI_ChatWithSearch(t *testing.T) {
	keysFor(t, "gemini")
	keysFor(t, "search")
	cfg := filepath.Join(t.TempDir(), "config.yaml")

	result := runCLI(t, "--config", cfg, "--json", "chat",
		"--model", "gemini-2.5-flash", "--tools", "--search-mode", "fast",
		"What is the latest stable Go release?")
	if result.ExitCode != 0 {
		t.Fatalf("exit = %d\nstderr: %s", result.ExitCode, result.Stderr)
	}
	var tr core.Transcript
	if err := json.Unmarshal([]byte(result.Stdout), &tr); err != nil {
		t.Fatal(err)
	}
	t.Logf("tool calls: %d, text: %q", len(tr.ToolCalls), tr.Text)
}
