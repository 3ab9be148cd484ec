package commands

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestKeysSetListDelete(t *testing.T) {
	ta := newTestApp(t, nil, nil, "k1,k2\n")
	if err := ta.run("keys", "set", "groq"); err != nil {
		t.Fatalf("set error = %v", err)
	}
	if ta.store.data["groq"] != "k1,k2" {
		t.Errorf("stored = %q", ta.store.data["groq"])
	}
	if !strings.Contains(ta.stdout.String(), "Stored 2 key(s) for groq.") {
		t.Errorf("stdout = %q", ta.stdout)
	}

	ta = newTestApp(t, nil, nil, "")
	ta.store.data["groq"] = "k"
	ta.store.data["gemini"] = "k"
	if err := ta.run("keys", "list"); err != nil {
		t.Fatal(err)
	}
	if got := ta.stdout.String(); got != "Stored keys:\n  - gemini\n  - groq\n" {
		t.Errorf("list = %q", got)
	}

	ta.stdout.Reset()
	if err := ta.run("keys", "delete", "groq"); err != nil {
		t.Fatal(err)
	}
	if _, ok := ta.store.data["groq"]; ok {
		t.Error("groq still stored")
	}
}

func TestKeysSetRejectsEmpty(t *testing.T) {
	ta := newTestApp(t, nil, nil, "   \n")
	if err := ta.run("keys", "set", "groq"); err == nil || !strings.Contains(err.Error(), "cannot be empty") {
		t.Errorf("err = %v", err)
	}
}

func TestKeysListJSON(t *testing.T) {
	ta := newTestApp(t, nil, nil, "")
	if err := ta.run("--json", "keys", "list"); err != nil {
		t.Fatal(err)
	}
	var out struct{ Keys []string }
	if err := json.Unmarshal(ta.stdout.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Keys == nil || len(out.Keys) != 0 {
		t.Errorf("keys = %#v, want empty list", out.Keys)
	}
}

func TestKeysDeleteMissing(t *testing.T) {
	ta := newTestApp(t, nil, nil, "")
	if err := ta.run("keys", "delete", "nope"); err == nil || !strings.Contains(err.Error(), "key not found") {
		t.Errorf("err = %v", err)
	}
}
