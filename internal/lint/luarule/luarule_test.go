package luarule

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/underlint/underlint/internal/lint"
)

func writeScript(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const informalRule = `
name = "no-informal"

function check(tokens)
	local issues = {}
	for i, tok in ipairs(tokens) do
		if tok.kind == "word" and string.lower(tok.text) == "gonna" then
			issues[#issues + 1] = {
				start = tok.start,
				length = string.len(tok.text),
				message = "informal contraction",
				severity = "warning",
				suggestions = {"going to"},
			}
		end
	end
	return issues
end
`

func TestLoad_Name(t *testing.T) {
	path := writeScript(t, "informal.lua", informalRule)

	rule, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer rule.Close()

	if rule.Name() != "no-informal" {
		t.Errorf("Name() = %q, want no-informal", rule.Name())
	}
}

func TestLoad_MissingCheck(t *testing.T) {
	path := writeScript(t, "broken.lua", `x = 1`)

	if _, err := Load(path); !errors.Is(err, ErrNoCheckFunction) {
		t.Errorf("Load = %v, want ErrNoCheckFunction", err)
	}
}

func TestCheck_EmitsIssues(t *testing.T) {
	path := writeScript(t, "informal.lua", informalRule)
	rule, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	defer rule.Close()

	tokens := lint.Tokenize("I am gonna go")
	issues := rule.Check(tokens)

	if len(issues) != 1 {
		t.Fatalf("issues = %v, want 1", issues)
	}
	is := issues[0]
	if is.Range != (lint.Range{Start: 5, Length: 5}) {
		t.Errorf("range = %+v, want {5 5}", is.Range)
	}
	if is.Kind != lint.KindGrammar {
		t.Errorf("kind = %v, want grammar", is.Kind)
	}
	if is.Severity != lint.SeverityWarning {
		t.Errorf("severity = %v, want warning", is.Severity)
	}
	if len(is.Suggestions) != 1 || is.Suggestions[0] != "going to" {
		t.Errorf("suggestions = %v, want [going to]", is.Suggestions)
	}
}

func TestCheck_ScriptErrorYieldsNoIssues(t *testing.T) {
	path := writeScript(t, "crashy.lua", `
function check(tokens)
	error("boom")
end
`)
	rule, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	defer rule.Close()

	if issues := rule.Check(lint.Tokenize("any text")); issues != nil {
		t.Errorf("issues = %v, want nil on script error", issues)
	}
}

type acceptAll struct{}

func (acceptAll) Contains(string) bool { return true }

func TestCheck_MergesIntoEngineResult(t *testing.T) {
	path := writeScript(t, "informal.lua", informalRule)
	rule, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	defer rule.Close()

	// Accept "gonna" in the dictionary so the spelling pass does not
	// claim the identical range first.
	engine := lint.New(lint.WithRule(rule))
	issues := engine.Analyze("we are gonna win", acceptAll{})

	found := false
	for i := 1; i < len(issues); i++ {
		if issues[i].Range.Start < issues[i-1].Range.Start {
			t.Errorf("issues not sorted: %v", issues)
		}
	}
	for _, is := range issues {
		if is.Kind == lint.KindGrammar && is.Message == "informal contraction" {
			found = true
		}
	}
	if !found {
		t.Errorf("lua rule issue not merged: %v", issues)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.lua"), []byte(informalRule), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	defer func() {
		for _, r := range rules {
			r.Close()
		}
	}()

	if len(rules) != 1 {
		t.Fatalf("rules = %d, want 1", len(rules))
	}
}

func TestLoadDir_Missing(t *testing.T) {
	rules, err := LoadDir(filepath.Join(t.TempDir(), "no-such-dir"))
	if err != nil {
		t.Errorf("LoadDir missing dir = %v, want nil", err)
	}
	if rules != nil {
		t.Errorf("rules = %v, want nil", rules)
	}
}

func TestSandbox_NoOSAccess(t *testing.T) {
	path := writeScript(t, "escape.lua", `
function check(tokens)
	if os ~= nil or io ~= nil then
		return {{start = 0, length = 1, message = "escaped"}}
	end
	return {}
end
`)
	rule, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	defer rule.Close()

	if issues := rule.Check(lint.Tokenize("x y")); len(issues) != 0 {
		t.Errorf("sandbox leaked os/io: %v", issues)
	}
}
