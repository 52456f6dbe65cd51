// Package luarule loads user-supplied grammar rules written in Lua.
//
// A rule pack is a Lua script defining a global function
//
//	function check(tokens) ... end
//
// where tokens is an array of {text, start, kind} tables (start is a
// 0-based rune offset, kind is "word" or "punct"). The function returns
// an array of issue tables: {start, length, message, severity,
// suggestions}. Severity is one of "hint", "warning", "error" and
// defaults to "hint".
//
// Scripts run in a sandboxed state: io, os, debug, and the module
// loaders are unavailable, so a rule pack can inspect tokens and nothing
// else. A rule that fails at runtime is skipped for that analysis pass
// rather than failing the whole result.
package luarule

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/underlint/underlint/internal/lint"
)

// ErrNoCheckFunction indicates the script did not define check().
var ErrNoCheckFunction = errors.New("rule script defines no check function")

// Rule is one loaded Lua rule pack. It implements lint.GrammarRule.
//
// The underlying Lua state is not goroutine-safe; Check serializes
// access with a mutex.
type Rule struct {
	mu   sync.Mutex
	name string
	l    *lua.LState
}

// Load compiles the script at path into a sandboxed Lua state and
// verifies it defines check(). The rule's name is the script's global
// `name` string if set, otherwise the file's base name.
func Load(path string) (*Rule, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rule script %s: %w", path, err)
	}

	l := newSandboxedState()
	if err := l.DoString(string(src)); err != nil {
		l.Close()
		return nil, fmt.Errorf("loading rule script %s: %w", path, err)
	}

	if l.GetGlobal("check").Type() != lua.LTFunction {
		l.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNoCheckFunction)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if n, ok := l.GetGlobal("name").(lua.LString); ok && n != "" {
		name = string(n)
	}

	return &Rule{name: name, l: l}, nil
}

// LoadDir loads every *.lua file in dir, sorted by name. A missing
// directory yields no rules and no error.
func LoadDir(dir string) ([]*Rule, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading rule directory %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".lua" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	rules := make([]*Rule, 0, len(paths))
	for _, p := range paths {
		rule, err := Load(p)
		if err != nil {
			// Close the ones already loaded before bailing out.
			for _, r := range rules {
				r.Close()
			}
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// newSandboxedState creates a Lua state with only the base, table,
// string, and math libraries, and the load family removed.
func newSandboxedState() *lua.LState {
	l := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(l)
	lua.OpenTable(l)
	lua.OpenString(l)
	lua.OpenMath(l)

	// io, os, debug, and package are never opened. The load family
	// could still reach outside the sandbox, so it goes too.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		l.SetGlobal(name, lua.LNil)
	}

	return l
}

// Name returns the rule pack name.
func (r *Rule) Name() string {
	return r.name
}

// Close releases the Lua state. The rule must not be used afterwards.
func (r *Rule) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.l != nil {
		r.l.Close()
		r.l = nil
	}
}

// Check runs the script's check() over the token stream and converts the
// returned issue tables. A script error yields no issues for this pass.
func (r *Rule) Check(tokens []lint.Token) []lint.Issue {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.l == nil {
		return nil
	}

	arg := r.tokensToLua(tokens)
	err := r.l.CallByParam(lua.P{
		Fn:      r.l.GetGlobal("check"),
		NRet:    1,
		Protect: true,
	}, arg)
	if err != nil {
		return nil
	}

	ret := r.l.Get(-1)
	r.l.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil
	}
	return r.issuesFromLua(tbl)
}

// tokensToLua builds the array-of-tables argument for check().
func (r *Rule) tokensToLua(tokens []lint.Token) *lua.LTable {
	arr := r.l.NewTable()
	for _, tok := range tokens {
		t := r.l.NewTable()
		r.l.SetField(t, "text", lua.LString(tok.Text))
		r.l.SetField(t, "start", lua.LNumber(tok.Start))
		kind := "word"
		if tok.Kind == lint.TokenPunct {
			kind = "punct"
		}
		r.l.SetField(t, "kind", lua.LString(kind))
		arr.Append(t)
	}
	return arr
}

// issuesFromLua converts the returned table. Entries missing start or
// length, or with non-positive length, are dropped.
func (r *Rule) issuesFromLua(tbl *lua.LTable) []lint.Issue {
	var issues []lint.Issue
	for i := 1; i <= tbl.Len(); i++ {
		entry, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			continue
		}

		start, okStart := luaInt(entry.RawGetString("start"))
		length, okLen := luaInt(entry.RawGetString("length"))
		if !okStart || !okLen || length <= 0 || start < 0 {
			continue
		}

		issue := lint.Issue{
			Range:    lint.Range{Start: start, Length: length},
			Kind:     lint.KindGrammar,
			Severity: parseSeverity(entry.RawGetString("severity")),
		}
		if msg, ok := entry.RawGetString("message").(lua.LString); ok {
			issue.Message = string(msg)
		}
		if sugs, ok := entry.RawGetString("suggestions").(*lua.LTable); ok {
			for j := 1; j <= sugs.Len(); j++ {
				if s, ok := sugs.RawGetInt(j).(lua.LString); ok {
					issue.Suggestions = append(issue.Suggestions, string(s))
				}
			}
		}
		issues = append(issues, issue)
	}
	return issues
}

func luaInt(v lua.LValue) (int, bool) {
	n, ok := v.(lua.LNumber)
	if !ok {
		return 0, false
	}
	return int(n), true
}

func parseSeverity(v lua.LValue) lint.Severity {
	s, ok := v.(lua.LString)
	if !ok {
		return lint.SeverityHint
	}
	switch strings.ToLower(string(s)) {
	case "error":
		return lint.SeverityError
	case "warning":
		return lint.SeverityWarning
	default:
		return lint.SeverityHint
	}
}
