package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/underlint/underlint/internal/dictionary"
	"github.com/underlint/underlint/internal/lint"
	"github.com/underlint/underlint/internal/lint/luarule"
	"github.com/underlint/underlint/internal/settings"
)

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Analyze a file (or stdin) and print every issue",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	var text string
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		text = string(data)
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		text = string(data)
	}

	engine, dict, rules, err := buildEngine(cmd)
	if err != nil {
		return err
	}
	defer closeRules(rules)

	issues := engine.Analyze(text, dict.Snapshot())
	printIssues(os.Stdout, text, issues)

	if len(issues) > 0 {
		os.Exit(1)
	}
	return nil
}

// buildEngine assembles an engine with the persisted settings, the user
// dictionary, and any installed Lua rule packs.
func buildEngine(cmd *cobra.Command) (*lint.Engine, *dictionary.Dictionary, []*luarule.Rule, error) {
	settingsPath, err := configPath(cmd, "settings", "settings.toml")
	if err != nil {
		return nil, nil, nil, err
	}
	store := settings.New(settingsPath)
	if err := store.Load(); err != nil {
		return nil, nil, nil, err
	}

	dictPath, err := configPath(cmd, "dict", "dictionary.toml")
	if err != nil {
		return nil, nil, nil, err
	}
	dict := dictionary.New(dictPath)
	if err := dict.Load(); err != nil {
		return nil, nil, nil, err
	}

	rulesDir, err := configPath(cmd, "rules", "rules")
	if err != nil {
		return nil, nil, nil, err
	}
	rules, err := luarule.LoadDir(rulesDir)
	if err != nil {
		return nil, nil, nil, err
	}

	opts := []lint.Option{lint.WithMaxSuggestions(store.MaxSuggestions())}
	for _, rule := range rules {
		opts = append(opts, lint.WithRule(rule))
	}
	return lint.New(opts...), dict, rules, nil
}

func closeRules(rules []*luarule.Rule) {
	for _, r := range rules {
		r.Close()
	}
}

var severityColors = map[lint.Severity]*color.Color{
	lint.SeverityError:   color.New(color.FgRed),
	lint.SeverityWarning: color.New(color.FgYellow),
	lint.SeverityHint:    color.New(color.FgCyan),
}

func printIssues(w io.Writer, text string, issues []lint.Issue) {
	for _, issue := range issues {
		line, col := lineCol(text, issue.Range.Start)
		sev := severityColors[issue.Severity].Sprint(issue.Severity)
		fmt.Fprintf(w, "%d:%d %s %s: %s", line, col, sev, issue.Kind, issue.Message)
		if len(issue.Suggestions) > 0 {
			fmt.Fprintf(w, " (%s)", strings.Join(issue.Suggestions, ", "))
		}
		fmt.Fprintln(w)
	}
}

// lineCol converts a rune offset to 1-based line and column numbers.
func lineCol(text string, offset int) (int, int) {
	line, col := 1, 1
	for i, r := range []rune(text) {
		if i == offset {
			break
		}
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
