package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/underlint/underlint/internal/ax"
	"github.com/underlint/underlint/internal/dictionary"
	"github.com/underlint/underlint/internal/lint"
	"github.com/underlint/underlint/internal/lint/luarule"
	"github.com/underlint/underlint/internal/overlay"
	"github.com/underlint/underlint/internal/pipeline"
	"github.com/underlint/underlint/internal/settings"
	"github.com/underlint/underlint/internal/supervise"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the annotation pipeline against a simulated text field",
	Long: `Run the full pipeline with a simulated accessibility tree. Each line
read from stdin replaces the field's text; settled snapshots are
analyzed and the resulting underline marks are printed in host
coordinates.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().Float64("host-height", 800, "host screen height for coordinate mapping")
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	hostHeight, err := cmd.Flags().GetFloat64("host-height")
	if err != nil {
		return err
	}

	settingsPath, err := configPath(cmd, "settings", "settings.toml")
	if err != nil {
		return err
	}
	store := settings.New(settingsPath)
	if err := store.Load(); err != nil {
		return err
	}

	dictPath, err := configPath(cmd, "dict", "dictionary.toml")
	if err != nil {
		return err
	}
	dict := dictionary.New(dictPath)
	if err := dict.Load(); err != nil {
		return err
	}

	rulesDir, err := configPath(cmd, "rules", "rules")
	if err != nil {
		return err
	}
	rules, err := luarule.LoadDir(rulesDir)
	if err != nil {
		return err
	}
	defer closeRules(rules)

	grammarRules := make([]lint.GrammarRule, len(rules))
	for i, r := range rules {
		grammarRules[i] = r
	}

	reader := ax.NewFakeReader()
	fieldID := reader.AddField("", 40, 40)

	p := pipeline.New(pipeline.Options{
		Reader:     reader,
		Dictionary: dict,
		Settings:   store,
		Rules:      grammarRules,
		Geometry:   overlay.Geometry{HostHeight: hostHeight},
		Sink:       pipeline.MarkSinkFunc(printMarks),
		Status: func(c supervise.StateChange) {
			color.Magenta("engine: %s", c)
		},
		Warn: func(err error) {
			color.Yellow("warning: %v", err)
		},
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.Run(ctx) })

	p.FocusGained(fieldID, "")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := scanner.Text()
		reader.SetText(fieldID, text)
		p.TextChanged(fieldID, text)
	}
	if err := scanner.Err(); err != nil {
		cancel()
		g.Wait()
		return fmt.Errorf("reading stdin: %w", err)
	}

	// Let the last burst settle before shutting down.
	p.Flush(fieldID)
	cancel()
	return g.Wait()
}

func printMarks(_ string, marks []overlay.Mark) {
	if marks == nil {
		fmt.Println("  (marks cleared)")
		return
	}
	for _, m := range marks {
		label := m.Style.String()
		if m.Style == overlay.StyleSpelling {
			label = color.RedString(label)
		} else {
			label = color.BlueString(label)
		}
		fmt.Printf("  [%s] x=%.0f y=%.0f w=%.0f %s", label, m.Rect.X, m.Rect.Y, m.Rect.Width, m.Issue.Message)
		if len(m.Issue.Suggestions) > 0 {
			fmt.Printf(" (%s)", m.Issue.Suggestions[0])
		}
		fmt.Println()
	}
}
