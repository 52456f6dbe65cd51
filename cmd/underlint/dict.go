package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/underlint/underlint/internal/dictionary"
)

var dictCmd = &cobra.Command{
	Use:   "dict",
	Short: "Manage the user dictionary",
}

var dictAddCmd = &cobra.Command{
	Use:   "add <word>...",
	Short: "Add words to the user dictionary",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		dict, err := openDictionary(cmd)
		if err != nil {
			return err
		}
		for _, word := range args {
			if err := dict.Add(word); err != nil {
				return fmt.Errorf("adding %q: %w", word, err)
			}
		}
		return nil
	},
}

var dictRemoveCmd = &cobra.Command{
	Use:   "remove <word>...",
	Short: "Remove words from the user dictionary",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		dict, err := openDictionary(cmd)
		if err != nil {
			return err
		}
		for _, word := range args {
			if err := dict.Remove(word); err != nil {
				return fmt.Errorf("removing %q: %w", word, err)
			}
		}
		return nil
	},
}

var dictListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every dictionary word, sorted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true
		dict, err := openDictionary(cmd)
		if err != nil {
			return err
		}
		for _, word := range dict.Words() {
			fmt.Println(word)
		}
		return nil
	},
}

func init() {
	dictCmd.AddCommand(dictAddCmd)
	dictCmd.AddCommand(dictRemoveCmd)
	dictCmd.AddCommand(dictListCmd)
}

func openDictionary(cmd *cobra.Command) (*dictionary.Dictionary, error) {
	path, err := configPath(cmd, "dict", "dictionary.toml")
	if err != nil {
		return nil, err
	}
	dict := dictionary.New(path)
	if err := dict.Load(); err != nil {
		return nil, err
	}
	return dict, nil
}
