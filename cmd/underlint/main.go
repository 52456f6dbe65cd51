package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "underlint",
	Short: "Inline spelling and grammar annotation engine",
	Long:  `Underlint analyzes text fields for spelling and grammar issues and computes inline underline annotations`,
}

func main() {
	rootCmd.Version = "0.1.0"

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dictCmd)

	rootCmd.PersistentFlags().String("dict", "", "user dictionary file (default <config>/underlint/dictionary.toml)")
	rootCmd.PersistentFlags().String("settings", "", "settings file (default <config>/underlint/settings.toml)")
	rootCmd.PersistentFlags().String("rules", "", "Lua rule pack directory (default <config>/underlint/rules)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configPath resolves a persistent path flag, falling back to a file
// under the user config directory.
func configPath(cmd *cobra.Command, flag, file string) (string, error) {
	path, err := cmd.Flags().GetString(flag)
	if err != nil {
		return "", err
	}
	if path != "" {
		return path, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "underlint", file), nil
}
