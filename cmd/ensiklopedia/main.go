package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	noColor  bool
	langFlag string
)

var rootCmd = &cobra.Command{
	Use:           "ensiklopedia",
	Short:         "Multi-language encyclopedia of Islamic history",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if os.Getenv("NO_COLOR") != "" {
			noColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&langFlag, "lang", "", "response language: id, ar or en")

	rootCmd.AddCommand(startCmd, stopCmd, statusCmd)
	rootCmd.AddCommand(askCmd, historyCmd, directoryCmd, promptsCmd, prefsCmd)
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, registerCmd)
	rootCmd.AddCommand(usersCmd, adminHistoryCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

