package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	verbose  bool
	envPairs []string
)

var rootCmd = &cobra.Command{
	Use:   "podline",
	Short: "Terminal client for the podcast site and its assistant",
	Long: `Podline is the terminal client for the podcast site: browse episodes
and published files, chat with the show assistant, and run the local
web dashboard. Sessions are stored locally and synced to the backend
when it is reachable.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default ~/.podline/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringArrayVar(&envPairs, "env", nil, "override a config key for this run (KEY=VALUE, repeatable)")
}
