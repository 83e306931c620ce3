package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/podline/podline/internal/env"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change configuration",
	Long: `Reads and writes the podline configuration. Values are resolved from
defaults, the config file, PODLINE_* environment variables, and --env
overrides, in that order of precedence.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one resolved config value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Write a value into the config file",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every resolved config value",
	RunE:  runConfigList,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}
	value := resolver.Get(args[0], "")
	if value == "" {
		return fmt.Errorf("key %q is not set", args[0])
	}
	fmt.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if err := env.Set(cfgFile, args[0], args[1]); err != nil {
		return err
	}
	path := cfgFile
	if path == "" {
		path = env.DefaultConfigPath()
	}
	fmt.Printf("Set %s in %s\n", args[0], path)
	return nil
}

func runConfigList(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}

	all := resolver.All()
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Printf("%-22s %s\n", k, all[k])
	}
	return nil
}
