package cmd

import (
	"fmt"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Backend administration",
}

var adminHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the backend health endpoint",
	RunE:  runAdminHealth,
}

var adminStorageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Show backing storage information",
	RunE:  runAdminStorage,
}

var adminCacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the backend cache",
}

var adminCacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show backend cache statistics",
	RunE:  runAdminCacheStats,
}

var adminCacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop the backend cache",
	RunE:  runAdminCacheClear,
}

func init() {
	adminCacheClearCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	adminCacheCmd.AddCommand(adminCacheStatsCmd)
	adminCacheCmd.AddCommand(adminCacheClearCmd)
	adminCmd.AddCommand(adminHealthCmd)
	adminCmd.AddCommand(adminStorageCmd)
	adminCmd.AddCommand(adminCacheCmd)
	rootCmd.AddCommand(adminCmd)
}

func runAdminHealth(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}
	client := newAPIClient(resolver, newBridge(resolver))

	health, err := client.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("%s", userMessage(resolver, err))
	}

	fmt.Printf("Status:  %s\n", health.Status)
	fmt.Printf("Version: %s\n", health.Version)
	if health.Uptime > 0 {
		fmt.Printf("Uptime:  %s\n", (time.Duration(health.Uptime) * time.Second).String())
	}
	return nil
}

func runAdminStorage(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}
	client := newAPIClient(resolver, newBridge(resolver))

	info, err := client.StorageInfo(cmd.Context())
	if err != nil {
		return fmt.Errorf("%s", userMessage(resolver, err))
	}

	fmt.Printf("Bucket: %s\n", info.Bucket)
	fmt.Printf("Files:  %d\n", info.FileCount)
	fmt.Printf("Size:   %s\n", formatSize(info.TotalBytes))
	return nil
}

func runAdminCacheStats(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}
	client := newAPIClient(resolver, newBridge(resolver))

	stats, err := client.CacheStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("%s", userMessage(resolver, err))
	}

	fmt.Printf("Entries:  %d\n", stats.Entries)
	fmt.Printf("Hit rate: %.1f%%\n", stats.HitRate*100)
	fmt.Printf("Size:     %s\n", formatSize(stats.SizeBytes))
	return nil
}

func runAdminCacheClear(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		confirm := promptui.Prompt{
			Label:     "Clear the backend cache",
			IsConfirm: true,
		}
		if _, err := confirm.Run(); err != nil {
			fmt.Println("Aborted.")
			return nil
		}
	}

	client := newAPIClient(resolver, newBridge(resolver))
	if err := client.CacheClear(cmd.Context()); err != nil {
		return fmt.Errorf("%s", userMessage(resolver, err))
	}
	fmt.Println("Cache cleared.")
	return nil
}
