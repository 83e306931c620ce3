package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Browse the site's file gallery",
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List published files",
	RunE:  runFilesList,
}

var filesInfoCmd = &cobra.Command{
	Use:   "info [name]",
	Short: "Show metadata for one file",
	Args:  cobra.ExactArgs(1),
	RunE:  runFilesInfo,
}

var filesDownloadCmd = &cobra.Command{
	Use:   "download [name]",
	Short: "Download a file from the gallery",
	Args:  cobra.ExactArgs(1),
	RunE:  runFilesDownload,
}

func init() {
	filesListCmd.Flags().String("prefix", "", "only list files under this prefix")
	filesListCmd.Flags().String("filter", "", "glob filter, e.g. '**/*.pdf'")
	filesDownloadCmd.Flags().StringP("output", "o", "", "destination path (default: file name in the current directory)")
	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesInfoCmd)
	filesCmd.AddCommand(filesDownloadCmd)
	rootCmd.AddCommand(filesCmd)
}

func runFilesList(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}
	client := newAPIClient(resolver, newBridge(resolver))

	prefix, _ := cmd.Flags().GetString("prefix")
	filter, _ := cmd.Flags().GetString("filter")

	files, err := client.Files(cmd.Context(), prefix)
	if err != nil {
		return fmt.Errorf("%s", userMessage(resolver, err))
	}

	if filter != "" {
		filtered := files[:0]
		for _, f := range files {
			ok, err := doublestar.Match(filter, f.Name)
			if err != nil {
				return fmt.Errorf("invalid filter %q: %w", filter, err)
			}
			if ok {
				filtered = append(filtered, f)
			}
		}
		files = filtered
	}

	if len(files) == 0 {
		fmt.Println("No files found.")
		return nil
	}
	for _, f := range files {
		fmt.Printf("  %-50s %10s  %s\n", f.Name, formatSize(f.Size), f.ContentType)
	}
	return nil
}

func runFilesInfo(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}
	client := newAPIClient(resolver, newBridge(resolver))

	f, err := client.FileInfo(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("%s", userMessage(resolver, err))
	}

	fmt.Printf("Name:         %s\n", f.Name)
	fmt.Printf("Size:         %s (%d bytes)\n", formatSize(f.Size), f.Size)
	fmt.Printf("Content type: %s\n", f.ContentType)
	if !f.UpdatedAt.IsZero() {
		fmt.Printf("Updated:      %s\n", f.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runFilesDownload(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}
	client := newAPIClient(resolver, newBridge(resolver))
	ctx := cmd.Context()
	name := args[0]

	dest, _ := cmd.Flags().GetString("output")
	if dest == "" {
		dest = filepath.Base(name)
	}

	info, err := client.FileInfo(ctx, name)
	if err != nil {
		return fmt.Errorf("%s", userMessage(resolver, err))
	}
	ticket, err := client.FileDownloadURL(ctx, name)
	if err != nil {
		return fmt.Errorf("%s", userMessage(resolver, err))
	}

	bar := progressbar.NewOptions64(info.Size,
		progressbar.OptionSetDescription("Downloading "+name),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	)

	written, err := client.SaveTo(ctx, ticket, dest, bar)
	if err != nil {
		os.Remove(dest)
		return fmt.Errorf("%s", userMessage(resolver, err))
	}
	fmt.Printf("Saved %s (%s)\n", dest, formatSize(written))
	return nil
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
