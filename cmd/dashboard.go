package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/podline/podline/internal/assistant"
	"github.com/podline/podline/internal/dashboard"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Run the local web dashboard",
	Long: `Serves the web dashboard on localhost: episode browsing, the file
gallery, saved sessions, and a live chat with the show assistant.`,
	RunE: runDashboard,
}

func init() {
	dashboardCmd.Flags().Int("port", 0, "port to listen on (default from config)")
	dashboardCmd.Flags().Bool("allow-all-origins", false, "allow any origin (dev only)")
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}
	bridge := newBridge(resolver)
	client := newAPIClient(resolver, bridge)
	ctx := cmd.Context()

	database, err := openDatabase(resolver)
	if err != nil {
		return err
	}
	defer database.Close()

	store := newChatStore(resolver, client, bridge, database)

	token, err := bridge.Token(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	completer := newAssistant(resolver, token)
	if completer != nil {
		// The dashboard shares one completer across websocket clients.
		completer = assistant.NewRateLimited(completer, resolver.AssistantRPM())
	}

	port, _ := cmd.Flags().GetInt("port")
	if port == 0 {
		port = resolver.DashboardPort()
	}
	allowAll, _ := cmd.Flags().GetBool("allow-all-origins")
	if allowAll && !resolver.IsDevelopment() {
		return fmt.Errorf("--allow-all-origins is only available in development")
	}

	d := dashboard.New(dashboard.Config{Port: port, AllowAll: allowAll}, client, store, completer)
	fmt.Printf("Dashboard: http://127.0.0.1:%d\n", port)
	return d.Start()
}
