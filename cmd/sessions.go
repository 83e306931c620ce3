package cmd

import (
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print one session's conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	sessionsDeleteCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}
	bridge := newBridge(resolver)
	client := newAPIClient(resolver, bridge)

	database, err := openDatabase(resolver)
	if err != nil {
		return err
	}
	defer database.Close()

	store := newChatStore(resolver, client, bridge, database)
	sessions := store.List(cmd.Context())
	if len(sessions) == 0 {
		fmt.Println("No saved sessions.")
		return nil
	}

	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("  %s  %-50s %2d messages  %s\n",
			s.UpdatedAt.Format("2006-01-02 15:04"), title, len(s.Messages), s.ID)
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}
	bridge := newBridge(resolver)
	client := newAPIClient(resolver, bridge)

	database, err := openDatabase(resolver)
	if err != nil {
		return err
	}
	defer database.Close()

	store := newChatStore(resolver, client, bridge, database)
	if !store.Load(cmd.Context(), args[0]) {
		return fmt.Errorf("session %s not found", args[0])
	}

	session := store.Current()
	if session.Title != "" {
		fmt.Printf("%s\n\n", session.Title)
	}
	for _, m := range session.Messages {
		printMessage(m)
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}
	bridge := newBridge(resolver)
	client := newAPIClient(resolver, bridge)

	database, err := openDatabase(resolver)
	if err != nil {
		return err
	}
	defer database.Close()

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		confirm := promptui.Prompt{
			Label:     fmt.Sprintf("Delete session %s", args[0]),
			IsConfirm: true,
		}
		if _, err := confirm.Run(); err != nil {
			fmt.Println("Aborted.")
			return nil
		}
	}

	store := newChatStore(resolver, client, bridge, database)
	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("%s", userMessage(resolver, err))
	}
	fmt.Println("Session deleted.")
	return nil
}
