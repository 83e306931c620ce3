package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/podline/podline/internal/assistant"
	"github.com/podline/podline/internal/chat"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the show assistant",
	Long: `Starts an interactive chat with the show assistant. The conversation
is stored locally and synced to the backend when reachable. Use -c to
resume a previous session by id (see 'podline sessions list').`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringP("continue", "c", "", "resume the session with this id")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
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
	if completer == nil {
		return fmt.Errorf("no backend configured; set backend_api_url first (podline config set backend_api_url <url>)")
	}

	if id, _ := cmd.Flags().GetString("continue"); id != "" {
		if store.Load(ctx, id) {
			session := store.Current()
			fmt.Printf("Resuming %q (%d messages)\n\n", session.Title, len(session.Messages))
			for _, m := range session.Messages {
				printMessage(m)
			}
		} else {
			fmt.Printf("Session %s not found; starting a new one.\n\n", id)
		}
	}

	if u := bridge.CurrentUser(); u != nil {
		fmt.Printf("Chatting as %s. ", u.Email)
	}
	fmt.Println("Type a message, or /quit to leave.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" || input == "/exit" {
			break
		}

		firstExchange := store.CurrentID() == ""
		store.Append(chat.RoleUser, input)

		reply, err := completer.Complete(ctx, store.Current().Messages)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", userMessage(resolver, err))
			continue
		}
		store.Append(chat.RoleAssistant, reply)
		fmt.Printf("\n%s\n\n", reply)

		if firstExchange {
			if t, ok := completer.(assistant.Titler); ok {
				store.SetTitle(t.Title(ctx, input))
			}
		}

		if err := store.PersistCurrent(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save session: %v\n", err)
		}
	}

	if id := store.CurrentID(); id != "" {
		fmt.Printf("\nSession saved. Resume with: podline chat -c %s\n", id)
	}
	return nil
}

func printMessage(m chat.Message) {
	switch m.Role {
	case chat.RoleUser:
		fmt.Printf("> %s\n", m.Content)
	case chat.RoleAssistant:
		fmt.Printf("\n%s\n\n", m.Content)
	}
}
