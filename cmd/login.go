package cmd

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the podcast site",
	Long: `Signs in with your email and password. Credentials are stored under
~/.podline and the session is refreshed automatically as long as it
stays valid.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the stored session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().Bool("signup", false, "create a new account instead of signing in")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}
	if resolver.FirebaseAPIKey() == "" {
		return fmt.Errorf("no auth provider configured; set firebase_api_key first (podline config set firebase_api_key <key>)")
	}
	bridge := newBridge(resolver)

	emailPrompt := promptui.Prompt{
		Label: "Email",
		Validate: func(s string) error {
			if !strings.Contains(s, "@") {
				return fmt.Errorf("not an email address")
			}
			return nil
		},
	}
	email, err := emailPrompt.Run()
	if err != nil {
		return fmt.Errorf("login aborted: %w", err)
	}

	passwordPrompt := promptui.Prompt{
		Label: "Password",
		Mask:  '*',
	}
	password, err := passwordPrompt.Run()
	if err != nil {
		return fmt.Errorf("login aborted: %w", err)
	}

	if signup, _ := cmd.Flags().GetBool("signup"); signup {
		u, err := bridge.SignUp(cmd.Context(), email, password)
		if err != nil {
			return fmt.Errorf("sign-up failed: %w", err)
		}
		fmt.Printf("Account created. Signed in as %s\n", u.Email)
		return nil
	}

	u, err := bridge.SignIn(cmd.Context(), email, password)
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}
	fmt.Printf("Signed in as %s\n", u.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}
	bridge := newBridge(resolver)
	if bridge.CurrentUser() == nil {
		fmt.Println("Not signed in.")
		return nil
	}
	if err := bridge.SignOut(); err != nil {
		return fmt.Errorf("signing out: %w", err)
	}
	fmt.Println("Signed out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	resolver, err := loadResolver()
	if err != nil {
		return err
	}
	bridge := newBridge(resolver)

	u := bridge.CurrentUser()
	if u == nil {
		fmt.Println("Not signed in.")
		return nil
	}
	fmt.Printf("Email: %s\n", u.Email)
	fmt.Printf("UID:   %s\n", u.UID)
	if u.DisplayName != "" {
		fmt.Printf("Name:  %s\n", u.DisplayName)
	}
	return nil
}
