package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Thisiswallz/tool-companies-house-api/pkg/auth"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Companies House API key",
	Long: `Manage the stored Companies House API key securely.

The key is stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variable (read-only fallback)

Get an API key by registering an application at the Companies House
developer hub and creating a REST key.`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [label]",
	Short: "Store an API key securely",
	Long: `Prompt for a Companies House API key and store it securely.

The optional label lets you keep multiple keys (for example a live key
and a sandbox key). Without a label the key is stored as "default" and
used automatically by 'chscraper scrape'.`,
	Example: `  # Store the default key
  chscraper auth login

  # Store a sandbox key under its own label
  chscraper auth login sandbox`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [label]",
	Short: "Remove a stored API key",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

// statusCmd represents the auth status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored API keys (masked)",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(statusCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	term2 := ui.NewTerminal(quiet)

	label := auth.DefaultLabel
	if len(args) > 0 {
		label = args[0]
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	fmt.Print("API key: ")
	keyBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}

	credential := &auth.Credential{
		Label:  label,
		APIKey: strings.TrimSpace(string(keyBytes)),
	}
	if err := manager.Store(credential); err != nil {
		return err
	}

	term2.Success("API key stored as %q (%s)", label, auth.MaskKey(credential.APIKey))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	term2 := ui.NewTerminal(quiet)

	label := auth.DefaultLabel
	if len(args) > 0 {
		label = args[0]
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if err := manager.Delete(label); err != nil {
		return err
	}
	term2.Success("Removed API key %q", label)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	term2 := ui.NewTerminal(false)

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	credentials, err := manager.List()
	if err != nil {
		return err
	}
	if len(credentials) == 0 && os.Getenv("COMPANIES_HOUSE_API_KEY") == "" {
		term2.Warning("No API keys stored. Run 'chscraper auth login'.")
		return nil
	}

	for _, credential := range credentials {
		term2.Plain("%-12s %s  (modified %s)", credential.Label,
			auth.MaskKey(credential.APIKey),
			credential.LastModified.Format("2006-01-02 15:04"))
	}
	return nil
}
