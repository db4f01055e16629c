package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"malharvest/pkg/auth"
	"malharvest/pkg/ui"
)

// authCmd groups the credential commands
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the MyAnimeList client ID",
	Long: `Manage the stored MyAnimeList API client ID.

The client ID is stored using:
  - System keychain (when available)
  - Encrypted file (fallback)
  - MALHARVEST_CLIENT_ID environment variable (read-only)`,
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the client ID securely",
	Long: `Store the MyAnimeList client ID in the system keychain or an encrypted file.

The ID is read from the terminal without echo, or from stdin when piped.`,
	Example: `  malharvest auth set
  echo "$CLIENT_ID" | malharvest auth set --profile work`,
	Args: cobra.NoArgs,
	RunE: runAuthSet,
}

var authShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored client ID (masked)",
	Args:  cobra.NoArgs,
	RunE:  runAuthShow,
}

var authClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored client ID",
	Args:  cobra.NoArgs,
	RunE:  runAuthClear,
}

var authGuideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Explain how to obtain a client ID",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		auth.ShowClientIDGuide(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd, authShowCmd, authClearCmd, authGuideCmd)
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Fprintf(cmd.OutOrStdout(), "Get a client ID at %s ('malharvest auth guide' for help).\n", auth.ClientIDPage)
		fmt.Fprint(cmd.OutOrStdout(), "Client ID: ")
	}

	clientID, err := readSecret(os.Stdin, interactive)
	if interactive {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	if err != nil {
		return fmt.Errorf("failed to read client ID: %w", err)
	}

	store, err := manager.Store(&auth.Credential{Profile: profile, ClientID: clientID})
	if err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Client ID for profile %q stored in %s", profile, store))
	return nil
}

func runAuthShow(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	cred, err := manager.Retrieve(profile)
	if err != nil {
		return err
	}

	ui.PrintInfo("Profile", cred.Profile)
	ui.PrintInfo("Client ID", auth.Mask(cred.ClientID))
	ui.PrintInfo("Modified", cred.LastModified.Format("2006-01-02 15:04:05"))
	return nil
}

func runAuthClear(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	if err := manager.Delete(profile); err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Client ID for profile %q removed", profile))
	return nil
}

// readSecret reads one line, without echo when stdin is a terminal
func readSecret(in *os.File, interactive bool) (string, error) {
	if interactive {
		secret, err := term.ReadPassword(int(in.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}
	return readLine(in)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
