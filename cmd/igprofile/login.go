package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igprofile/pkg/auth"
	"igprofile/pkg/logger"
)

var loginHeadful bool

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in through a browser and store the session",
	Long: `Drives a headless browser through the login form and stores
the resulting session cookies in the system keychain (with encrypted
file fallback). The password is read from IGPROFILE_IG_PASSWORD or
prompted interactively.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().BoolVar(&loginHeadful, "headful", false, "show the browser window (needed for 2FA challenges)")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	username := strings.TrimSpace(args[0])

	password := cfg.Instagram.Password
	if password == "" {
		password, err = promptPassword(username)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := auth.DefaultLoginOptions()
	opts.Headless = !loginHeadful

	session, err := auth.Login(ctx, username, password, opts, log)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	manager, err := auth.NewManager(cfg.Instagram.CookieFile)
	if err != nil {
		return err
	}
	if err := manager.Store(session); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	fmt.Printf("Session stored for %s\n", session.Username)
	return nil
}

// promptPassword reads the password without echoing it
func promptPassword(username string) (string, error) {
	fmt.Printf("Password for %s: ", username)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	password := strings.TrimSpace(string(raw))
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	return password, nil
}
