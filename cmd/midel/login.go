package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/slowvak/midel/internal/auth"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login <github-username>",
	Short: "Log in as a contributor",
	Long: `Log in as a contributor so submissions can be opened.

This is a mock: the username is checked against a built-in contributor list
after a short simulated delay. Nothing is verified with GitHub. Set
MIDEL_LOGIN_DELAY (e.g. 0s) to change the delay.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

// SessionResponse reports the login state.
type SessionResponse struct {
	Status    string `json:"status"`
	Username  string `json:"username,omitempty"`
	CanSubmit bool   `json:"can_submit"`
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := newAuthenticator()
	sess, err := a.Login(ctx, args[0])
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrEmptyUsername):
		exitWithError(ExitError, "%v", err)
	case errors.Is(err, auth.ErrNotAllowed):
		logger.Warn("login rejected", zap.String("username", args[0]))
		exitWithError(ExitAuthError, "%v", err)
	default:
		exitWithError(ExitError, "login: %v", err)
	}

	if humanOutput {
		outputHuman("Logged in as %s\n", sess.Username)
		return nil
	}
	outputJSON(SessionResponse{Status: "logged_in", Username: sess.Username, CanSubmit: sess.CanSubmit()})
	return nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the contributor session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newAuthenticator().Logout(); err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			outputHuman("Logged out\n")
			return nil
		}
		outputJSON(SessionResponse{Status: "logged_out"})
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current contributor session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newAuthenticator().Current()
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		resp := SessionResponse{Status: "logged_out"}
		if sess.Username != "" {
			resp = SessionResponse{Status: "logged_in", Username: sess.Username, CanSubmit: sess.CanSubmit()}
		}
		if humanOutput {
			if resp.Username == "" {
				outputHuman("Not logged in\n")
			} else {
				outputHuman("Logged in as %s\n", resp.Username)
			}
			return nil
		}
		outputJSON(resp)
		return nil
	},
}
