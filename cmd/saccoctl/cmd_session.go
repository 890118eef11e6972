package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sacco/internal/session"
)

var (
	sessionAccess  string
	sessionRefresh string
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage the stored backend session tokens",
}

var sessionSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store a new access and refresh token pair",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		access := strings.TrimSpace(sessionAccess)
		refresh := strings.TrimSpace(sessionRefresh)
		if access == "" && refresh == "" {
			return errors.New("provide --access and/or --refresh")
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.store.Set(ctx, session.Session{AccessToken: access, RefreshToken: refresh}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "session stored")
			return nil
		})
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove both stored tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.store.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "session cleared")
			return nil
		})
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show which tokens are stored, masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			s, err := a.store.Get(ctx)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), map[string]string{
				"backend":       a.cfg.SessionBackend,
				"access_token":  mask(s.AccessToken),
				"refresh_token": mask(s.RefreshToken),
			})
		})
	},
}

func init() {
	sessionSetCmd.Flags().StringVar(&sessionAccess, "access", "", "access token")
	sessionSetCmd.Flags().StringVar(&sessionRefresh, "refresh", "", "refresh token")
	sessionCmd.AddCommand(sessionSetCmd, sessionClearCmd, sessionShowCmd)
}

// mask keeps the last four characters of a token.
func mask(token string) string {
	switch {
	case token == "":
		return "(none)"
	case len(token) <= 4:
		return "****"
	}
	return "****" + token[len(token)-4:]
}
