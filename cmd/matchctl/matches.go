package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gdugdh24/mpit2026-matching/internal/delivery/http/middleware"
	"github.com/gdugdh24/mpit2026-matching/internal/infrastructure/container"
)

func newMatchesCmd(opts *rootOptions) *cobra.Command {
	var mutualOnly bool
	cmd := &cobra.Command{
		Use:   "matches PROFILE_ID",
		Short: "Show the matches of a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profileID, err := parseID(args[0], "profile id")
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *container.Container) error {
				get := app.Votes.GetMatchesForProfile
				if mutualOnly {
					get = app.Votes.GetMutualMatchesForProfile
				}
				views, err := get(ctx, profileID, 0, 0)
				if err != nil {
					return err
				}
				return printJSON(cmd, views)
			})
		},
	}
	cmd.Flags().BoolVar(&mutualOnly, "mutual", false, "only mutual matches")
	return cmd
}

// newTokenCmd issues an API token for a profile, for local testing of the
// vote endpoints.
func newTokenCmd(opts *rootOptions) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token PROFILE_ID",
		Short: "Issue an API access token for a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profileID, err := parseID(args[0], "profile id")
			if err != nil {
				return err
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			token, err := middleware.NewAuthMiddleware(cfg.JWT.AccessSecret).IssueToken(profileID, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
