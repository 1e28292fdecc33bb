package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
	"github.com/gdugdh24/mpit2026-matching/internal/infrastructure/container"
	"github.com/gdugdh24/mpit2026-matching/internal/usecase/matchround"
)

func newCreateRoundCmd(opts *rootOptions) *cobra.Command {
	var (
		activityID int64
		name       string
		at         string
	)
	cmd := &cobra.Command{
		Use:   "create-round",
		Short: "Schedule a match round for an activity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := &matchround.CreateRoundRequest{Name: name}
			if at != "" {
				scheduledAt, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				req.ScheduledAt = &scheduledAt
			}
			return opts.withApp(cmd, func(ctx context.Context, app *container.Container) error {
				round, err := app.MatchRounds.CreateMatchRound(ctx, activityID, req)
				if err != nil {
					return err
				}
				return printJSON(cmd, round)
			})
		},
	}
	cmd.Flags().Int64VarP(&activityID, "activity", "a", 0, "activity id")
	cmd.Flags().StringVarP(&name, "name", "n", "", "round name")
	cmd.Flags().StringVar(&at, "at", "", "scheduled time in RFC3339; defaults to now")
	_ = cmd.MarkFlagRequired("activity")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newRunRoundCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run-round ROUND_ID",
		Short: "Run a scheduled match round now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roundID, err := parseID(args[0], "round id")
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *container.Container) error {
				result, err := app.MatchRounds.RunMatchRound(ctx, roundID)
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	}
}

func newCancelRoundCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel-round ROUND_ID",
		Short: "Cancel a round that has not run yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roundID, err := parseID(args[0], "round id")
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *container.Container) error {
				round, err := app.MatchRounds.CancelMatchRound(ctx, roundID)
				if err != nil {
					return err
				}
				return printJSON(cmd, round)
			})
		},
	}
}

func newListRoundsCmd(opts *rootOptions) *cobra.Command {
	var withMatches bool
	cmd := &cobra.Command{
		Use:   "list-rounds ACTIVITY_ID",
		Short: "List the match rounds of an activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			activityID, err := parseID(args[0], "activity id")
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *container.Container) error {
				rounds, err := app.MatchRounds.GetMatchRounds(ctx, activityID)
				if err != nil {
					return err
				}
				if !withMatches {
					return printJSON(cmd, rounds)
				}

				type roundWithMatches struct {
					Round   *domain.MatchRound `json:"round"`
					Matches []*domain.Match    `json:"matches"`
				}
				out := make([]roundWithMatches, 0, len(rounds))
				for _, r := range rounds {
					matches, err := app.MatchRounds.GetRoundMatches(ctx, r.ID)
					if err != nil {
						return err
					}
					out = append(out, roundWithMatches{Round: r, Matches: matches})
				}
				return printJSON(cmd, out)
			})
		},
	}
	cmd.Flags().BoolVarP(&withMatches, "matches", "m", false, "include the matches of each round")
	return cmd
}
