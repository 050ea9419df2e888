// Package main provides admin management utilities for TeamTrack.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"teamtrack/internal/config"
	"teamtrack/internal/database"
	"teamtrack/internal/models"
	"teamtrack/internal/policy"
	"teamtrack/internal/repository"
	"teamtrack/internal/service"

	"github.com/spf13/cobra"
)

// operator is the actor used for changes made from this CLI.
var operator = policy.Actor{ID: "cli", Role: models.RoleAdmin}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "admin",
		Short:        "Manage TeamTrack users from the command line",
		SilenceUsage: true,
	}
	cmd.AddCommand(promoteCmd(), listCmd(), resetPasswordCmd())
	return cmd
}

func userService(ctx context.Context) (*service.UserService, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return service.NewUserService(repository.NewUserRepository(db), repository.NewTeamRepository(db), nil), nil
}

func promoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <id> <role>",
		Short: "Set a user's role (admin, leader or member)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := models.ParseRole(args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			svc, err := userService(ctx)
			if err != nil {
				return err
			}
			user, err := svc.ChangeRole(ctx, operator, args[0], role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now %s\n", user.ID, user.Name, user.Role)
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := userService(ctx)
			if err != nil {
				return err
			}

			var users []models.User
			if role != "" {
				r, err := models.ParseRole(role)
				if err != nil {
					return err
				}
				users, err = svc.ListByRole(ctx, r)
				if err != nil {
					return err
				}
			} else if users, err = svc.ListUsers(ctx); err != nil {
				return err
			}

			return printUsers(cmd, users)
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "Only list users with this role")
	return cmd
}

func printUsers(cmd *cobra.Command, users []models.User) error {
	if len(users) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No users found")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLE\tTEAM")
	for _, u := range users {
		team := "-"
		if u.TeamID != nil {
			team = fmt.Sprintf("%d", *u.TeamID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Role, team)
	}
	return w.Flush()
}

func resetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <id>",
		Short: "Issue a temporary password and require a change at next login",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := userService(ctx)
			if err != nil {
				return err
			}
			temp, err := svc.IssueTempPassword(ctx, operator, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Temporary password for %s: %s\n", args[0], temp)
			return nil
		},
	}
}
