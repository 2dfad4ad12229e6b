package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/702ron/product-api-site-sub000/app/models"
	"github.com/702ron/product-api-site-sub000/app/repository"
)

var errEmailTaken = errors.New("email already registered")

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Create users and manage API keys",
	}
	cmd.AddCommand(usersCreateCmd())
	cmd.AddCommand(usersListCmd())
	cmd.AddCommand(usersIssueKeyCmd())
	cmd.AddCommand(usersRevokeKeyCmd())
	return cmd
}

// createUser inserts an active user and issues its first API key.
func createUser(ctx context.Context, users repository.UserRepository, name, email string, admin bool) (*models.User, string, error) {
	user := &models.User{
		Name:   name,
		Email:  email,
		Role:   models.ROLE_USER,
		Status: models.STATUS_ACTIVE,
	}
	if admin {
		user.Role = models.ROLE_ADMIN
	}
	if err := user.Validate(); err != nil {
		return nil, "", err
	}

	existing, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, "", fmt.Errorf("%w: %s (user %d)", errEmailTaken, email, existing.ID)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, "", fmt.Errorf("failed to check email: %w", err)
	}

	if err := users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}
	key, err := user.IssueAPIKey()
	if err != nil {
		return nil, "", err
	}
	if err := users.SaveAPIKey(ctx, user); err != nil {
		return nil, "", err
	}
	return user, key, nil
}

// revokeKey clears the user's API key. It fails when no key is set.
func revokeKey(ctx context.Context, users repository.UserRepository, userID uint) (*models.User, error) {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, err)
	}
	if !user.HasActiveAPIKey() {
		return nil, fmt.Errorf("user %d has no API key", userID)
	}
	user.RevokeAPIKey()
	if err := users.SaveAPIKey(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func listUsers(ctx context.Context, w io.Writer, users repository.UserRepository, offset, limit int) error {
	list, err := users.List(ctx, offset, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tSTATUS\tCREDITS\tAPI KEY")
	for _, u := range list {
		key := "-"
		if u.HasActiveAPIKey() {
			key = u.APIKeyPrefix + "..."
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n", u.ID, u.Name, u.Email, u.Role, u.Status, u.Credits, key)
	}
	return tw.Flush()
}

func usersCreateCmd() *cobra.Command {
	var admin bool

	cmd := &cobra.Command{
		Use:   "create NAME EMAIL",
		Short: "Create a user and print its first API key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openServices()
			if err != nil {
				return err
			}
			defer closeFn()

			user, key, err := createUser(cmd.Context(), svc.Repos.User, args[0], args[1], admin)
			if err != nil {
				return err
			}
			fmt.Printf("Created user %d (%s)\nAPI key: %s\n", user.ID, user.Email, key)
			return nil
		},
	}

	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	return cmd
}

func usersListCmd() *cobra.Command {
	var offset, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users with their balance and key status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeFn, err := openServices()
			if err != nil {
				return err
			}
			defer closeFn()

			return listUsers(cmd.Context(), os.Stdout, svc.Repos.User, offset, limit)
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many users")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of users")
	return cmd
}

func usersIssueKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue-key USER_ID",
		Short: "Replace a user's API key; the old key stops working immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			svc, closeFn, err := openServices()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			user, err := svc.Repos.User.GetByID(ctx, userID)
			if err != nil {
				return fmt.Errorf("user %d: %w", userID, err)
			}
			key, err := user.IssueAPIKey()
			if err != nil {
				return err
			}
			if err := svc.Repos.User.SaveAPIKey(ctx, user); err != nil {
				return err
			}
			fmt.Printf("API key for user %d: %s\n", user.ID, key)
			return nil
		},
	}
}

func usersRevokeKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke-key USER_ID",
		Short: "Revoke a user's API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserID(args[0])
			if err != nil {
				return err
			}

			svc, closeFn, err := openServices()
			if err != nil {
				return err
			}
			defer closeFn()

			user, err := revokeKey(cmd.Context(), svc.Repos.User, userID)
			if err != nil {
				return err
			}
			fmt.Printf("Revoked API key of user %d\n", user.ID)
			return nil
		},
	}
}

func parseUserID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return uint(id), nil
}
