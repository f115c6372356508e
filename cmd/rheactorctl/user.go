package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/RHeactorJS/rheactor-server/adapters/redis"
	"github.com/RHeactorJS/rheactor-server/core/user"
	"github.com/RHeactorJS/rheactor-server/internal/config"
	"github.com/RHeactorJS/rheactor-server/internal/password"
)

var (
	userCreateEmail     string
	userCreateFirstname string
	userCreateLastname  string
	userCreatePassword  string
	userCreateSuperUser bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

// userCreateCmd writes directly through the repository so the very first
// admin account can be created without an authenticated author.
var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an active user account, e.g. the initial admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		users, closeUsers, err := buildUserRepository(cfg)
		if err != nil {
			return err
		}
		defer closeUsers()

		hash, err := password.Hash(userCreatePassword, cfg.BcryptCost)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		u, err := users.Add(ctx, user.Draft{
			Email:        userCreateEmail,
			Firstname:    userCreateFirstname,
			Lastname:     userCreateLastname,
			PasswordHash: hash,
			IsActive:     true,
		})
		if err != nil {
			return err
		}

		if userCreateSuperUser {
			ev, err := u.GrantSuperUser()
			if err != nil {
				return err
			}
			if u, err = users.ApplyCommand(ctx, u, u.Meta.ID, ev); err != nil {
				return err
			}
		}

		fmt.Printf("created user %d (%s)\n", u.Meta.ID, u.Email)
		return nil
	},
}

func buildUserRepository(cfg config.Config) (*user.Repository, func(), error) {
	client, closeClient, err := redis.ConnectAddr(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)()
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	users := user.NewRepository(
		slog.Default(),
		redis.NewStore(client),
		redis.NewIndex(client),
		redis.NewAllocator(client, "user:ids"),
	)
	return users, closeClient, nil
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)

	userCreateCmd.Flags().StringVar(&userCreateEmail, "email", "", "email address")
	userCreateCmd.Flags().StringVar(&userCreateFirstname, "firstname", "", "first name")
	userCreateCmd.Flags().StringVar(&userCreateLastname, "lastname", "", "last name")
	userCreateCmd.Flags().StringVar(&userCreatePassword, "password", "", "initial password")
	userCreateCmd.Flags().BoolVar(&userCreateSuperUser, "superuser", false, "grant superuser permissions")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("firstname")
	_ = userCreateCmd.MarkFlagRequired("lastname")
	_ = userCreateCmd.MarkFlagRequired("password")
}
