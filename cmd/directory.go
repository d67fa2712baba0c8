package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/stratabase/borecore/internal/model"
)

var directoryCmd = &cobra.Command{
	Use:   "directory",
	Short: "Manage the user directory backing role checks",
}

var directoryMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the directory schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		dir, err := initDirectory(ctx)
		if err != nil {
			return err
		}
		defer dir.Close() //nolint:errcheck

		if err := dir.Migrate(ctx); err != nil {
			return eris.Wrap(err, "directory migrate")
		}
		cmd.Println("directory schema up to date")
		return nil
	},
}

var directoryAddUserCmd = &cobra.Command{
	Use:   "add-user <user-id> <name>",
	Short: "Create or update a directory user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		dir, err := initDirectory(ctx)
		if err != nil {
			return err
		}
		defer dir.Close() //nolint:errcheck
		if err := dir.Migrate(ctx); err != nil {
			return err
		}

		role, _ := cmd.Flags().GetString("role")
		email, _ := cmd.Flags().GetString("email")
		u := model.User{UserID: args[0], Name: args[1], Email: email, Role: model.Role(role)}
		if err := dir.UpsertUser(ctx, u); err != nil {
			return eris.Wrap(err, "directory add-user")
		}
		return emitStdout(cmd, u)
	},
}

var directoryUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List users holding a role",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		dir, err := initDirectory(ctx)
		if err != nil {
			return err
		}
		defer dir.Close() //nolint:errcheck
		if err := dir.Migrate(ctx); err != nil {
			return err
		}

		role, _ := cmd.Flags().GetString("role")
		users, err := dir.UsersByRole(ctx, model.Role(role))
		if err != nil {
			return eris.Wrap(err, "directory users")
		}
		return emitStdout(cmd, users)
	},
}

func init() {
	directoryAddUserCmd.Flags().String("role", "", "site_engineer, lab_engineer, approval_engineer or admin")
	directoryAddUserCmd.Flags().String("email", "", "user email")

	directoryUsersCmd.Flags().String("role", string(model.RoleSiteEngineer), "role to list")

	directoryCmd.AddCommand(directoryMigrateCmd)
	directoryCmd.AddCommand(directoryAddUserCmd)
	directoryCmd.AddCommand(directoryUsersCmd)
	rootCmd.AddCommand(directoryCmd)
}
