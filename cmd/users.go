package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/classhub/trustgate/internal/db"
	"github.com/classhub/trustgate/internal/directory"
	"github.com/classhub/trustgate/internal/roles"
)

var (
	userPassword string
	userRoles    []string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage accounts of the SQL directory",
	Long:  `Creates and deletes accounts directly in the database configured by database.dsn.`,
}

var usersAddCmd = &cobra.Command{
	Use:   "add USERNAME",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if userPassword == "" {
			return fmt.Errorf("--password is required")
		}
		dir, closeDB, err := openSQLDirectory(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		if err := dir.CreateUser(cmd.Context(), args[0], userPassword, userRoles...); err != nil {
			return fmt.Errorf("creating user: %w", err)
		}
		logSuccess("created %s with roles %v", bold(args[0]), userRoles)
		return nil
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete USERNAME",
	Short: "Soft-delete an account; its tokens keep working until they expire",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, closeDB, err := openSQLDirectory(cmd)
		if err != nil {
			return err
		}
		defer closeDB()

		if err := dir.DeleteUser(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("deleting user: %w", err)
		}
		logSuccess("deleted %s", bold(args[0]))
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, closeDB, err := openSQLDirectory(cmd)
		if err != nil {
			return err
		}
		closeDB()
		logSuccess("database schema is up to date")
		return nil
	},
}

func openSQLDirectory(cmd *cobra.Command) (*directory.SQLDirectory, func(), error) {
	cfg, err := f.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	d, err := db.Open(cmd.Context(), cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(cmd.Context(), d); err != nil {
		_ = d.Close()
		return nil, nil, err
	}
	return directory.NewSQLDirectory(d, roles.NewSQLStore(d)), func() { _ = d.Close() }, nil
}

func init() {
	rootCmd.AddCommand(usersCmd, migrateCmd)
	usersCmd.AddCommand(usersAddCmd, usersDeleteCmd)

	f.bindConfigFlag(usersCmd.PersistentFlags())
	f.bindConfigFlag(migrateCmd.Flags())
	usersAddCmd.Flags().StringVarP(&userPassword, "password", "p", "", "Password of the new account")
	usersAddCmd.Flags().StringSliceVar(&userRoles, "role", nil, "Role to assign (repeatable)")
}
