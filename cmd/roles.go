package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List and change the roles of a user",
	Long: `Manages role assignments through the public API.
Assigning or revoking a role is subject to role governance: ADMIN may grant any
role, TEACHER may grant TEACHER, ASSISTANT and STUDENT, ASSISTANT may grant
ASSISTANT and STUDENT.`,
}

var rolesListCmd = &cobra.Command{
	Use:     "list USER",
	Aliases: []string{"ls"},
	Short:   "List the roles of a user",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		roles, correlation, err := cli.ListRoles(cmd.Context(), args[0])
		if err != nil {
			return logError(err, correlation, "failed to list roles")
		}
		if len(roles) == 0 {
			fmt.Println(faint("(no roles)"))
			return nil
		}
		fmt.Println(strings.Join(roles, "\n"))
		return nil
	},
}

var rolesAssignCmd = &cobra.Command{
	Use:   "assign USER ROLE",
	Short: "Assign a role to a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		if correlation, err := cli.AssignRole(cmd.Context(), args[0], args[1]); err != nil {
			return logError(err, correlation, "failed to assign role")
		}
		logSuccess("assigned %s to %s", bold(args[1]), bold(args[0]))
		return nil
	},
}

var rolesRevokeCmd = &cobra.Command{
	Use:   "revoke USER ROLE",
	Short: "Revoke a role from a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		if correlation, err := cli.RevokeRole(cmd.Context(), args[0], args[1]); err != nil {
			return logError(err, correlation, "failed to revoke role")
		}
		logSuccess("revoked %s from %s", bold(args[1]), bold(args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rolesCmd)
	rolesCmd.AddCommand(rolesListCmd, rolesAssignCmd, rolesRevokeCmd)
}
