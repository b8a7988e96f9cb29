package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/classhub/trustgate/internal/core"
)

var (
	issueSubject string
	issueRoles   []string
)

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Sign an access token locally",
	Long: `Signs an access token with the configured active key without a directory
lookup. Meant for development and service tests; the token is printed to stdout.`,
	Example: `  trustgate token issue -c trustgate.yaml --subject alice --role TEACHER`,
	RunE: func(cmd *cobra.Command, args []string) error {
		roles, err := core.ParseRoles(issueRoles)
		if err != nil {
			return err
		}
		cfg, err := f.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		codec, err := BuildKeys(cfg, nil)
		if err != nil {
			return err
		}

		issued, err := codec.Issue(issueSubject, roles)
		if err != nil {
			return fmt.Errorf("issuing token: %w", err)
		}
		log.Info().Str("sub", issueSubject).Str("jti", issued.Claims.ID).
			Time("exp", issued.ExpiresAt()).Msg("issued token")
		fmt.Println(issued.Value)
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenIssueCmd)

	f.bindConfigFlag(tokenIssueCmd.Flags())
	tokenIssueCmd.Flags().StringVar(&issueSubject, "subject", "", "Subject (username) of the token")
	tokenIssueCmd.Flags().StringSliceVar(&issueRoles, "role", []string{core.RoleStudent}, "Role to include (repeatable)")

	_ = tokenIssueCmd.MarkFlagRequired("subject")
}
