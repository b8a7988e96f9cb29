package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/classhub/trustgate/internal/core"
)

var tokenValidateCmd = &cobra.Command{
	Use:   "validate TOKEN",
	Short: "Verify a token with the configured signing keys",
	Long: `Verifies signature, issuer and expiry of a token with the keys of the service
configuration. Revocation is not checked, use 'trustgate why' against a running
server for the full decision.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := argOrStdin(args[0])
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

		claims, err := codec.Parse(raw)
		if err != nil {
			fmt.Printf("%s token is %s: %s\n", redCross, bold(red("invalid")), core.PublicMessage(err))
			return BeQuietError{}
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendRows([]table.Row{
			{"Subject", bold(claims.Subject)},
			{"Roles", claims.Roles.CSV()},
			{"Expires", formatNumericDate(claims.ExpiresAt)},
		})
		applyTableFormat(t)
		t.Render()
		fmt.Printf("%s token is %s\n", greenCheck, bold(green("valid")))
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenValidateCmd)
	f.bindConfigFlag(tokenValidateCmd.Flags())
}
