package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/classhub/trustgate/internal/token"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Work with access tokens offline",
}

var tokenInspectDump bool

var tokenInspectCmd = &cobra.Command{
	Use:   "inspect TOKEN",
	Short: "Decode a token without verifying it",
	Long: `Decodes the header and claims of a token. The signature is NOT checked,
use 'trustgate token validate' for that.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := argOrStdin(args[0])
		if err != nil {
			return err
		}

		var claims token.Claims
		parsed, _, err := jwt.NewParser().ParseUnverified(raw, &claims)
		if err != nil {
			return fmt.Errorf("decoding token: %w", err)
		}

		if tokenInspectDump {
			spew.Dump(parsed.Header, claims)
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Field", "Value"})
		t.AppendRows([]table.Row{
			{"alg", parsed.Header["alg"]},
			{"kid", parsed.Header["kid"]},
			{"sub", claims.Subject},
			{"roles", claims.Roles.CSV()},
			{"iss", claims.Issuer},
			{"jti", claims.ID},
			{"iat", formatNumericDate(claims.IssuedAt)},
			{"exp", formatNumericDate(claims.ExpiresAt)},
		})
		applyTableFormat(t)
		t.Render()

		if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
			fmt.Printf("%s token expired %s ago\n", redCross, time.Since(claims.ExpiresAt.Time).Round(time.Second))
		}
		return nil
	},
}

func formatNumericDate(d *jwt.NumericDate) string {
	if d == nil {
		return faint("(unset)")
	}
	return d.Local().Format(time.RFC3339)
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenInspectCmd)

	tokenInspectCmd.Flags().BoolVar(&tokenInspectDump, "dump", false, "Dump the raw decoded structures")
}
