package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/classhub/trustgate/internal/api"
	"github.com/classhub/trustgate/internal/buildinfo"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print version information, and the issuer settings when a server is given",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		local := buildinfo.Get()
		printKV("cli", fmt.Sprintf("%s (%s, %s)", local.Version, orDash(local.Commit), local.GoVersion))

		addr, err := f.ServerAddr()
		if err != nil {
			// no server configured, local info only
			return nil
		}
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		about, correlation, err := cli.Info(cmd.Context())
		if err != nil {
			return logError(err, correlation, "server did not answer")
		}
		printAbout(addr, about)
		return nil
	},
}

func printAbout(addr string, about *api.About) {
	printKV("server", addr)
	printKV("version", fmt.Sprintf("%s (%s, %s)", about.Version, orDash(about.Commit), about.GoVersion))
	printKV("issuer", orDash(about.Issuer))
	printKV("signing key", about.KeyID)
	printKV("access ttl", about.AccessTTL)
}

func printKV(key, value string) {
	fmt.Printf("%-12s %s\n", faint(key), value)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
