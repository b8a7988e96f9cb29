package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/classhub/trustgate/internal/audit"
)

var fingerprintCmd = &cobra.Command{
	Use:     "fingerprint [token]",
	Aliases: []string{"fp"},
	Short:   `Calculate the fingerprint of a token`,
	Long: `Calculates the fingerprint of a token as stored in the audit log's
'token_fingerprint' field, so that audit entries of a token can be found
without ever storing the token itself.`,
	Example: `  trustgate fingerprint eyJhbGciOi...

  # read the token from stdin
  echo "eyJhbGciOi..." | trustgate fingerprint -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tok, err := argOrStdin(args[0])
		if err != nil {
			return err
		}
		fmt.Println(audit.Fingerprint(tok))
		return nil
	},
}

// argOrStdin returns arg, or the trimmed contents of stdin when arg is "-".
func argOrStdin(arg string) (string, error) {
	value := arg
	if arg == "-" {
		log.Debug().Msg("Reading value from stdin")
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		value = strings.TrimSpace(string(data))
	}
	if value == "" {
		return "", fmt.Errorf("value cannot be empty")
	}
	return value, nil
}

func init() {
	rootCmd.AddCommand(fingerprintCmd)
}
