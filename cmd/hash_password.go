package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/classhub/trustgate/internal/directory"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password PASSWORD",
	Short: "Print the bcrypt hash of a password for the static directory",
	Example: `  trustgate hash-password 's3cret'
  echo -n 's3cret' | trustgate hash-password -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := argOrStdin(args[0])
		if err != nil {
			return err
		}
		hash, err := directory.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}
