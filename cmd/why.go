package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/classhub/trustgate/internal/api"
	"github.com/classhub/trustgate/internal/service"
)

var (
	whyToken  string
	whyMethod string
	whyPath   string
)

var whyCmd = &cobra.Command{
	Use:   "why",
	Short: "Explain why a request with a token is allowed or denied",
	Long: `Asks the server to verify a token and evaluate its route rules for a request.
Useful for debugging why a specific token is rejected or matches the wrong rule.

Note: This command requires a trustgate server to be running and reachable.
Also note that you need to be authenticated as ADMIN to use this command.`,
	Example: `  # Why is my token denied on the grades endpoint?
  trustgate why --token <token> --method POST --path /api/v1/grades`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		exp, correlation, err := cli.Explain(cmd.Context(), api.ExplainPayload{
			Token:  whyToken,
			Method: whyMethod,
			Path:   whyPath,
		})
		if err != nil {
			return logError(err, correlation, "failed to explain request")
		}

		printExplanation(exp)
		return nil
	},
}

func printExplanation(exp *service.Explanation) {
	fmt.Printf("\n%s for %s %s\n", bold("Access Decision"), strings.ToUpper(whyMethod), bold(whyPath))
	fmt.Println(faint("---------------------------------------------------"))

	if exp.TokenError != "" {
		fmt.Printf("%s Token: %s\n", redCross, exp.TokenError)
	} else if exp.Principal != nil {
		fmt.Printf("%s Token: subject %s with roles %s\n",
			greenCheck, bold(exp.Principal.Subject), exp.Principal.Roles)
	}

	if exp.MatchedRule != "" {
		fmt.Printf("  Rule: %s\n", cyan(exp.MatchedRule))
	}
	fmt.Printf("  %s %s\n", faint("↳"), exp.Reason)

	fmt.Println(faint("---------------------------------------------------"))
	if exp.Allowed {
		fmt.Printf("Decision: %s\n\n", bold(green("allowed")))
	} else {
		fmt.Printf("Decision: %s\n\n", bold(red("denied")))
	}
}

func init() {
	rootCmd.AddCommand(whyCmd)

	whyCmd.Flags().StringVarP(&whyToken, "token", "t", "", "Token to explain")
	whyCmd.Flags().StringVarP(&whyMethod, "method", "X", "GET", "HTTP method of the simulated request")
	whyCmd.Flags().StringVar(&whyPath, "path", "/", "Path of the simulated request")

	_ = whyCmd.MarkFlagRequired("token")
}
