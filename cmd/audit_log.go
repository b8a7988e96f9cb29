package cmd

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/classhub/trustgate/pkg/client"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail of a running server (ADMIN)",
}

var auditLogOpts client.ListAuditsOpts

var auditLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Retrieve and display audit log entries",
	Example: `  # Last failed logins of a user
  trustgate audit log --action auth.login --username alice

  # Everything that happened within one request
  trustgate audit log --correlation-id cv1h2...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Fetching audit log...")
		audits, correlation, err := cli.ListAudits(cmd.Context(), auditLogOpts)
		if err != nil {
			return logError(err, correlation, "failed to fetch audit log")
		}
		log.Debug().Msgf("Retrieved %d audit entries", len(audits))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"Time", "Action", "Subject", "Source", "Granted", "Reason", "Correlation",
		})

		for _, e := range audits {
			sub := e.Subject
			if sub == "" {
				sub = faint(truncate(e.Username, 35))
			}
			t.AppendRow(table.Row{
				e.Time.Format(time.RFC3339),
				e.Action,
				truncate(sub, 35),
				e.SourceIP,
				yesNo(e.Granted),
				e.Reason,
				faint(e.ID),
			})
		}

		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditLogCmd)

	flags := auditLogCmd.Flags()
	flags.UintVarP(&auditLogOpts.Limit, "limit", "n", 25, "Number of audit entries to retrieve")
	flags.StringVar(&auditLogOpts.CorrelationID, "correlation-id", "", "Filter by correlation ID")
	flags.StringVar(&auditLogOpts.Subject, "subject", "", "Filter by verified subject")
	flags.StringVar(&auditLogOpts.Username, "username", "", "Filter by supplied username")
	flags.StringVar(&auditLogOpts.Action, "action", "", "Filter by action (e.g. auth.login)")
	flags.StringVar(&auditLogOpts.Fingerprint, "fingerprint", "", "Filter by token fingerprint (see 'trustgate fingerprint')")
}
