package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/classhub/trustgate/internal/tasks"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Maintenance tasks of a running server (ADMIN)",
}

var tasksListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Show schedule and last result of every task",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		list, correlation, err := cli.ListTasks(cmd.Context())
		if err != nil {
			return logError(err, correlation, "listing tasks failed")
		}
		if len(list) == 0 {
			fmt.Println(faint("no maintenance tasks registered"))
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Task", "Every", "Last Run", "Next Run", "Result"})
		for _, st := range list {
			t.AppendRow(table.Row{bold(st.Name), every(st), lastRun(st), nextRun(st), result(st)})
		}
		applyTableFormat(t)
		t.Render()
		return nil
	},
}

var tasksTriggerCmd = &cobra.Command{
	Use:   "trigger NAME",
	Short: "Run a task now instead of waiting for its interval",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		log.Debug().Str("task", args[0]).Msg("triggering task")
		if correlation, err := cli.TriggerTask(cmd.Context(), args[0]); err != nil {
			return logError(err, correlation, "triggering task failed")
		}
		logSuccess("%s started, follow it with %s", bold(args[0]), cyan("trustgate tasks logs "+args[0]))
		return nil
	},
}

var tasksLogsCmd = &cobra.Command{
	Use:   "logs NAME",
	Short: "Print the log lines captured during the last run of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		entries, correlation, err := cli.GetTaskLogs(cmd.Context(), args[0])
		if err != nil {
			return logError(err, correlation, "fetching task logs failed")
		}
		if len(entries) == 0 {
			fmt.Println(faint("task has not logged anything yet"))
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s %s %s\n", faint(e.Time.Local().Format(time.TimeOnly)), levelTag(e.Level), e.Message)
		}
		return nil
	},
}

func every(st tasks.TaskStatus) string {
	if st.Interval <= 0 {
		return faint("manual")
	}
	return st.Interval.String()
}

func lastRun(st tasks.TaskStatus) string {
	switch {
	case st.Running:
		return color.BlueString("running")
	case st.LastRun.IsZero():
		return faint("never")
	}
	return time.Since(st.LastRun).Round(time.Second).String() + " ago"
}

func nextRun(st tasks.TaskStatus) string {
	if st.NextRun.IsZero() {
		return "-"
	}
	d := time.Until(st.NextRun).Round(time.Second)
	if d <= 0 {
		return "due"
	}
	return "in " + d.String()
}

func result(st tasks.TaskStatus) string {
	switch st.LastResult {
	case "":
		return "-"
	case "success":
		return greenCheck + " success"
	}
	return redCross + " " + st.LastResult
}

func levelTag(level string) string {
	switch level {
	case "error", "fatal", "panic":
		return color.RedString("ERR")
	case "warn":
		return color.YellowString("WRN")
	case "info":
		return color.GreenString("INF")
	case "debug", "trace":
		return faint("DBG")
	}
	return level
}

func init() {
	tasksCmd.AddCommand(tasksListCmd, tasksTriggerCmd, tasksLogsCmd)
	rootCmd.AddCommand(tasksCmd)
}
