package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect discovery sessions",
}

// -- sessions list --

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovery sessions, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		ss, err := openSessions(ctx, cfg)
		if err != nil {
			return err
		}
		defer ss.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		sessions, err := ss.ListSessions(ctx, store.SessionFilter{
			Status: model.SessionStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "sessions list")
		}
		if len(sessions) == 0 {
			fmt.Fprintln(os.Stderr, "No sessions found.")
			return nil
		}
		formatSessionsList(os.Stdout, sessions)
		return nil
	},
}

// -- sessions show --

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a session with its activity log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ss, err := openSessions(ctx, cfg)
		if err != nil {
			return err
		}
		defer ss.Close() //nolint:errcheck

		sess, err := ss.GetSession(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "sessions show")
		}
		if sess == nil {
			return eris.Errorf("session %s not found", args[0])
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(sess)
	},
}

// formatSessionsList writes a tabular list of sessions to w.
func formatSessionsList(out io.Writer, sessions []model.Session) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMPANY\tGOAL\tSTATUS\tPROGRESS\tFOUND\tSTARTED")
	for _, s := range sessions {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d%%\t%d/%d\t%s\n",
			s.ID,
			truncate(s.CompanyName, 30),
			truncate(s.Goal, 30),
			s.Status,
			s.Progress,
			s.ProspectsFound,
			s.TargetCount,
			s.StartedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func init() {
	sessionsListCmd.Flags().String("status", "", "filter by status (initializing, running, completed, error)")
	sessionsListCmd.Flags().Int("limit", 20, "max number of sessions to display")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd)
	rootCmd.AddCommand(sessionsCmd)
}
