package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/profile"
	"github.com/sells-group/prospect-cli/internal/store"
)

// -- profiles stats --

var profilesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show profile counts by status, relevance, company and goal",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		pm, err := openProfiles(ctx, cfg)
		if err != nil {
			return err
		}
		a, err := pm.Analytics(ctx)
		if err != nil {
			return eris.Wrap(err, "profiles stats")
		}
		formatStats(os.Stdout, a)
		return nil
	},
}

// -- profiles backup / restore --

var profilesBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write every profile and the index to a backup archive",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		pm, err := openProfiles(ctx, cfg)
		if err != nil {
			return err
		}
		path, err := pm.Backup(ctx)
		if err != nil {
			return eris.Wrap(err, "profiles backup")
		}
		_, _ = fmt.Fprintf(os.Stdout, "Backed up %d profiles to %s\n", pm.Count(), path)
		return nil
	},
}

var profilesRestoreCmd = &cobra.Command{
	Use:   "restore <archive>",
	Short: "Restore profiles from a backup archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pm, err := openProfiles(ctx, cfg)
		if err != nil {
			return err
		}
		n, err := pm.Restore(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "profiles restore")
		}
		_, _ = fmt.Fprintf(os.Stdout, "Restored %d profiles\n", n)
		return nil
	},
}

// -- profiles export / import --

var profilesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export profiles to CSV or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = exportPath(cfg.Store.ExportDir, format, time.Now())
		}

		pm, err := openProfiles(ctx, cfg)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return eris.Wrap(err, "profiles export")
		}

		var n int
		switch format {
		case "csv":
			f, err := os.Create(out)
			if err != nil {
				return eris.Wrap(err, "profiles export")
			}
			n, err = pm.ExportCSV(ctx, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return eris.Wrap(err, "profiles export")
			}
		case "xlsx":
			if n, err = pm.ExportXLSX(ctx, out); err != nil {
				return eris.Wrap(err, "profiles export")
			}
		default:
			return eris.Errorf("unknown export format %q (csv, xlsx)", format)
		}
		_, _ = fmt.Fprintf(os.Stdout, "Exported %d profiles to %s\n", n, out)
		return nil
	},
}

var profilesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Create profiles from a CSV or XLSX file",
	Long:  "Reads a table with a header row. A name column is required; type, status, industry, location, website, email, phone, description and tags are optional.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		company, _ := cmd.Flags().GetString("company")
		goal, _ := cmd.Flags().GetString("goal")

		rows, err := profile.ReadTable(args[0])
		if err != nil {
			return err
		}
		pm, err := openProfiles(ctx, cfg)
		if err != nil {
			return err
		}
		res, err := pm.Import(ctx, rows, company, goal)
		if err != nil {
			return eris.Wrap(err, "profiles import")
		}
		_, _ = fmt.Fprintf(os.Stdout, "Imported %d profiles (%d rows skipped)\n", res.Created, res.Skipped)
		return nil
	},
}

// -- profiles verify / reindex --

var profilesVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the index matches the documents on disk",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		pm, err := openProfiles(ctx, cfg)
		if err != nil {
			return err
		}
		c, err := pm.Verify(ctx)
		if err != nil {
			return eris.Wrap(err, "profiles verify")
		}
		formatConsistency(os.Stdout, c)
		if !c.OK() {
			return eris.New("index and documents disagree; run profiles reindex")
		}
		return nil
	},
}

var profilesReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the index from the documents on disk",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		pm, err := openProfiles(ctx, cfg)
		if err != nil {
			return err
		}
		n, err := pm.Reindex(ctx)
		if err != nil {
			return eris.Wrap(err, "profiles reindex")
		}
		_, _ = fmt.Fprintf(os.Stdout, "Indexed %d profiles\n", n)
		return nil
	},
}

func exportPath(dir, format string, ts time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("prospects_%s.%s", ts.Format("20060102_150405"), format))
}

// formatStats writes store statistics and engagement metrics to w.
func formatStats(out io.Writer, a *profile.Analytics) {
	s := a.Stats
	_, _ = fmt.Fprintf(out, "Total profiles: %d\n", s.TotalProfiles)
	_, _ = fmt.Fprintf(out, "Storage:        %s\n", s.StorageLocation)
	if !s.LastUpdated.IsZero() {
		_, _ = fmt.Fprintf(out, "Last updated:   %s\n", s.LastUpdated.Format("2006-01-02 15:04"))
	}
	if s.LastBackup != nil {
		_, _ = fmt.Fprintf(out, "Last backup:    %s\n", s.LastBackup.Format("2006-01-02 15:04"))
	}

	e := a.Engagement
	_, _ = fmt.Fprintf(out, "\nContacted: %d  Converted: %d  High relevance: %d  Conversion: %.1f%%\n",
		e.Contacted, e.Converted, e.HighRelevance, e.ConversionRate)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, sec := range []struct {
		title string
		b     store.Breakdown
	}{
		{"STATUS", s.StatusBreakdown},
		{"RELEVANCE", s.RelevanceBreakdown},
		{"COMPANY", s.CompanyBreakdown},
		{"GOAL", s.GoalBreakdown},
	} {
		if len(sec.b) == 0 {
			continue
		}
		_, _ = fmt.Fprintf(w, "\n%s\tCOUNT\n", sec.title)
		keys := make([]string, 0, len(sec.b))
		for k := range sec.b {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			_, _ = fmt.Fprintf(w, "%s\t%d\n", truncate(k, 50), sec.b[k])
		}
	}
	_ = w.Flush()
}

// formatConsistency writes a verify report to w.
func formatConsistency(out io.Writer, c *store.Consistency) {
	_, _ = fmt.Fprintf(out, "Indexed: %d  Documents: %d\n", c.Indexed, c.Documents)
	if c.OK() {
		_, _ = fmt.Fprintln(out, "OK")
		return
	}
	for _, l := range []struct {
		label string
		ids   []string
	}{
		{"Indexed without document", c.Dangling},
		{"Document not indexed", c.Unindexed},
		{"Unreadable document", c.Unreadable},
	} {
		if len(l.ids) > 0 {
			_, _ = fmt.Fprintf(out, "%s: %s\n", l.label, strings.Join(l.ids, ", "))
		}
	}
}

func init() {
	profilesExportCmd.Flags().String("format", "csv", "export format (csv, xlsx)")
	profilesExportCmd.Flags().String("out", "", "output file (default: <export_dir>/prospects_<timestamp>.<format>)")

	profilesImportCmd.Flags().String("company", "", "discovering company recorded on imported profiles")
	profilesImportCmd.Flags().String("goal", "", "goal recorded on imported profiles")

	profilesCmd.AddCommand(
		profilesStatsCmd,
		profilesBackupCmd,
		profilesRestoreCmd,
		profilesExportCmd,
		profilesImportCmd,
		profilesVerifyCmd,
		profilesReindexCmd,
	)
}
