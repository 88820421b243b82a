package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/crmsync"
	"github.com/sells-group/prospect-cli/pkg/notion"
	"github.com/sells-group/prospect-cli/pkg/salesforce"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push profiles to a CRM",
	Long:  "Pushes profiles matching the filter flags to Notion or Salesforce and records the external ids on the profiles.",
}

var syncNotionCmd = &cobra.Command{
	Use:   "notion",
	Short: "Upsert profiles into the Notion prospect database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("sync-notion"); err != nil {
			return err
		}
		rps, _ := cmd.Flags().GetFloat64("rate-limit")
		client := notion.NewClient(cfg.Notion.Token, notion.WithRateLimit(rps))
		return runSync(cmd, crmsync.NewNotionSink(client, cfg.Notion.ProspectDB))
	},
}

var syncSalesforceCmd = &cobra.Command{
	Use:   "salesforce",
	Short: "Create or update Salesforce Leads from profiles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("sync-salesforce"); err != nil {
			return err
		}
		rps, _ := cmd.Flags().GetFloat64("rate-limit")
		client, err := salesforce.Dial(salesforce.Creds{
			LoginURL: cfg.Salesforce.LoginURL,
			Username: cfg.Salesforce.Username,
			ClientID: cfg.Salesforce.ClientID,
			KeyPath:  cfg.Salesforce.KeyPath,
		}, salesforce.WithRateLimit(rps))
		if err != nil {
			return err
		}
		return runSync(cmd, crmsync.NewSalesforceSink(client))
	},
}

func runSync(cmd *cobra.Command, sink crmsync.Sink) error {
	ctx := cmd.Context()
	f, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	pm, err := openProfiles(ctx, cfg)
	if err != nil {
		return err
	}
	res, err := crmsync.New(pm, sink, crmsync.Options{
		DryRun: dryRun,
		Guard:  newGuard(cfg.Research),
	}).Sync(ctx, f)
	if err != nil {
		return eris.Wrapf(err, "sync %s", sink.Name())
	}
	formatSyncResult(os.Stdout, sink.Name(), res)
	if res.Failed > 0 {
		return eris.Errorf("%d of %d profiles failed to sync", res.Failed, res.Total)
	}
	return nil
}

func formatSyncResult(out io.Writer, sink string, r *crmsync.Result) {
	_, _ = fmt.Fprintf(out, "%s: %d profiles, %d created, %d updated, %d failed, %d skipped\n",
		sink, r.Total, r.Created, r.Updated, r.Failed, r.Skipped)
}

func init() {
	for _, c := range []*cobra.Command{syncNotionCmd, syncSalesforceCmd} {
		addFilterFlags(c)
		c.Flags().Bool("dry-run", false, "log what would be pushed without calling the CRM")
		syncCmd.AddCommand(c)
	}
	syncNotionCmd.Flags().Float64("rate-limit", 3, "Notion requests per second")
	syncSalesforceCmd.Flags().Float64("rate-limit", 5, "Salesforce requests per second")
	rootCmd.AddCommand(syncCmd)
}
