package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/prospect-cli/internal/discovery"
	"github.com/sells-group/prospect-cli/internal/model"
)

var discoverFlags struct {
	companyFile string
	company     model.CompanyProfile
	goal        string
	target      int
	report      string
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find prospects for a company goal",
	Long:  "Analyzes the company and goal, researches candidates, qualifies the best ones and saves them as profiles.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("discover"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		company, err := discoverCompany()
		if err != nil {
			return err
		}

		env, err := initDiscovery(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close() //nolint:errcheck

		res, err := env.Engine.Run(ctx, discovery.Request{
			Company:     company,
			Goal:        discoverFlags.goal,
			TargetCount: discoverFlags.target,
		})
		env.Researcher.Usage().LogCost(cfg.Anthropic.Model, "discover")
		if err != nil {
			return eris.Wrap(err, "discover")
		}

		formatDiscovery(os.Stdout, res)

		if discoverFlags.report != "" {
			if err := os.WriteFile(discoverFlags.report, []byte(discovery.Markdown(res)), 0o644); err != nil {
				return eris.Wrap(err, "write report")
			}
			zap.L().Info("report written", zap.String("path", discoverFlags.report))
		}
		return nil
	},
}

// discoverCompany merges the optional company file with flags; flags win.
func discoverCompany() (model.CompanyProfile, error) {
	var c model.CompanyProfile
	if discoverFlags.companyFile != "" {
		data, err := os.ReadFile(discoverFlags.companyFile)
		if err != nil {
			return c, eris.Wrap(err, "read company file")
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, eris.Wrap(err, "parse company file")
		}
	}
	f := discoverFlags.company
	override(&c.Name, f.Name)
	override(&c.Description, f.Description)
	override(&c.Industry, f.Industry)
	override(&c.TargetCustomers, f.TargetCustomers)
	override(&c.ValueProposition, f.ValueProposition)
	override(&c.Size, f.Size)
	override(&c.Stage, f.Stage)
	override(&c.Location, f.Location)
	override(&c.BudgetRange, f.BudgetRange)
	return c, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// formatDiscovery writes a run summary and the saved prospects to w.
func formatDiscovery(out io.Writer, res *discovery.Result) {
	s := res.Session
	_, _ = fmt.Fprintf(out, "Session %s: %s, %d of %d prospects saved\n\n", s.ID, s.Status, s.ProspectsFound, s.TargetCount)
	if len(res.Prospects) == 0 {
		_, _ = fmt.Fprintln(out, "No prospects found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tNAME\tRELEVANCE\tQUALIFIED\tWEBSITE")
	for i, p := range res.Prospects {
		rel := string(model.RelevanceUnscored)
		if p.Alignment != nil {
			rel = string(p.Alignment.RelevanceScore)
		}
		qualified := "no"
		if p.Qualified {
			qualified = "yes"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, truncate(p.Name, 40), rel, qualified, p.Website)
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	f := discoverCmd.Flags()
	f.StringVar(&discoverFlags.companyFile, "company-file", "", "YAML file describing the company")
	f.StringVar(&discoverFlags.company.Name, "company", "", "company name")
	f.StringVar(&discoverFlags.company.Description, "description", "", "what the company does")
	f.StringVar(&discoverFlags.company.Industry, "industry", "", "company industry")
	f.StringVar(&discoverFlags.company.TargetCustomers, "target-customers", "", "who the company sells to")
	f.StringVar(&discoverFlags.company.ValueProposition, "value-prop", "", "value proposition")
	f.StringVar(&discoverFlags.company.Size, "size", "", "company size")
	f.StringVar(&discoverFlags.company.Stage, "stage", "", "company stage")
	f.StringVar(&discoverFlags.company.Location, "location", "", "company location")
	f.StringVar(&discoverFlags.company.BudgetRange, "budget", "", "budget range")
	f.StringVar(&discoverFlags.goal, "goal", "", "what the prospects are for (required)")
	f.IntVar(&discoverFlags.target, "target", 0, "number of prospects to save (default from config)")
	f.StringVar(&discoverFlags.report, "report", "", "write a markdown report to this path")
	_ = discoverCmd.MarkFlagRequired("goal")
	rootCmd.AddCommand(discoverCmd)
}
