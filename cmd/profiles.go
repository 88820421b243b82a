package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/profile"
)

var profilesCmd = &cobra.Command{
	Use:     "profiles",
	Aliases: []string{"p"},
	Short:   "Manage stored prospect profiles",
}

// -- profiles list --

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		pm, err := openProfiles(ctx, cfg)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		sums, err := pm.List(ctx, limit, offset)
		if err != nil {
			return eris.Wrap(err, "profiles list")
		}
		if len(sums) == 0 {
			fmt.Fprintln(os.Stderr, "No profiles found.")
			return nil
		}
		formatSummaries(os.Stdout, sums)
		_, _ = fmt.Fprintf(os.Stdout, "\n%d of %d profiles\n", len(sums), pm.Count())
		return nil
	},
}

// -- profiles search --

var profilesSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search profiles by company, goal, status, relevance, tags or name",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		f, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}
		pm, err := openProfiles(ctx, cfg)
		if err != nil {
			return err
		}
		sums, err := pm.SearchSummaries(ctx, f)
		if err != nil {
			return eris.Wrap(err, "profiles search")
		}
		if len(sums) == 0 {
			fmt.Fprintln(os.Stderr, "No matching profiles.")
			return nil
		}
		formatSummaries(os.Stdout, sums)
		return nil
	},
}

// -- profiles show --

var profilesShowCmd = &cobra.Command{
	Use:   "show <profile-id>",
	Short: "Show a full profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pm, err := openProfiles(ctx, cfg)
		if err != nil {
			return err
		}
		p, err := pm.Get(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "profiles show")
		}
		if p == nil {
			return eris.Errorf("profile %s not found", args[0])
		}
		format, _ := cmd.Flags().GetString("format")
		return writeProfile(os.Stdout, p, format)
	},
}

// -- profiles create --

var profilesCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a profile by hand",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		fl := cmd.Flags()
		typ, _ := fl.GetString("type")
		company, _ := fl.GetString("company")
		goal, _ := fl.GetString("goal")
		tags, _ := fl.GetStringSlice("tag")

		in := profile.NewProfile{
			Name:    args[0],
			Type:    model.ProspectType(typ),
			Company: company,
			Goal:    goal,
			Tags:    tags,
		}
		for flag, dst := range map[string]**string{
			"description": &in.Details.BusinessDescription,
			"industry":    &in.Details.Industry,
			"location":    &in.Details.Location,
			"website":     &in.Details.Website,
			"email":       &in.Details.Email,
			"phone":       &in.Details.Phone,
		} {
			if fl.Changed(flag) {
				v, _ := fl.GetString(flag)
				*dst = &v
			}
		}

		pm, err := openProfiles(ctx, cfg)
		if err != nil {
			return err
		}
		p, err := pm.Create(ctx, in)
		if err != nil {
			return eris.Wrap(err, "profiles create")
		}
		_, _ = fmt.Fprintln(os.Stdout, p.ID)
		return nil
	},
}

// -- profiles delete --

var profilesDeleteCmd = &cobra.Command{
	Use:   "delete <profile-id>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pm, err := openProfiles(ctx, cfg)
		if err != nil {
			return err
		}
		ok, err := pm.Delete(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "profiles delete")
		}
		if !ok {
			return eris.Errorf("profile %s not found", args[0])
		}
		_, _ = fmt.Fprintf(os.Stdout, "Deleted %s\n", args[0])
		return nil
	},
}

// -- profiles status --

var profilesStatusCmd = &cobra.Command{
	Use:   "status <profile-id> <status>",
	Short: "Move a profile to a new status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := model.ParseStatus(args[1])
		if err != nil {
			return err
		}
		return mutateAndReport(cmd, args[0], func(pm *profile.Manager) (*model.Profile, error) {
			return pm.UpdateStatus(cmd.Context(), args[0], status)
		})
	},
}

// -- profiles note --

var profilesNoteCmd = &cobra.Command{
	Use:   "note <profile-id> <text>",
	Short: "Add a note to a profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		return mutateAndReport(cmd, args[0], func(pm *profile.Manager) (*model.Profile, error) {
			return pm.AddNote(cmd.Context(), args[0], args[1], category)
		})
	},
}

// -- profiles tag --

var profilesTagCmd = &cobra.Command{
	Use:   "tag <profile-id> <tag>",
	Short: "Tag a profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag := strings.TrimSpace(args[1])
		if tag == "" {
			return eris.New("tag must not be empty")
		}
		return mutateAndReport(cmd, args[0], func(pm *profile.Manager) (*model.Profile, error) {
			return pm.AddTag(cmd.Context(), args[0], tag)
		})
	},
}

// -- profiles interact --

var profilesInteractCmd = &cobra.Command{
	Use:   "interact <profile-id> <content>",
	Short: "Record an interaction with a prospect",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		outcome, _ := cmd.Flags().GetString("outcome")
		return mutateAndReport(cmd, args[0], func(pm *profile.Manager) (*model.Profile, error) {
			return pm.AddInteraction(cmd.Context(), args[0], typ, args[1], outcome)
		})
	},
}

// mutateAndReport opens the store, applies fn and prints the new version.
func mutateAndReport(cmd *cobra.Command, id string, fn func(pm *profile.Manager) (*model.Profile, error)) error {
	pm, err := openProfiles(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	p, err := fn(pm)
	if err != nil {
		return eris.Wrapf(err, "profiles %s", cmd.Name())
	}
	_, _ = fmt.Fprintf(os.Stdout, "%s updated (version %d)\n", id, p.Version)
	return nil
}

// filterFromFlags reads the shared search flags.
func filterFromFlags(cmd *cobra.Command) (model.Filter, error) {
	fl := cmd.Flags()
	var f model.Filter
	f.Company, _ = fl.GetString("company")
	f.Goal, _ = fl.GetString("goal")
	f.Name, _ = fl.GetString("name")
	f.Tags, _ = fl.GetStringSlice("tag")
	if s, _ := fl.GetString("status"); s != "" {
		st, err := model.ParseStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = st
	}
	if s, _ := fl.GetString("relevance"); s != "" {
		r, err := model.ParseRelevance(s)
		if err != nil {
			return f, err
		}
		f.Relevance = r
	}
	return f, nil
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("company", "", "discovering company")
	cmd.Flags().String("goal", "", "discovery goal")
	cmd.Flags().String("status", "", "profile status (discovered, qualified, contacted, ...)")
	cmd.Flags().String("relevance", "", "relevance score (High, Medium, Low, Unscored)")
	cmd.Flags().StringSlice("tag", nil, "match any of these tags")
	cmd.Flags().String("name", "", "case-insensitive name substring")
}

// formatSummaries writes a tabular list of profile summaries to w.
func formatSummaries(out io.Writer, sums []model.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tTYPE\tSTATUS\tRELEVANCE\tUPDATED")
	for _, s := range sums {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(s.ID),
			truncate(s.Name, 40),
			s.ProspectType,
			s.Status,
			s.RelevanceScore,
			s.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// writeProfile renders p as indented JSON or YAML.
func writeProfile(out io.Writer, p *model.Profile, format string) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case "yaml":
		// Round-trip through JSON so YAML keys match the document format.
		data, err := json.Marshal(p)
		if err != nil {
			return eris.Wrap(err, "encode profile")
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return eris.Wrap(err, "encode profile")
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return eris.Wrap(err, "encode profile")
		}
		return enc.Close()
	default:
		return eris.Errorf("unknown format %q (json, yaml)", format)
	}
}

func init() {
	profilesListCmd.Flags().Int("limit", 50, "max number of profiles to display")
	profilesListCmd.Flags().Int("offset", 0, "skip this many profiles")

	addFilterFlags(profilesSearchCmd)

	profilesShowCmd.Flags().String("format", "json", "output format (json, yaml)")

	fl := profilesCreateCmd.Flags()
	fl.String("type", "", "prospect type (company, individual, investor, partner, client, ...)")
	fl.String("company", "", "discovering company")
	fl.String("goal", "", "discovery goal")
	fl.StringSlice("tag", nil, "tags to add")
	fl.String("description", "", "business description")
	fl.String("industry", "", "industry")
	fl.String("location", "", "location")
	fl.String("website", "", "website")
	fl.String("email", "", "email")
	fl.String("phone", "", "phone")

	profilesNoteCmd.Flags().String("category", "general", "note category")

	profilesInteractCmd.Flags().String("type", "email", "interaction type (email, call, meeting, ...)")
	profilesInteractCmd.Flags().String("outcome", "", "interaction outcome")

	profilesCmd.AddCommand(
		profilesListCmd,
		profilesSearchCmd,
		profilesShowCmd,
		profilesCreateCmd,
		profilesDeleteCmd,
		profilesStatusCmd,
		profilesNoteCmd,
		profilesTagCmd,
		profilesInteractCmd,
	)
	rootCmd.AddCommand(profilesCmd)
}
