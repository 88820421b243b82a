package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/crmsync"
	"github.com/sells-group/prospect-cli/internal/discovery"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/profile"
	"github.com/sells-group/prospect-cli/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Store: config.StoreConfig{
			Dir:       filepath.Join(dir, "profiles"),
			BackupDir: filepath.Join(dir, "backups"),
			ExportDir: filepath.Join(dir, "exports"),
		},
		Sessions: config.SessionsConfig{Driver: "sqlite", DatabaseURL: filepath.Join(dir, "sessions.db")},
	}
}

func TestFormatSummaries(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	sums := []model.Summary{
		{
			ID:             "abc12345-6789-0000-0000-000000000000",
			Name:           "Acme Robotics",
			ProspectType:   model.ProspectTypeCompany,
			Status:         model.StatusQualified,
			RelevanceScore: model.RelevanceHigh,
			UpdatedAt:      now,
		},
	}

	var buf bytes.Buffer
	formatSummaries(&buf, sums)

	out := buf.String()
	assert.Contains(t, out, "RELEVANCE")
	assert.Contains(t, out, "abc12345")
	assert.NotContains(t, out, "abc12345-6789")
	assert.Contains(t, out, "Acme Robotics")
	assert.Contains(t, out, "qualified")
	assert.Contains(t, out, "High")
	assert.Contains(t, out, "2025-06-15 10:30")
}

func TestFormatSessionsList(t *testing.T) {
	sessions := []model.Session{{
		ID:             "01J0000000000000000000000A",
		CompanyName:    "Sells Group",
		Goal:           "find logistics clients",
		Status:         model.SessionCompleted,
		Progress:       100,
		ProspectsFound: 4,
		TargetCount:    5,
		StartedAt:      time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC),
	}}

	var buf bytes.Buffer
	formatSessionsList(&buf, sessions)

	out := buf.String()
	assert.Contains(t, out, "01J0000000000000000000000A")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "100%")
	assert.Contains(t, out, "4/5")
}

func TestFormatDiscovery(t *testing.T) {
	res := &discovery.Result{
		Session: &model.Session{ID: "s1", Status: model.SessionCompleted, ProspectsFound: 1, TargetCount: 2},
		Prospects: []model.Draft{
			{Name: "Acme Robotics", Website: "acme.example", Qualified: true,
				Alignment: &model.GoalAlignment{RelevanceScore: model.RelevanceHigh}},
			{Name: "Beta Forklifts"},
		},
	}

	var buf bytes.Buffer
	formatDiscovery(&buf, res)

	out := buf.String()
	assert.Contains(t, out, "Session s1: completed, 1 of 2 prospects saved")
	assert.Contains(t, out, "acme.example")
	assert.Contains(t, out, "yes")
	assert.Contains(t, out, "Unscored")

	buf.Reset()
	res.Prospects = nil
	formatDiscovery(&buf, res)
	assert.Contains(t, buf.String(), "No prospects found.")
}

func TestFormatSyncResult(t *testing.T) {
	var buf bytes.Buffer
	formatSyncResult(&buf, "notion", &crmsync.Result{Total: 3, Created: 1, Updated: 1, Failed: 1})
	assert.Equal(t, "notion: 3 profiles, 1 created, 1 updated, 1 failed, 0 skipped\n", buf.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééééééé...", truncate("éééééééééééé", 10))
}

func TestExportPath(t *testing.T) {
	ts := time.Date(2025, 6, 15, 10, 30, 5, 0, time.UTC)
	assert.Equal(t, filepath.Join("exports", "prospects_20250615_103005.xlsx"), exportPath("exports", "xlsx", ts))
}

func TestWriteProfile(t *testing.T) {
	p := model.New("Acme Robotics", model.ProspectTypeCompany)

	var buf bytes.Buffer
	require.NoError(t, writeProfile(&buf, p, "yaml"))
	assert.Contains(t, buf.String(), "name: Acme Robotics")
	assert.Contains(t, buf.String(), "prospect_type: company")

	buf.Reset()
	require.NoError(t, writeProfile(&buf, p, "json"))
	assert.Contains(t, buf.String(), `"name": "Acme Robotics"`)

	assert.Error(t, writeProfile(&buf, p, "xml"))
}

func TestFilterFromFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	addFilterFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--status", "qualified", "--relevance", "High", "--tag", "a,b", "--name", "acme"}))

	f, err := filterFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, model.StatusQualified, f.Status)
	assert.Equal(t, model.RelevanceHigh, f.Relevance)
	assert.Equal(t, []string{"a", "b"}, f.Tags)
	assert.Equal(t, "acme", f.Name)

	bad := &cobra.Command{Use: "x"}
	addFilterFlags(bad)
	require.NoError(t, bad.Flags().Parse([]string{"--status", "sleeping"}))
	_, err = filterFromFlags(bad)
	assert.Error(t, err)
}

func TestDiscoverCompany_FileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "company.yaml")
	require.NoError(t, os.WriteFile(path, []byte("company_name: Sells Group\ncompany_description: Warehouse consulting\nindustry: Logistics\nlocation: Austin\n"), 0o644))

	saved := discoverFlags
	t.Cleanup(func() { discoverFlags = saved })
	discoverFlags.companyFile = path
	discoverFlags.company = model.CompanyProfile{Location: "Dallas"}

	c, err := discoverCompany()
	require.NoError(t, err)
	assert.Equal(t, "Sells Group", c.Name)
	assert.Equal(t, "Logistics", c.Industry)
	assert.Equal(t, "Dallas", c.Location)
}

func TestFormatConsistency(t *testing.T) {
	var buf bytes.Buffer
	formatConsistency(&buf, &store.Consistency{Indexed: 2, Documents: 2})
	assert.Contains(t, buf.String(), "OK")

	buf.Reset()
	formatConsistency(&buf, &store.Consistency{Indexed: 2, Documents: 1, Dangling: []string{"p1"}})
	assert.Contains(t, buf.String(), "Indexed without document: p1")
	assert.NotContains(t, buf.String(), "OK")
}

func TestOpenProfilesAndStats(t *testing.T) {
	ctx := context.Background()
	c := testConfig(t)

	pm, err := openProfiles(ctx, c)
	require.NoError(t, err)
	_, err = pm.Create(ctx, profile.NewProfile{Name: "Acme Inc", Company: "Sells Group", Goal: "find clients"})
	require.NoError(t, err)

	a, err := pm.Analytics(ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	formatStats(&buf, a)
	out := buf.String()
	assert.Contains(t, out, "Total profiles: 1")
	assert.Contains(t, out, "discovered")
	assert.Contains(t, out, "Sells Group")
}

func TestOpenSessions(t *testing.T) {
	ctx := context.Background()
	c := testConfig(t)

	ss, err := openSessions(ctx, c)
	require.NoError(t, err)
	defer ss.Close() //nolint:errcheck

	list, err := ss.ListSessions(ctx, store.SessionFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	c.Sessions.Driver = "mysql"
	_, err = openSessions(ctx, c)
	assert.ErrorContains(t, err, "unsupported sessions driver")
}
