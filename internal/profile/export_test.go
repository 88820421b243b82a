package profile

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

func TestExportCSV(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	desc := "Builds robots,\nships fast"
	email := "ops@acme.example"

	_, err := m.Create(ctx, NewProfile{
		Name:    "Acme",
		Company: "Beta",
		Goal:    "find clients",
		Details: Details{BusinessDescription: &desc, Email: &email},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := m.ExportCSV(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ExportColumns, rows[0])

	row := map[string]string{}
	for i, c := range ExportColumns {
		row[c] = rows[1][i]
	}
	assert.Equal(t, "Acme", row["name"])
	assert.Equal(t, "Builds robots  ships fast", row["business_description"])
	assert.Equal(t, email, row["email"])
	assert.Equal(t, "Beta", row["discovering_company"])
	assert.Equal(t, "discovered", row["status"])
}

func TestExportCSVEmptyStore(t *testing.T) {
	var buf bytes.Buffer
	n, err := newTestManager(t).ExportCSV(context.Background(), &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, strings.Join(ExportColumns, ",")+"\n", buf.String())
}

func TestExportXLSXImportRoundTrip(t *testing.T) {
	src := newTestManager(t)
	ctx := context.Background()
	web := "https://acme.example"
	_, err := src.Create(ctx, NewProfile{
		Name:    "Acme",
		Type:    model.ProspectTypeCompany,
		Status:  model.StatusEngaged,
		Company: "Beta",
		Goal:    "find clients",
		Details: Details{Website: &web},
	})
	require.NoError(t, err)
	mustCreate(t, src, "Globex", "Beta", "find clients")

	path := filepath.Join(t.TempDir(), "prospects.xlsx")
	n, err := src.ExportXLSX(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := ReadTable(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ExportColumns, rows[0])

	dst := newTestManager(t)
	res, err := dst.Import(ctx, rows, "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Zero(t, res.Skipped)

	engaged, err := dst.Search(ctx, model.Filter{Status: model.StatusEngaged})
	require.NoError(t, err)
	require.Len(t, engaged, 1)
	assert.Equal(t, "Acme", engaged[0].Name)
	assert.Equal(t, model.ProspectTypeCompany, engaged[0].ProspectType)
	assert.Equal(t, web, model.Deref(engaged[0].ContactInfo.Website))
	assert.True(t, engaged[0].HasTag("imported"))
	assert.Equal(t, "Beta", engaged[0].DiscoveryMetadata.DiscoveringCompany)
}

func TestImportSkipsKnownAndInvalidRows(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	existing := mustCreate(t, m, "Acme", "Beta", "grow")

	path := filepath.Join(t.TempDir(), "in.csv")
	body := "profile_id,name,status,prospect_type\n" +
		existing.ID + ",Acme,discovered,company\n" +
		",,discovered,company\n" +
		",Initech,lost,company\n" +
		",Hooli,Qualified,client\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	rows, err := ReadTable(path)
	require.NoError(t, err)
	res, err := m.Import(ctx, rows, "Beta", "grow")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 3, res.Skipped)

	p, err := m.Get(ctx, res.IDs[0])
	require.NoError(t, err)
	assert.Equal(t, "Hooli", p.Name)
	assert.Equal(t, model.StatusQualified, p.Status)
	assert.Equal(t, "grow", p.DiscoveryMetadata.CompanyGoal)
}

func TestImportRejectsTables(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Import(context.Background(), [][]string{{"company", "email"}}, "", "")
	assert.ErrorContains(t, err, "no name column")

	_, err = ReadTable("prospects.json")
	assert.ErrorContains(t, err, "unsupported import format")
}
