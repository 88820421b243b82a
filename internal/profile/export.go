package profile

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
)

// ExportColumns is the fixed column order of tabular exports.
var ExportColumns = []string{
	"profile_id", "name", "prospect_type", "business_description", "industry",
	"location", "company_size", "status", "relevance_score", "email", "phone",
	"linkedin", "website", "company_goal", "discovering_company",
	"created_at", "updated_at",
}

const exportSheet = "Prospects"

var cellCleaner = strings.NewReplacer(",", " ", "\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

// exportRow flattens p into ExportColumns order.
func exportRow(p *model.Profile) []string {
	row := []string{
		p.ID,
		p.Name,
		string(p.ProspectType),
		p.BusinessDescription,
		p.Industry,
		p.Location,
		p.CompanySize,
		string(p.Status),
		string(p.GoalAlignment.RelevanceScore),
		model.Deref(p.ContactInfo.Email),
		model.Deref(p.ContactInfo.Phone),
		model.Deref(p.ContactInfo.LinkedIn),
		model.Deref(p.ContactInfo.Website),
		p.DiscoveryMetadata.CompanyGoal,
		p.DiscoveryMetadata.DiscoveringCompany,
		p.CreatedAt.Format(time.RFC3339),
		p.UpdatedAt.Format(time.RFC3339),
	}
	for i, v := range row {
		row[i] = cellCleaner.Replace(v)
	}
	return row
}

// exportRows loads every indexed profile, newest first.
func (m *Manager) exportRows(ctx context.Context) ([][]string, error) {
	profiles, err := m.Search(ctx, model.Filter{})
	if err != nil {
		return nil, err
	}
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, exportRow(p))
	}
	return rows, nil
}

// ExportCSV writes every profile as CSV with a header row. It returns the
// number of profiles written.
func (m *Manager) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	rows, err := m.exportRows(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "profile: export csv")
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return 0, eris.Wrap(err, "profile: write csv header")
	}
	if err := cw.WriteAll(rows); err != nil {
		return 0, eris.Wrap(err, "profile: write csv rows")
	}
	m.log.Info("profiles exported", zap.String("format", "csv"), zap.Int("rows", len(rows)))
	return len(rows), nil
}

// ExportXLSX writes every profile to a single-sheet workbook at path.
func (m *Manager) ExportXLSX(ctx context.Context, path string) (int, error) {
	rows, err := m.exportRows(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "profile: export xlsx")
	}
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(exportSheet)
	if err != nil {
		return 0, eris.Wrap(err, "profile: add sheet")
	}
	for _, r := range append([][]string{ExportColumns}, rows...) {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	if err := f.Save(path); err != nil {
		return 0, eris.Wrapf(err, "profile: save %s", path)
	}
	m.log.Info("profiles exported", zap.String("format", "xlsx"), zap.String("path", path), zap.Int("rows", len(rows)))
	return len(rows), nil
}
