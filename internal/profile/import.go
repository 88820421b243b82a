package profile

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
)

// ImportResult counts the outcome of an import.
type ImportResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	IDs     []string `json:"profile_ids"`
}

// ReadTable reads a .csv or .xlsx file into rows. The first row is the header.
func ReadTable(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(path)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "profile: open %s", path)
		}
		defer f.Close()
		return readCSV(f)
	default:
		return nil, eris.Errorf("profile: unsupported import format %q", filepath.Ext(path))
	}
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "profile: read csv")
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "profile: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("profile: %s has no sheets", path)
	}
	sheet := f.Sheets[0]
	if s, ok := f.Sheet[exportSheet]; ok {
		sheet = s
	}
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// Import creates profiles from a table using the export column names.
// Rows without a name, or whose profile_id is already stored, are skipped.
// company and goal fill discovery metadata when the row leaves them empty.
func (m *Manager) Import(ctx context.Context, rows [][]string, company, goal string) (*ImportResult, error) {
	res := &ImportResult{IDs: []string{}}
	if len(rows) == 0 {
		return res, nil
	}
	col := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["name"]; !ok {
		return nil, eris.New("profile: import table has no name column")
	}

	for n, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "profile: import")
		}
		get := func(key string) string {
			if i, ok := col[key]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		if id := get("profile_id"); id != "" {
			if _, exists := m.store.Summary(id); exists {
				res.Skipped++
				continue
			}
		}
		in, err := importRow(get, company, goal)
		if err != nil {
			m.log.Warn("skipping import row", zap.Int("row", n+2), zap.Error(err))
			res.Skipped++
			continue
		}
		p, err := m.Create(ctx, in)
		if err != nil {
			m.log.Warn("skipping import row", zap.Int("row", n+2), zap.Error(err))
			res.Skipped++
			continue
		}
		res.Created++
		res.IDs = append(res.IDs, p.ID)
	}
	m.log.Info("profiles imported", zap.Int("created", res.Created), zap.Int("skipped", res.Skipped))
	return res, nil
}

func importRow(get func(string) string, company, goal string) (NewProfile, error) {
	name := get("name")
	if name == "" {
		return NewProfile{}, eris.New("profile: row has no name")
	}
	in := NewProfile{
		Name:    name,
		Type:    model.ProspectTypeOther,
		Company: firstNonEmpty(get("discovering_company"), company),
		Goal:    firstNonEmpty(get("company_goal"), goal),
		Tags:    []string{"imported"},
	}
	if s := get("status"); s != "" {
		st, err := model.ParseStatus(strings.ToLower(s))
		if err != nil {
			return NewProfile{}, err
		}
		in.Status = st
	}
	if t := get("prospect_type"); t != "" {
		pt, err := model.ParseProspectType(strings.ToLower(t))
		if err != nil {
			return NewProfile{}, err
		}
		in.Type = pt
	}
	opt := func(key string) *string {
		if v := get(key); v != "" {
			return &v
		}
		return nil
	}
	in.Details = Details{
		BusinessDescription: opt("business_description"),
		Industry:            opt("industry"),
		Location:            opt("location"),
		CompanySize:         opt("company_size"),
		Email:               opt("email"),
		Phone:               opt("phone"),
		LinkedIn:            opt("linkedin"),
		Website:             opt("website"),
	}
	if r := get("relevance_score"); r != "" {
		rel, err := model.ParseRelevance(r)
		if err != nil {
			return NewProfile{}, err
		}
		in.Details.RelevanceScore = &rel
	}
	return in, nil
}
