package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

func newProfile(name, company, goal string, tags ...string) *model.Profile {
	p := model.New(name, model.ProspectTypeCompany)
	p.DiscoveryMetadata.DiscoveringCompany = company
	p.DiscoveryMetadata.CompanyGoal = goal
	for _, t := range tags {
		p.AddTag(t)
	}
	return p
}

func TestIndexUpdateMovesBuckets(t *testing.T) {
	t.Parallel()

	x := NewIndex()
	p := newProfile("Acme", "Sells", "find clients", "fintech")
	x.Update(p)

	assert.Contains(t, x.ByStatus["discovered"], p.ID)
	assert.Contains(t, x.ByTags["fintech"], p.ID)

	p.UpdateStatus(model.StatusQualified)
	p.Tags = []string{"saas"}
	x.Update(p)

	assert.NotContains(t, x.ByStatus, "discovered", "empty bucket is pruned")
	assert.Contains(t, x.ByStatus["qualified"], p.ID)
	assert.NotContains(t, x.ByTags, "fintech")
	assert.Contains(t, x.ByTags["saas"], p.ID)
	assert.Equal(t, model.StatusQualified, x.Profiles[p.ID].Status)
}

func TestIndexRemove(t *testing.T) {
	t.Parallel()

	x := NewIndex()
	a := newProfile("A", "Sells", "g", "t1")
	b := newProfile("B", "Sells", "g", "t1")
	x.Update(a)
	x.Update(b)

	assert.True(t, x.Remove(a.ID))
	assert.False(t, x.Remove(a.ID))
	assert.Equal(t, 1, x.Len())
	assert.Equal(t, []string{b.ID}, sortedIDs(x.ByCompany["Sells"]))
	assert.Equal(t, []string{b.ID}, sortedIDs(x.ByTags["t1"]))

	assert.True(t, x.Remove(b.ID))
	for _, bk := range x.buckets() {
		assert.Empty(t, bk)
	}
}

func TestIndexRemoveSweepsOrphanMemberships(t *testing.T) {
	t.Parallel()

	x := NewIndex()
	x.ByTags.add("stale", "ghost")
	assert.False(t, x.Remove("ghost"))
	assert.Empty(t, x.ByTags)
}

func TestIndexSearch(t *testing.T) {
	t.Parallel()

	x := NewIndex()
	a := newProfile("Acme Robotics", "Sells", "find clients", "ai", "hardware")
	b := newProfile("Beta Labs", "Sells", "find investors", "ai")
	c := newProfile("Gamma Corp", "Other Co", "find clients", "retail")
	b.GoalAlignment.RelevanceScore = model.RelevanceHigh
	c.UpdateStatus(model.StatusQualified)
	for _, p := range []*model.Profile{a, b, c} {
		x.Update(p)
	}

	tests := []struct {
		name   string
		filter model.Filter
		want   []string
	}{
		{"no filters returns all", model.Filter{}, []string{a.ID, b.ID, c.ID}},
		{"company", model.Filter{Company: "Sells"}, []string{a.ID, b.ID}},
		{"company and goal intersect", model.Filter{Company: "Sells", Goal: "find clients"}, []string{a.ID}},
		{"status", model.Filter{Status: model.StatusQualified}, []string{c.ID}},
		{"relevance", model.Filter{Relevance: model.RelevanceHigh}, []string{b.ID}},
		{"tags union", model.Filter{Tags: []string{"hardware", "retail"}}, []string{a.ID, c.ID}},
		{"tags then intersect", model.Filter{Tags: []string{"ai"}, Goal: "find investors"}, []string{b.ID}},
		{"name case-insensitive", model.Filter{Name: "acme"}, []string{a.ID}},
		{"name with other filters", model.Filter{Name: "LABS", Company: "Sells"}, []string{b.ID}},
		{"missing company bucket", model.Filter{Company: "Nobody"}, []string{}},
		{"missing bucket does not widen", model.Filter{Goal: "find clients", Status: model.StatusEngaged}, []string{}},
		{"unknown tag", model.Filter{Tags: []string{"nope"}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ElementsMatch(t, tt.want, x.Search(tt.filter))
		})
	}
}

func TestIndexSearchOrdersNewestFirst(t *testing.T) {
	t.Parallel()

	x := NewIndex()
	old := newProfile("Old", "S", "g")
	old.UpdatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	old.CreatedAt = old.UpdatedAt
	fresh := newProfile("Fresh", "S", "g")
	fresh.UpdatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fresh.CreatedAt = fresh.UpdatedAt
	x.Update(old)
	x.Update(fresh)

	assert.Equal(t, []string{fresh.ID, old.ID}, x.Search(model.Filter{}))
	sums := x.Summaries()
	require.Len(t, sums, 2)
	assert.Equal(t, "Fresh", sums[0].Name)
}

func TestIndexJSONRoundTrip(t *testing.T) {
	t.Parallel()

	x := NewIndex()
	p := newProfile("Acme", "Sells", "find clients", "b", "a")
	x.Update(p)

	data, err := json.Marshal(x)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, k := range []string{"profiles", "by_company", "by_goal", "by_status", "by_relevance", "by_tags", "last_updated"} {
		assert.Contains(t, raw, k)
	}

	got, err := decodeIndex(data)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.Profiles[p.ID].ID)
	assert.Equal(t, x.Search(model.Filter{Tags: []string{"a"}}), got.Search(model.Filter{Tags: []string{"a"}}))
	assert.Equal(t, x.Counts(), got.Counts())
}

func TestDecodeIndexFillsMissingMaps(t *testing.T) {
	t.Parallel()

	got, err := decodeIndex([]byte(`{"profiles":{}}`))
	require.NoError(t, err)
	assert.NotNil(t, got.ByTags)
	assert.Empty(t, got.Search(model.Filter{Tags: []string{"x"}}))

	_, err = decodeIndex([]byte(`not json`))
	assert.Error(t, err)
}

func TestIndexCounts(t *testing.T) {
	t.Parallel()

	x := NewIndex()
	x.Update(newProfile("A", "Sells", "g1", "t1", "t2"))
	x.Update(newProfile("B", "Sells", "g2", "t2"))

	c := x.Counts()
	assert.Equal(t, 2, c.Total)
	assert.Equal(t, 2, c.Status["discovered"])
	assert.Equal(t, 2, c.Relevance["Unscored"])
	assert.Equal(t, 2, c.Company["Sells"])
	assert.Equal(t, 1, c.Goal["g1"])
	assert.Equal(t, 2, c.Tags)
}
