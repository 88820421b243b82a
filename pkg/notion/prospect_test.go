package notion

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleProspect() Prospect {
	return Prospect{
		ProfileID:    "prof-1",
		Name:         "Acme Robotics",
		Type:         "company",
		Status:       "qualified",
		Relevance:    "High",
		Industry:     "Robotics",
		Location:     "Austin, TX",
		Goal:         "find clients",
		DiscoveredBy: "Sells Group",
		Website:      "acme.example",
		Email:        "hello@acme.example",
		Phone:        "+1 555 0100",
		Tags:         []string{"goal:find_clients", "industry:robotics, automation"},
		UpdatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestProspect_Properties(t *testing.T) {
	props := sampleProspect().Properties()

	title, ok := props[PropName].(notionapi.TitleProperty)
	require.True(t, ok)
	assert.Equal(t, "Acme Robotics", title.Title[0].Text.Content)

	status, ok := props[PropStatus].(notionapi.SelectProperty)
	require.True(t, ok)
	assert.Equal(t, "qualified", status.Select.Name)

	site, ok := props[PropWebsite].(notionapi.URLProperty)
	require.True(t, ok)
	assert.Equal(t, "https://acme.example", site.URL)

	tags, ok := props[PropTags].(notionapi.MultiSelectProperty)
	require.True(t, ok)
	require.Len(t, tags.MultiSelect, 2)
	assert.Equal(t, "industry:robotics  automation", tags.MultiSelect[1].Name)

	assert.Contains(t, props, PropEmail)
	assert.Contains(t, props, PropPhone)
	assert.Contains(t, props, PropUpdated)
	assert.NotContains(t, props, PropDescription)
}

func TestProspect_PropertiesOmitsEmpty(t *testing.T) {
	props := Prospect{ProfileID: "p", Name: "Solo"}.Properties()
	assert.Len(t, props, 2)
}

func TestRichTextTruncates(t *testing.T) {
	rt := richText(strings.Repeat("é", maxRichText+10))
	assert.Equal(t, maxRichText, len([]rune(rt[0].Text.Content)))
}

func TestNormalizeURL(t *testing.T) {
	assert.Empty(t, normalizeURL("  "))
	assert.Equal(t, "https://acme.example", normalizeURL("acme.example"))
	assert.Equal(t, "http://acme.example", normalizeURL("http://acme.example"))
}

func TestUpsertProspect_Create(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db", mock.Anything).Return(&notionapi.DatabaseQueryResponse{}, nil).Once()
	mc.On("CreatePage", ctx, mock.MatchedBy(func(req *notionapi.PageCreateRequest) bool {
		return req.Parent.DatabaseID == "db" && req.Properties[PropProfileID] != nil
	})).Return(&notionapi.Page{ID: "new-page"}, nil).Once()

	id, created, err := UpsertProspect(ctx, mc, "db", "", sampleProspect())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "new-page", id)
	mc.AssertExpectations(t)
}

func TestUpsertProspect_UpdatesFoundPage(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db", mock.Anything).
		Return(&notionapi.DatabaseQueryResponse{Results: []notionapi.Page{{ID: "existing"}}}, nil).Once()
	mc.On("UpdatePage", ctx, "existing", mock.AnythingOfType("*notionapi.PageUpdateRequest")).
		Return(&notionapi.Page{ID: "existing"}, nil).Once()

	id, created, err := UpsertProspect(ctx, mc, "db", "", sampleProspect())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "existing", id)
	mc.AssertExpectations(t)
}

func TestUpsertProspect_KnownPageSkipsLookup(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("UpdatePage", ctx, "known", mock.Anything).Return(nil, assert.AnError).Once()

	_, _, err := UpsertProspect(ctx, mc, "db", "known", sampleProspect())
	assert.ErrorContains(t, err, "update prospect prof-1")
	mc.AssertNotCalled(t, "QueryDatabase", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpsertProspect_RequiresIdentity(t *testing.T) {
	_, _, err := UpsertProspect(context.Background(), new(MockClient), "db", "", Prospect{Name: "x"})
	assert.Error(t, err)
}
