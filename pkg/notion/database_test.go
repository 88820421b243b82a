package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestQueryAll_SinglePage(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-1", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{{ID: "p1"}, {ID: "p2"}},
		}, nil).Once()

	pages, err := QueryAll(ctx, mc, "db-1", nil)
	require.NoError(t, err)
	assert.Len(t, pages, 2)
	mc.AssertExpectations(t)
}

func TestQueryAll_FollowsCursorAndKeepsFilter(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	hasFilter := func(req *notionapi.DatabaseQueryRequest) bool {
		pf, ok := req.Filter.(notionapi.PropertyFilter)
		return ok && pf.Property == PropStatus
	}

	mc.On("QueryDatabase", ctx, "db-1", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == "" && hasFilter(req)
	})).Return(&notionapi.DatabaseQueryResponse{
		Results:    []notionapi.Page{{ID: "p1"}},
		HasMore:    true,
		NextCursor: notionapi.Cursor("cursor-abc"),
	}, nil).Once()

	mc.On("QueryDatabase", ctx, "db-1", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == notionapi.Cursor("cursor-abc") && hasFilter(req)
	})).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{{ID: "p2"}},
	}, nil).Once()

	filter := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: PropStatus,
			Select:   &notionapi.SelectFilterCondition{Equals: "qualified"},
		},
	}
	pages, err := QueryAll(ctx, mc, "db-1", filter)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, notionapi.ObjectID("p1"), pages[0].ID)
	assert.Equal(t, notionapi.ObjectID("p2"), pages[1].ID)
	mc.AssertExpectations(t)
}

func TestQueryAll_Error(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-1", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(nil, assert.AnError).Once()

	pages, err := QueryAll(ctx, mc, "db-1", nil)
	assert.Error(t, err)
	assert.Nil(t, pages)
	mc.AssertExpectations(t)
}

func TestQueryAll_ContextCancelled(t *testing.T) {
	mc := new(MockClient)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pages, err := QueryAll(ctx, mc, "db-1", nil)
	assert.Error(t, err)
	assert.Nil(t, pages)
	mc.AssertNotCalled(t, "QueryDatabase", mock.Anything, mock.Anything, mock.Anything)
}

func TestFindByProfileID(t *testing.T) {
	ctx := context.Background()
	byID := mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		pf, ok := req.Filter.(notionapi.PropertyFilter)
		return ok && pf.Property == PropProfileID && pf.RichText != nil && pf.RichText.Equals == "prof-1"
	})

	t.Run("found", func(t *testing.T) {
		mc := new(MockClient)
		mc.On("QueryDatabase", ctx, "db", byID).
			Return(&notionapi.DatabaseQueryResponse{Results: []notionapi.Page{{ID: "page-9"}}}, nil)

		page, err := FindByProfileID(ctx, mc, "db", "prof-1")
		require.NoError(t, err)
		require.NotNil(t, page)
		assert.Equal(t, notionapi.ObjectID("page-9"), page.ID)
	})

	t.Run("missing", func(t *testing.T) {
		mc := new(MockClient)
		mc.On("QueryDatabase", ctx, "db", byID).Return(&notionapi.DatabaseQueryResponse{}, nil)

		page, err := FindByProfileID(ctx, mc, "db", "prof-1")
		require.NoError(t, err)
		assert.Nil(t, page)
	})

	t.Run("error", func(t *testing.T) {
		mc := new(MockClient)
		mc.On("QueryDatabase", ctx, "db", byID).Return(nil, assert.AnError)

		_, err := FindByProfileID(ctx, mc, "db", "prof-1")
		assert.ErrorContains(t, err, "find profile prof-1")
	})
}
