package notion

import (
	"context"
	"errors"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock for Client.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func (m *MockClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func (m *MockClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, pageID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func TestMockClientSatisfiesInterface(t *testing.T) {
	t.Parallel()
	var _ Client = (*MockClient)(nil)
}

func TestNewClient_RateLimitOption(t *testing.T) {
	c := NewClient("test-token").(*notionClient)
	assert.NotNil(t, c.limiter)
	assert.NoError(t, c.wait(context.Background()))

	c = NewClient("test-token", WithRateLimit(0)).(*notionClient)
	assert.Nil(t, c.limiter)
	assert.NoError(t, c.wait(context.Background()))

	c = NewClient("test-token", WithRateLimit(10)).(*notionClient)
	assert.Equal(t, 10, c.limiter.Burst())
}

func TestWait_ContextCancelled(t *testing.T) {
	c := NewClient("t", WithRateLimit(0.001)).(*notionClient)
	// Drain the single burst token so the next wait blocks.
	assert.NoError(t, c.wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, c.wait(ctx))
}

func TestWrapErr(t *testing.T) {
	apiErr := &notionapi.Error{Status: 429, Code: "rate_limited", Message: "slow down"}
	err := wrapErr(apiErr, "create page")

	var se *StatusError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, 429, se.HTTPStatus())
	assert.Contains(t, err.Error(), "notion: create page")
	assert.ErrorIs(t, err, apiErr)

	plain := wrapErr(assert.AnError, "query database db")
	assert.False(t, errors.As(plain, &se))
	assert.Contains(t, plain.Error(), "notion: query database db")
}
