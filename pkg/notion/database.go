package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// QueryAll fetches all pages from a Notion database, following cursors.
// The next page is fetched in a goroutine while the current one is consumed.
func QueryAll(ctx context.Context, c Client, dbID string, filter *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "notion: query all")
	}

	newReq := func(cursor notionapi.Cursor) *notionapi.DatabaseQueryRequest {
		req := &notionapi.DatabaseQueryRequest{StartCursor: cursor}
		if filter != nil {
			req.Filter = filter.Filter
			req.Sorts = filter.Sorts
			req.PageSize = filter.PageSize
		}
		return req
	}

	type result struct {
		resp *notionapi.DatabaseQueryResponse
		err  error
	}

	var all []notionapi.Page
	var pending <-chan result
	for {
		var resp *notionapi.DatabaseQueryResponse
		var err error
		if pending != nil {
			r := <-pending
			resp, err = r.resp, r.err
		} else {
			resp, err = c.QueryDatabase(ctx, dbID, newReq(""))
		}
		if err != nil {
			return nil, eris.Wrap(err, "notion: query all page")
		}

		all = append(all, resp.Results...)
		if !resp.HasMore {
			break
		}

		ch := make(chan result, 1)
		pending = ch
		next := newReq(resp.NextCursor)
		go func() {
			r, e := c.QueryDatabase(ctx, dbID, next)
			ch <- result{resp: r, err: e}
		}()
	}
	return all, nil
}

// FindByProfileID returns the page whose "Profile ID" property equals id,
// or nil when none exists.
func FindByProfileID(ctx context.Context, c Client, dbID, id string) (*notionapi.Page, error) {
	resp, err := c.QueryDatabase(ctx, dbID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: PropProfileID,
			RichText: &notionapi.TextFilterCondition{Equals: id},
		},
		PageSize: 1,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "notion: find profile %s", id)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}
