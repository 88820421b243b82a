package crmsync

import (
	"context"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/pkg/notion"
)

// NotionRefKey stores the Notion page id on a profile.
const NotionRefKey = "notion_page_id"

// NotionSink upserts profiles as pages of a Notion database.
type NotionSink struct {
	client notion.Client
	dbID   string
}

// NewNotionSink returns a sink writing to database dbID.
func NewNotionSink(c notion.Client, dbID string) *NotionSink {
	return &NotionSink{client: c, dbID: dbID}
}

func (n *NotionSink) Name() string   { return "notion" }
func (n *NotionSink) RefKey() string { return NotionRefKey }

// Push creates or updates the page for p.
func (n *NotionSink) Push(ctx context.Context, p *model.Profile, ref string) (string, bool, error) {
	return notion.UpsertProspect(ctx, n.client, n.dbID, ref, ProspectFromProfile(p))
}

// ProspectFromProfile flattens p into the Notion prospect row.
func ProspectFromProfile(p *model.Profile) notion.Prospect {
	return notion.Prospect{
		ProfileID:    p.ID,
		Name:         p.Name,
		Type:         string(p.ProspectType),
		Status:       string(p.Status),
		Relevance:    string(p.GoalAlignment.RelevanceScore),
		Industry:     p.Industry,
		Location:     p.Location,
		Goal:         p.DiscoveryMetadata.CompanyGoal,
		DiscoveredBy: p.DiscoveryMetadata.DiscoveringCompany,
		Website:      model.Deref(p.ContactInfo.Website),
		Email:        model.Deref(p.ContactInfo.Email),
		Phone:        model.Deref(p.ContactInfo.Phone),
		Description:  p.BusinessDescription,
		Tags:         p.Tags,
		UpdatedAt:    p.UpdatedAt,
	}
}
