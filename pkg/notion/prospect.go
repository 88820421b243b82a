package notion

import (
	"context"
	"strings"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// Property names of the prospect database.
const (
	PropName        = "Name"
	PropProfileID   = "Profile ID"
	PropType        = "Type"
	PropStatus      = "Status"
	PropRelevance   = "Relevance"
	PropIndustry    = "Industry"
	PropLocation    = "Location"
	PropGoal        = "Goal"
	PropDiscoverer  = "Discovered By"
	PropWebsite     = "Website"
	PropEmail       = "Email"
	PropPhone       = "Phone"
	PropTags        = "Tags"
	PropDescription = "Description"
	PropUpdated     = "Last Updated"
)

// Notion caps a rich text content block at 2000 characters.
const maxRichText = 2000

// Prospect is the flat view of a profile written to Notion.
type Prospect struct {
	ProfileID    string
	Name         string
	Type         string
	Status       string
	Relevance    string
	Industry     string
	Location     string
	Goal         string
	DiscoveredBy string
	Website      string
	Email        string
	Phone        string
	Description  string
	Tags         []string
	UpdatedAt    time.Time
}

// Properties converts p into Notion page properties. Empty optional values
// are left out so they don't blank fields edited in Notion.
func (p Prospect) Properties() notionapi.Properties {
	props := notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(p.Name),
		},
		PropProfileID: notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(p.ProfileID),
		},
	}

	selects := map[string]string{
		PropType:      p.Type,
		PropStatus:    p.Status,
		PropRelevance: p.Relevance,
	}
	for k, v := range selects {
		if v != "" {
			props[k] = notionapi.SelectProperty{
				Type:   notionapi.PropertyTypeSelect,
				Select: notionapi.Option{Name: v},
			}
		}
	}

	texts := map[string]string{
		PropIndustry:    p.Industry,
		PropLocation:    p.Location,
		PropGoal:        p.Goal,
		PropDiscoverer:  p.DiscoveredBy,
		PropDescription: p.Description,
	}
	for k, v := range texts {
		if v != "" {
			props[k] = notionapi.RichTextProperty{
				Type:     notionapi.PropertyTypeRichText,
				RichText: richText(v),
			}
		}
	}

	if p.Website != "" {
		props[PropWebsite] = notionapi.URLProperty{Type: notionapi.PropertyTypeURL, URL: normalizeURL(p.Website)}
	}
	if p.Email != "" {
		props[PropEmail] = notionapi.EmailProperty{Type: notionapi.PropertyTypeEmail, Email: p.Email}
	}
	if p.Phone != "" {
		props[PropPhone] = notionapi.PhoneNumberProperty{Type: notionapi.PropertyTypePhoneNumber, PhoneNumber: p.Phone}
	}
	if len(p.Tags) > 0 {
		opts := make([]notionapi.Option, 0, len(p.Tags))
		for _, t := range p.Tags {
			// Notion rejects commas in select option names.
			opts = append(opts, notionapi.Option{Name: strings.ReplaceAll(t, ",", " ")})
		}
		props[PropTags] = notionapi.MultiSelectProperty{Type: notionapi.PropertyTypeMultiSelect, MultiSelect: opts}
	}
	if !p.UpdatedAt.IsZero() {
		d := notionapi.Date(p.UpdatedAt)
		props[PropUpdated] = notionapi.DateProperty{
			Type: notionapi.PropertyTypeDate,
			Date: &notionapi.DateObject{Start: &d},
		}
	}
	return props
}

// UpsertProspect updates pageID when set, otherwise looks the prospect up by
// profile ID and creates a page if none exists. It returns the page ID and
// whether a page was created.
func UpsertProspect(ctx context.Context, c Client, dbID, pageID string, p Prospect) (string, bool, error) {
	if p.ProfileID == "" || p.Name == "" {
		return "", false, eris.New("notion: prospect requires profile id and name")
	}

	if pageID == "" {
		existing, err := FindByProfileID(ctx, c, dbID, p.ProfileID)
		if err != nil {
			return "", false, err
		}
		if existing != nil {
			pageID = string(existing.ID)
		}
	}

	if pageID != "" {
		page, err := c.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{Properties: p.Properties()})
		if err != nil {
			return "", false, eris.Wrapf(err, "notion: update prospect %s", p.ProfileID)
		}
		return string(page.ID), false, nil
	}

	page, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: p.Properties(),
	})
	if err != nil {
		return "", false, eris.Wrapf(err, "notion: create prospect %s", p.ProfileID)
	}
	return string(page.ID), true, nil
}

func richText(s string) []notionapi.RichText {
	if r := []rune(s); len(r) > maxRichText {
		s = string(r[:maxRichText])
	}
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}

// normalizeURL ensures a domain has an https:// scheme prefix.
func normalizeURL(domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return ""
	}
	if !strings.Contains(domain, "://") {
		return "https://" + domain
	}
	return domain
}
