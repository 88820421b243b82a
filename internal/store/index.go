package store

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"

	"github.com/sells-group/prospect-cli/internal/model"
)

type idSet map[string]struct{}

// bucket maps an attribute value to the profile ids carrying it.
type bucket map[string]idSet

func (b bucket) add(key, id string) {
	if key == "" {
		return
	}
	ids, ok := b[key]
	if !ok {
		ids = idSet{}
		b[key] = ids
	}
	ids[id] = struct{}{}
}

func (b bucket) remove(key, id string) {
	ids, ok := b[key]
	if !ok {
		return
	}
	delete(ids, id)
	if len(ids) == 0 {
		delete(b, key)
	}
}

// MarshalJSON writes each set as a sorted array so index.json is stable.
func (b bucket) MarshalJSON() ([]byte, error) {
	out := make(map[string][]string, len(b))
	for k, ids := range b {
		out[k] = sortedIDs(ids)
	}
	return json.Marshal(out)
}

func (b *bucket) UnmarshalJSON(data []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = make(bucket, len(raw))
	for k, ids := range raw {
		for _, id := range ids {
			b.add(k, id)
		}
	}
	return nil
}

func sortedIDs(ids idSet) []string {
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Index holds the per-profile summaries and the secondary lookup maps.
// It is not safe for concurrent use; ProfileStore serializes access.
type Index struct {
	Profiles    map[string]model.Summary `json:"profiles"`
	ByCompany   bucket                   `json:"by_company"`
	ByGoal      bucket                   `json:"by_goal"`
	ByStatus    bucket                   `json:"by_status"`
	ByRelevance bucket                   `json:"by_relevance"`
	ByTags      bucket                   `json:"by_tags"`
	LastUpdated time.Time                `json:"last_updated"`
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		Profiles:    map[string]model.Summary{},
		ByCompany:   bucket{},
		ByGoal:      bucket{},
		ByStatus:    bucket{},
		ByRelevance: bucket{},
		ByTags:      bucket{},
		LastUpdated: time.Now().UTC(),
	}
}

// decodeIndex parses index.json, filling any maps the file omits.
func decodeIndex(data []byte) (*Index, error) {
	idx := NewIndex()
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, eris.Wrap(err, "store: decode index")
	}
	if idx.Profiles == nil {
		idx.Profiles = map[string]model.Summary{}
	}
	for _, b := range []*bucket{&idx.ByCompany, &idx.ByGoal, &idx.ByStatus, &idx.ByRelevance, &idx.ByTags} {
		if *b == nil {
			*b = bucket{}
		}
	}
	for id, s := range idx.Profiles {
		s.ID = id
		idx.Profiles[id] = s
	}
	return idx, nil
}

// Update replaces every membership of p.ID with the buckets for p's current values.
func (x *Index) Update(p *model.Profile) {
	x.unlink(p.ID)

	s := model.SummaryOf(p)
	x.Profiles[p.ID] = s
	x.ByCompany.add(s.DiscoveringCompany, p.ID)
	x.ByGoal.add(s.CompanyGoal, p.ID)
	x.ByStatus.add(string(s.Status), p.ID)
	x.ByRelevance.add(string(s.RelevanceScore), p.ID)
	for _, tag := range s.Tags {
		x.ByTags.add(tag, p.ID)
	}
	x.LastUpdated = time.Now().UTC()
}

// Remove drops id and all of its memberships. It reports whether id was indexed.
func (x *Index) Remove(id string) bool {
	if _, ok := x.Profiles[id]; !ok {
		x.sweep(id)
		return false
	}
	x.unlink(id)
	delete(x.Profiles, id)
	x.LastUpdated = time.Now().UTC()
	return true
}

// unlink removes id from the buckets recorded in its previous summary, then
// sweeps in case the summary and buckets had drifted apart.
func (x *Index) unlink(id string) {
	if old, ok := x.Profiles[id]; ok {
		x.ByCompany.remove(old.DiscoveringCompany, id)
		x.ByGoal.remove(old.CompanyGoal, id)
		x.ByStatus.remove(string(old.Status), id)
		x.ByRelevance.remove(string(old.RelevanceScore), id)
		for _, tag := range old.Tags {
			x.ByTags.remove(tag, id)
		}
	}
	x.sweep(id)
}

func (x *Index) sweep(id string) {
	for _, b := range x.buckets() {
		for key, ids := range b {
			if _, ok := ids[id]; ok {
				b.remove(key, id)
			}
		}
	}
}

func (x *Index) buckets() []bucket {
	return []bucket{x.ByCompany, x.ByGoal, x.ByStatus, x.ByRelevance, x.ByTags}
}

// Has reports whether id is indexed.
func (x *Index) Has(id string) bool {
	_, ok := x.Profiles[id]
	return ok
}

// Len returns the number of indexed profiles.
func (x *Index) Len() int { return len(x.Profiles) }

// Search returns the ids matching every criterion of f, newest first.
// A criterion naming a value with no bucket matches nothing.
func (x *Index) Search(f model.Filter) []string {
	var result idSet
	narrow := func(ids idSet) {
		if result == nil {
			result = make(idSet, len(ids))
			for id := range ids {
				result[id] = struct{}{}
			}
			return
		}
		for id := range result {
			if _, ok := ids[id]; !ok {
				delete(result, id)
			}
		}
	}

	if f.Company != "" {
		narrow(x.ByCompany[f.Company])
	}
	if f.Goal != "" {
		narrow(x.ByGoal[f.Goal])
	}
	if f.Status != "" {
		narrow(x.ByStatus[string(f.Status)])
	}
	if f.Relevance != "" {
		narrow(x.ByRelevance[string(f.Relevance)])
	}
	if len(f.Tags) > 0 {
		union := idSet{}
		for _, tag := range f.Tags {
			for id := range x.ByTags[tag] {
				union[id] = struct{}{}
			}
		}
		narrow(union)
	}

	if result == nil {
		result = make(idSet, len(x.Profiles))
		for id := range x.Profiles {
			result[id] = struct{}{}
		}
	}

	if f.Name != "" {
		fold := cases.Fold()
		needle := fold.String(f.Name)
		for id := range result {
			s, ok := x.Profiles[id]
			if !ok || !strings.Contains(fold.String(s.Name), needle) {
				delete(result, id)
			}
		}
	}

	return x.ordered(result)
}

// ordered sorts ids by updated_at descending, then id.
func (x *Index) ordered(ids idSet) []string {
	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b string) int {
		ta, tb := x.Profiles[a].UpdatedAt, x.Profiles[b].UpdatedAt
		if c := tb.Compare(ta); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return out
}

// Summaries returns every summary, newest first.
func (x *Index) Summaries() []model.Summary {
	all := idSet{}
	for id := range x.Profiles {
		all[id] = struct{}{}
	}
	ids := x.ordered(all)
	out := make([]model.Summary, len(ids))
	for i, id := range ids {
		out[i] = x.Profiles[id]
	}
	return out
}

// Breakdown is the size of every bucket in one secondary map.
type Breakdown map[string]int

func (b bucket) sizes() Breakdown {
	out := make(Breakdown, len(b))
	for k, ids := range b {
		out[k] = len(ids)
	}
	return out
}

// Counts summarizes bucket sizes for statistics.
type Counts struct {
	Total     int
	Status    Breakdown
	Relevance Breakdown
	Company   Breakdown
	Goal      Breakdown
	Tags      int
}

// Counts returns the bucket sizes of every secondary map.
func (x *Index) Counts() Counts {
	return Counts{
		Total:     len(x.Profiles),
		Status:    x.ByStatus.sizes(),
		Relevance: x.ByRelevance.sizes(),
		Company:   x.ByCompany.sizes(),
		Goal:      x.ByGoal.sizes(),
		Tags:      len(x.ByTags),
	}
}
