package store

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

func newTestProfileStore(t *testing.T) *ProfileStore {
	t.Helper()
	st, err := Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	return st
}

func TestOpenCreatesLayout(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(context.Background(), dir)
	require.NoError(t, err)

	assert.DirExists(t, filepath.Join(dir, "profiles"))
	assert.FileExists(t, filepath.Join(dir, "index.json"))
	assert.FileExists(t, filepath.Join(dir, "metadata.json"))

	var meta Metadata
	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, FormatVersion, meta.Version)
	assert.Equal(t, 0, meta.TotalProfiles)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := newTestProfileStore(t)
	ctx := context.Background()

	p := newProfile("Acme Inc", "Sells", "find clients", "fintech")
	p.ContactInfo.Website = model.StringPtr("https://acme.test")
	p.AddNote("first call", "sales")
	require.NoError(t, st.Save(ctx, p))

	got, err := st.Load(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	want, err := json.Marshal(p)
	require.NoError(t, err)
	have, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(have))

	assert.FileExists(t, filepath.Join(st.Dir(), "profiles", p.ID+".json"))
	assert.Equal(t, 1, st.Metadata().TotalProfiles)
}

func TestLoadMissing(t *testing.T) {
	st := newTestProfileStore(t)

	got, err := st.Load(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLoadCorrupt(t *testing.T) {
	st := newTestProfileStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(st.Dir(), "profiles", "bad.json"), []byte("{not json"), 0o644))

	_, err := st.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptRecord))
}

func TestLoadUnknownEnumIsCorrupt(t *testing.T) {
	st := newTestProfileStore(t)
	doc := `{"profile_id":"x1","prospect_type":"company","status":"won","goal_alignment":{"relevance_score":"High"}}`
	require.NoError(t, os.WriteFile(filepath.Join(st.Dir(), "profiles", "x1.json"), []byte(doc), 0o644))

	_, err := st.Load(context.Background(), "x1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptRecord))
}

func TestInvalidIDsRejected(t *testing.T) {
	st := newTestProfileStore(t)
	ctx := context.Background()

	for _, id := range []string{"", "../escape", "a/b", `a\b`, ".hidden"} {
		_, err := st.Load(ctx, id)
		assert.True(t, errors.Is(err, ErrInvalidID), "id %q", id)
	}

	p := newProfile("x", "c", "g")
	p.ID = "../../etc"
	assert.Error(t, st.Save(ctx, p))
}

func TestSaveRejectsInvalidProfile(t *testing.T) {
	st := newTestProfileStore(t)
	p := newProfile("x", "c", "g")
	p.Status = "won"

	require.Error(t, st.Save(context.Background(), p))
	assert.Equal(t, 0, st.Count())
	assert.NoFileExists(t, filepath.Join(st.Dir(), "profiles", p.ID+".json"))
}

func TestDeleteRemovesEverywhere(t *testing.T) {
	st := newTestProfileStore(t)
	ctx := context.Background()

	a := newProfile("A", "Sells", "g", "t")
	b := newProfile("B", "Sells", "g", "t")
	require.NoError(t, st.Save(ctx, a))
	require.NoError(t, st.Save(ctx, b))
	require.Equal(t, 2, st.Count())

	ok, err := st.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := st.Load(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 1, st.Count())
	assert.Equal(t, 1, st.Metadata().TotalProfiles)

	ids, err := st.Search(ctx, model.Filter{Tags: []string{"t"}})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids)

	ok, err = st.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteDanglingIndexEntry(t *testing.T) {
	st := newTestProfileStore(t)
	ctx := context.Background()

	p := newProfile("A", "Sells", "g")
	require.NoError(t, st.Save(ctx, p))
	require.NoError(t, os.Remove(filepath.Join(st.Dir(), "profiles", p.ID+".json")))

	ok, err := st.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, st.Count())
}

func TestStatusChangeMovesSearchResults(t *testing.T) {
	st := newTestProfileStore(t)
	ctx := context.Background()

	p := newProfile("A", "Sells", "g")
	require.NoError(t, st.Save(ctx, p))

	_, err := st.Update(ctx, p.ID, func(p *model.Profile) (bool, error) {
		p.UpdateStatus(model.StatusContacted)
		return true, nil
	})
	require.NoError(t, err)

	discovered, err := st.Search(ctx, model.Filter{Status: model.StatusDiscovered})
	require.NoError(t, err)
	assert.NotContains(t, discovered, p.ID)

	contacted, err := st.Search(ctx, model.Filter{Status: model.StatusContacted})
	require.NoError(t, err)
	assert.Contains(t, contacted, p.ID)
}

func TestUpdateUnchangedSkipsWrite(t *testing.T) {
	st := newTestProfileStore(t)
	ctx := context.Background()

	p := newProfile("A", "Sells", "g", "x")
	require.NoError(t, st.Save(ctx, p))

	got, err := st.Update(ctx, p.ID, func(p *model.Profile) (bool, error) {
		return p.AddTag("x"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, p.Version, got.Version)

	loaded, err := st.Load(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, loaded.Tags)
	assert.Equal(t, p.Version, loaded.Version)
}

func TestUpdateMissingProfile(t *testing.T) {
	st := newTestProfileStore(t)
	called := false

	got, err := st.Update(context.Background(), "missing", func(*model.Profile) (bool, error) {
		called = true
		return true, nil
	})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, called)
}

func TestUpdateConcurrentWritersDoNotLoseVersions(t *testing.T) {
	st := newTestProfileStore(t)
	ctx := context.Background()

	p := newProfile("A", "Sells", "g")
	require.NoError(t, st.Save(ctx, p))

	const writers = 20
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.Update(ctx, p.ID, func(p *model.Profile) (bool, error) {
				p.AddNote("note", "")
				return true, nil
			})
			assert.NoError(t, err, "writer %d", i)
		}()
	}
	wg.Wait()

	got, err := st.Load(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, got.Notes, writers)
	assert.Equal(t, 1+writers, got.Version)
}

func TestIndexMatchesDocumentsAfterRandomOps(t *testing.T) {
	st := newTestProfileStore(t)
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(1, 2))

	live := map[string]*model.Profile{}
	for i := range 60 {
		if len(live) > 0 && rng.IntN(3) == 0 {
			for id := range live {
				_, err := st.Delete(ctx, id)
				require.NoError(t, err)
				delete(live, id)
				break
			}
			continue
		}
		p := newProfile("P", "Sells", "g", []string{"a", "b", "c"}[i%3])
		require.NoError(t, st.Save(ctx, p))
		live[p.ID] = p
	}

	docs, err := st.documentIDs()
	require.NoError(t, err)
	all, err := st.Search(ctx, model.Filter{})
	require.NoError(t, err)

	want := make([]string, 0, len(live))
	for id := range live {
		want = append(want, id)
	}
	assert.ElementsMatch(t, want, docs)
	assert.ElementsMatch(t, want, all)

	sums, err := st.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, sums, len(live))

	c, err := st.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, c.OK())
}

func TestListPagination(t *testing.T) {
	st := newTestProfileStore(t)
	ctx := context.Background()

	for range 5 {
		require.NoError(t, st.Save(ctx, newProfile("P", "S", "g")))
	}

	page, err := st.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	page, err = st.List(ctx, 2, 4)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	page, err = st.List(ctx, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestReopenKeepsIndex(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	st, err := Open(ctx, dir)
	require.NoError(t, err)
	p := newProfile("A", "Sells", "find clients", "t")
	require.NoError(t, st.Save(ctx, p))

	st2, err := Open(ctx, dir)
	require.NoError(t, err)
	ids, err := st2.Search(ctx, model.Filter{Goal: "find clients"})
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID}, ids)
	sum, ok := st2.Summary(p.ID)
	require.True(t, ok)
	assert.Equal(t, p.ID, sum.ID)
}

func TestOpenRebuildsCorruptIndex(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	st, err := Open(ctx, dir)
	require.NoError(t, err)
	p := newProfile("A", "Sells", "g")
	require.NoError(t, st.Save(ctx, p))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.json"), []byte("garbage"), 0o644))

	st2, err := Open(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, st2.Count())
}

func TestReindexAndVerify(t *testing.T) {
	st := newTestProfileStore(t)
	ctx := context.Background()

	a := newProfile("A", "Sells", "g")
	b := newProfile("B", "Sells", "g")
	require.NoError(t, st.Save(ctx, a))
	require.NoError(t, st.Save(ctx, b))

	// Simulate drift: a document written behind the store's back and a
	// document removed without touching the index.
	c := newProfile("C", "Sells", "g")
	data, err := json.Marshal(c)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(st.Dir(), "profiles", c.ID+".json"), data, 0o644))
	require.NoError(t, os.Remove(filepath.Join(st.Dir(), "profiles", b.ID+".json")))
	require.NoError(t, os.WriteFile(filepath.Join(st.Dir(), "profiles", "junk.json"), []byte("{"), 0o644))

	report, err := st.Verify(ctx)
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Equal(t, []string{b.ID}, report.Dangling)
	assert.ElementsMatch(t, []string{c.ID, "junk"}, report.Unindexed)
	assert.Equal(t, []string{"junk"}, report.Unreadable)

	n, err := st.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ids, err := st.Search(ctx, model.Filter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, c.ID}, ids)
}

func TestSaveHonoursCancelledContext(t *testing.T) {
	st := newTestProfileStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := st.Save(ctx, newProfile("A", "S", "g"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTempFilesDoNotLinger(t *testing.T) {
	st := newTestProfileStore(t)
	require.NoError(t, st.Save(context.Background(), newProfile("A", "S", "g")))

	for _, dir := range []string{st.Dir(), filepath.Join(st.Dir(), "profiles")} {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		assert.False(t, slices.ContainsFunc(names, func(n string) bool { return filepath.Ext(n) == ".tmp" }), "dir %s: %v", dir, names)
	}
}
