package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/parser"
)

func TestExtractAndReplace(t *testing.T) {
	cases := map[string]struct {
		reason   string
		src      string
		category Category
		name     string
		wantLen  int
	}{
		"EventDefinition": {
			reason:   "a namespaced top-level block registers as an event",
			src:      `my_mod.0001 = { type = character_event }`,
			category: CategoryEvent,
			name:     "my_mod.0001",
			wantLen:  1,
		},
		"ScriptedEffect": {
			reason:   "children of a scripted_effect grouping register individually",
			src:      `scripted_effect = { my_effect = { add_gold = 10 } }`,
			category: CategoryScriptedEffect,
			name:     "my_effect",
			wantLen:  1,
		},
		"SavedScope": {
			reason:   "save_scope_as inside an event body registers tagged with the event id",
			src:      `my_mod.0002 = { immediate = { save_scope_as = foo } }`,
			category: CategorySavedScope,
			name:     "foo",
			wantLen:  1,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := parser.Parse(tc.src)
			require.Empty(t, r.Diagnostics, tc.reason)

			idx := New()
			idx.Replace("file:///a.txt", Extract(r.Tree))

			syms := idx.Lookup(tc.category, tc.name)
			assert.Len(t, syms, tc.wantLen, tc.reason)
		})
	}
}

func TestSavedScopeTaggedWithEnclosingEvent(t *testing.T) {
	r := parser.Parse(`my_mod.0003 = { immediate = { save_scope_as = bar } }`)
	require.Empty(t, r.Diagnostics)

	idx := New()
	idx.Replace("file:///a.txt", Extract(r.Tree))

	syms := idx.Lookup(CategorySavedScope, "bar")
	require.Len(t, syms, 1)
	assert.Equal(t, "my_mod.0003", syms[0].Attrs["event"])
}

func TestReplaceDropsPriorContributions(t *testing.T) {
	idx := New()
	idx.Replace("file:///a.txt", []Contribution{{Category: CategoryEvent, Name: "my_mod.0001"}})
	require.Len(t, idx.Lookup(CategoryEvent, "my_mod.0001"), 1)

	idx.Replace("file:///a.txt", []Contribution{{Category: CategoryEvent, Name: "my_mod.0002"}})
	assert.Empty(t, idx.Lookup(CategoryEvent, "my_mod.0001"))
	assert.Len(t, idx.Lookup(CategoryEvent, "my_mod.0002"), 1)
}

func TestRemoveErasesEveryCategory(t *testing.T) {
	idx := New()
	idx.Replace("file:///a.txt", []Contribution{
		{Category: CategoryEvent, Name: "my_mod.0001"},
		{Category: CategorySavedScope, Name: "foo"},
	})
	idx.Remove("file:///a.txt")

	assert.Empty(t, idx.Lookup(CategoryEvent, "my_mod.0001"))
	assert.Empty(t, idx.Lookup(CategorySavedScope, "foo"))
	for _, syms := range idx.Search(CategoryEvent, "") {
		for _, s := range syms {
			assert.NotEqual(t, "file:///a.txt", s.URI)
		}
	}
}

func TestRemoveDoesNotAffectOtherURIs(t *testing.T) {
	idx := New()
	idx.Replace("file:///a.txt", []Contribution{{Category: CategoryEvent, Name: "my_mod.0001"}})
	idx.Replace("file:///b.txt", []Contribution{{Category: CategoryEvent, Name: "my_mod.0001"}})

	idx.Remove("file:///a.txt")

	syms := idx.Lookup(CategoryEvent, "my_mod.0001")
	require.Len(t, syms, 1)
	assert.Equal(t, "file:///b.txt", syms[0].URI)
}

func TestSearchFuzzyMatchesName(t *testing.T) {
	idx := New()
	idx.Replace("file:///a.txt", []Contribution{
		{Category: CategoryEvent, Name: "my_mod.0001"},
		{Category: CategoryEvent, Name: "other_mod.0042"},
	})

	results := idx.Search(CategoryEvent, "mymod")
	_, ok := results["my_mod.0001"]
	assert.True(t, ok)
	_, ok = results["other_mod.0042"]
	assert.False(t, ok)
}

func TestStatsCoversEveryCategory(t *testing.T) {
	idx := New()
	idx.Replace("file:///a.txt", []Contribution{{Category: CategoryEvent, Name: "my_mod.0001"}})

	stats := idx.Stats()
	assert.Equal(t, 1, stats[CategoryEvent])
	assert.Equal(t, 0, stats[CategoryTrait])
	assert.Len(t, stats, len(AllCategories))
}
