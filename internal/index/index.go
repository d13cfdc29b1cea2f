// Package index implements the cross-file workspace symbol database of
// spec §3 "Index" and §4.F: a category/name keyed table of symbol
// locations with a reverse per-URI map for O(contributions) removal,
// grounded on the teacher's Workspace.nodes/uriToNodes pair
// (workspace.go:170-176, appendID) generalized from one GVK+name
// identifier to a {category, name} pair with a list of locations.
package index

import (
	"sort"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
)

// Category is one of the symbol categories spec §3 enumerates.
type Category string

const (
	CategoryNamespace            Category = "namespaces"
	CategoryEvent                Category = "events"
	CategoryScriptedEffect       Category = "scripted_effects"
	CategoryScriptedTrigger      Category = "scripted_triggers"
	CategoryScriptedList         Category = "scripted_lists"
	CategoryScriptValue          Category = "script_values"
	CategoryOnAction             Category = "on_actions"
	CategorySavedScope           Category = "saved_scopes"
	CategoryLocalization         Category = "localization"
	CategoryCharacterFlag        Category = "character_flags"
	CategoryCharacterInteraction Category = "character_interactions"
	CategoryModifier             Category = "modifiers"
	CategoryOpinionModifier      Category = "opinion_modifiers"
	CategoryScriptedGUI          Category = "scripted_guis"
	CategoryTrait                Category = "traits"
)

// AllCategories lists every recognized category, used to build Stats()
// with zero counts for untouched categories.
var AllCategories = []Category{
	CategoryNamespace, CategoryEvent, CategoryScriptedEffect,
	CategoryScriptedTrigger, CategoryScriptedList, CategoryScriptValue,
	CategoryOnAction, CategorySavedScope, CategoryLocalization,
	CategoryCharacterFlag, CategoryCharacterInteraction, CategoryModifier,
	CategoryOpinionModifier, CategoryScriptedGUI, CategoryTrait,
}

// Symbol is one `{uri, range, attributes}` entry (spec §3 "Index").
type Symbol struct {
	URI   string
	Range ast.Range
	Attrs map[string]string
}

// Contribution is a single symbol a document contributes to the index
// under a given category and name, produced by the per-category
// extractors that walk a parsed document's AST.
type Contribution struct {
	Category Category
	Name     string
	Range    ast.Range
	Attrs    map[string]string
}

// Index is the workspace-wide symbol database. Safe for concurrent use:
// replace/remove take the write lock, lookup/search/stats take the read
// lock (spec §5 "multiple-reader/single-writer... replace is atomic with
// respect to readers").
type Index struct {
	mu sync.RWMutex

	// entries[category][name] is ordered by insertion; Lookup re-sorts by
	// (uri, line, column) on read per spec §4.F.
	entries map[Category]map[string][]Symbol

	// byURI[uri][category] is the set of names uri contributed to
	// category, mirroring the teacher's uriToNodes reverse map.
	byURI map[string]map[Category]map[string]struct{}
}

// New constructs an empty Index.
func New() *Index {
	return &Index{
		entries: map[Category]map[string][]Symbol{},
		byURI:   map[string]map[Category]map[string]struct{}{},
	}
}

// Replace atomically drops every prior contribution from uri across all
// categories, then inserts the new ones (spec §4.F "replace-semantics,
// not merge").
func (idx *Index) Replace(uri string, contributions []Contribution) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(uri)
	for _, c := range contributions {
		idx.insertLocked(uri, c)
	}
}

// Remove drops every contribution from uri across all categories (spec
// §4.F "remove(uri)").
func (idx *Index) Remove(uri string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(uri)
}

func (idx *Index) removeLocked(uri string) {
	cats, ok := idx.byURI[uri]
	if !ok {
		return
	}
	for cat, names := range cats {
		byName := idx.entries[cat]
		for name := range names {
			kept := byName[name][:0]
			for _, s := range byName[name] {
				if s.URI != uri {
					kept = append(kept, s)
				}
			}
			if len(kept) == 0 {
				delete(byName, name)
			} else {
				byName[name] = kept
			}
		}
	}
	delete(idx.byURI, uri)
}

func (idx *Index) insertLocked(uri string, c Contribution) {
	byName, ok := idx.entries[c.Category]
	if !ok {
		byName = map[string][]Symbol{}
		idx.entries[c.Category] = byName
	}
	byName[c.Name] = append(byName[c.Name], Symbol{URI: uri, Range: c.Range, Attrs: c.Attrs})

	cats, ok := idx.byURI[uri]
	if !ok {
		cats = map[Category]map[string]struct{}{}
		idx.byURI[uri] = cats
	}
	names, ok := cats[c.Category]
	if !ok {
		names = map[string]struct{}{}
		cats[c.Category] = names
	}
	names[c.Name] = struct{}{}
}

// Lookup returns every symbol registered under (category, name), ordered
// by (uri, line, column) per spec §4.F.
func (idx *Index) Lookup(category Category, name string) []Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	syms := append([]Symbol(nil), idx.entries[category][name]...)
	sortSymbols(syms)
	return syms
}

// Search returns every name in category whose contributions fuzzy-match
// query, each paired with its locations, for workspace-symbol requests
// (spec §4.F "search(category, query)").
func (idx *Index) Search(category Category, query string) map[string][]Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := map[string][]Symbol{}
	for name, syms := range idx.entries[category] {
		if query == "" || fuzzy.MatchFold(query, name) {
			cp := append([]Symbol(nil), syms...)
			sortSymbols(cp)
			out[name] = cp
		}
	}
	return out
}

// Has reports whether category contains at least one contribution named
// name, used by cross-reference domain validators to check that a used
// name (a scripted effect, an on_action, a script value, ...) was
// actually defined somewhere in the workspace.
func (idx *Index) Has(category Category, name string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries[category][name]) > 0
}

// Stats returns the number of distinct names registered per category
// (spec §4.F "stats() -> {category: count}").
func (idx *Index) Stats() map[Category]int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	stats := map[Category]int{}
	for _, cat := range AllCategories {
		stats[cat] = len(idx.entries[cat])
	}
	return stats
}

func sortSymbols(syms []Symbol) {
	sort.Slice(syms, func(i, j int) bool {
		a, b := syms[i], syms[j]
		if a.URI != b.URI {
			return a.URI < b.URI
		}
		if a.Range.Start.Line != b.Range.Start.Line {
			return a.Range.Start.Line < b.Range.Start.Line
		}
		return a.Range.Start.Character < b.Range.Start.Character
	})
}
