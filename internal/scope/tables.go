// Package scope implements spec §4.C: the scope-type taxonomy, the static
// link/iterator tables, and the annotation walk and chain validator built
// on them. Like internal/lang, the tables are plain immutable maps built
// at init time — no pack dependency offers a better fit for a fixed,
// closed lookup table than a Go map literal.
package scope

import "github.com/Cyborgninja21/pychivalry-sub003/internal/ast"

// LinkTable maps scope_type -> link name -> target scope_type (spec §4.C
// "link[scope_type][name] = scope_type|unknown").
type LinkTable map[ast.ScopeType]map[string]ast.ScopeType

// IteratorTable maps iterator prefix -> source scope_type -> target
// scope_type (spec §4.C "iter[prefix][scope_type] = target|unknown").
type IteratorTable map[string]map[ast.ScopeType]ast.ScopeType

// Links is the default link table, shared by every document. It is
// immutable after package init and therefore lock-free (spec §5 "Static
// tables ... immutable after load and lock-free").
var Links = LinkTable{
	ast.ScopeCharacter: {
		"liege":             ast.ScopeCharacter,
		"employer":          ast.ScopeCharacter,
		"primary_title":     ast.ScopeLandedTitle,
		"capital_county":    ast.ScopeLandedTitle,
		"faith":             ast.ScopeFaith,
		"religion":          ast.ScopeReligion,
		"culture":           ast.ScopeCulture,
		"dynasty":           ast.ScopeDynasty,
		"house":             ast.ScopeHouse,
		"father":            ast.ScopeCharacter,
		"mother":            ast.ScopeCharacter,
		"spouse":            ast.ScopeCharacter,
		"betrothed":         ast.ScopeCharacter,
		"court_owner":       ast.ScopeCharacter,
		"top_liege":         ast.ScopeCharacter,
		"host":              ast.ScopeCharacter,
		"location":          ast.ScopeProvince,
	},
	ast.ScopeLandedTitle: {
		"holder":      ast.ScopeCharacter,
		"de_jure_liege": ast.ScopeLandedTitle,
		"de_facto_liege": ast.ScopeLandedTitle,
		"faith":       ast.ScopeFaith,
		"culture":     ast.ScopeCulture,
		"capital_county": ast.ScopeLandedTitle,
	},
	ast.ScopeProvince: {
		"owner":          ast.ScopeCharacter,
		"county":         ast.ScopeLandedTitle,
		"duchy":          ast.ScopeLandedTitle,
		"barony_controller": ast.ScopeCharacter,
	},
	ast.ScopeFaith: {
		"religious_head":  ast.ScopeCharacter,
		"founder":         ast.ScopeCharacter,
		"religion":        ast.ScopeReligion,
	},
	ast.ScopeCulture: {
		"culture_head": ast.ScopeCharacter,
	},
	ast.ScopeDynasty: {
		"dynast": ast.ScopeCharacter,
	},
	ast.ScopeHouse: {
		"house_head": ast.ScopeCharacter,
		"dynasty":    ast.ScopeDynasty,
	},
	ast.ScopeArtifact: {
		"owner":   ast.ScopeCharacter,
		"creator": ast.ScopeCharacter,
	},
	ast.ScopeWar: {
		"war_attacker": ast.ScopeCharacter,
		"war_defender": ast.ScopeCharacter,
	},
	ast.ScopeScheme: {
		"scheme_owner":  ast.ScopeCharacter,
		"scheme_target": ast.ScopeCharacter,
	},
	ast.ScopeActivity: {
		"activity_owner": ast.ScopeCharacter,
	},
}

// IteratorBases maps each scope type to the iterable "base" link names
// reachable from it via an iterator prefix (e.g. `any_courtier` from
// character, `any_sibling`, `any_vassal`, ...). Distinct from Links
// because iterator bases are plural relationships, not single-valued
// links.
var IteratorBases = map[ast.ScopeType]map[string]ast.ScopeType{
	ast.ScopeCharacter: {
		"courtier": ast.ScopeCharacter,
		"vassal":   ast.ScopeCharacter,
		"child":    ast.ScopeCharacter,
		"sibling":  ast.ScopeCharacter,
		"consort":  ast.ScopeCharacter,
		"claim":    ast.ScopeLandedTitle,
		"held_title": ast.ScopeLandedTitle,
	},
	ast.ScopeLandedTitle: {
		"de_jure_county": ast.ScopeLandedTitle,
		"vassal_title":   ast.ScopeLandedTitle,
	},
	ast.ScopeWar: {
		"war_participant": ast.ScopeCharacter,
	},
}

// Iterators is the default iterator table derived from IteratorBases: for
// every (prefix, scope, base) combination the target scope is the base's
// mapped type.
var Iterators = buildIteratorTable()

func buildIteratorTable() IteratorTable {
	t := IteratorTable{}
	for _, prefix := range []string{"any_", "every_", "random_", "ordered_"} {
		t[prefix] = map[ast.ScopeType]ast.ScopeType{}
	}
	// IteratorTable here is indexed by source scope type only, but actual
	// resolution additionally needs the base name; ResolveIteratorBase
	// below consults IteratorBases directly for that reason. Nothing in
	// this module reads Iterators.
	for scopeType := range IteratorBases {
		for _, prefix := range []string{"any_", "every_", "random_", "ordered_"} {
			t[prefix][scopeType] = ast.ScopeAny
		}
	}
	return t
}

// ResolveLink looks up a single named link from scopeType, returning the
// target scope type and whether the link is known.
func ResolveLink(scopeType ast.ScopeType, name string) (ast.ScopeType, bool) {
	m, ok := Links[scopeType]
	if !ok {
		return ast.ScopeUnknown, false
	}
	target, ok := m[name]
	return target, ok
}

// ResolveIteratorBase looks up an iterator base (the part after any_/
// every_/random_/ordered_) from scopeType, returning the target scope
// type iterated values have and whether the base is a legal link from
// scopeType (spec §4.C.5).
func ResolveIteratorBase(scopeType ast.ScopeType, base string) (ast.ScopeType, bool) {
	bases, ok := IteratorBases[scopeType]
	if !ok {
		return ast.ScopeUnknown, false
	}
	target, ok := bases[base]
	return target, ok
}

// KnownLinkNames returns every link name known to resolve from scopeType,
// used to drive `.`-triggered completion (spec §4.J).
func KnownLinkNames(scopeType ast.ScopeType) []string {
	m, ok := Links[scopeType]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	return names
}
