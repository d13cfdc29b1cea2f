package scope

import (
	"strings"

	"github.com/agext/levenshtein"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
)

// ChainResult is the outcome of validating a dot-separated chain
// left-to-right (spec §4.C.3).
type ChainResult struct {
	// Final is the scope type the chain resolves to. Once a segment fails
	// to resolve, Final and every subsequent segment is ScopeUnknown
	// (spec: "unresolved segment downgrades the remainder to unknown").
	Final ast.ScopeType
	// BadIndex is the index of the first unresolved segment, or -1 if
	// every segment resolved.
	BadIndex int
	// NeedsSavedScope is the name an unresolved "scope:NAME" segment
	// referenced, set only when BadIndex points at such a segment and the
	// caller should check whether NAME was saved earlier in the body.
	NeedsSavedScope string
}

// Segments splits a chain key like "liege.primary_title.holder.add_gold"
// or "scope:foo.add_prestige" on '.'. Since ':' is an inner identifier
// character (spec §4.A), "scope:foo" survives as one segment.
func Segments(key string) []string {
	return strings.Split(key, ".")
}

// ValidateChain walks segments left-to-right from scopeType per spec
// §4.C.2-3. ancestors is the stack of enclosing scope types, nearest
// first, used to resolve bare `prev`/`root` segments; savedScope(name)
// reports whether a `scope:NAME` segment was saved earlier in the current
// body (spec §4.C.4).
func ValidateChain(scopeType ast.ScopeType, segments []string, ancestors []ast.ScopeType, savedScope func(name string) bool) ChainResult {
	cur := scopeType
	for i, seg := range segments {
		next, ok := resolveSegment(cur, seg, ancestors, savedScope)
		if !ok {
			return ChainResult{Final: ast.ScopeUnknown, BadIndex: i, NeedsSavedScope: savedScopeName(seg)}
		}
		cur = next
	}
	return ChainResult{Final: cur, BadIndex: -1}
}

func savedScopeName(seg string) string {
	if strings.HasPrefix(seg, "scope:") {
		return strings.TrimPrefix(seg, "scope:")
	}
	return ""
}

func resolveSegment(cur ast.ScopeType, seg string, ancestors []ast.ScopeType, savedScope func(string) bool) (ast.ScopeType, bool) {
	switch {
	case seg == "this":
		return cur, true
	case seg == "root":
		if len(ancestors) == 0 {
			return cur, true
		}
		return ancestors[len(ancestors)-1], true
	case seg == "prev":
		if len(ancestors) == 0 {
			return ast.ScopeUnknown, false
		}
		return ancestors[0], true
	case strings.HasPrefix(seg, "scope:"):
		name := strings.TrimPrefix(seg, "scope:")
		if savedScope == nil || !savedScope(name) {
			return ast.ScopeUnknown, false
		}
		// The saved scope's concrete type was not tracked statically
		// (spec §9 Open Question ii restricts this to file-local lookup,
		// not type inference), so a successfully-resolved saved scope
		// degrades remaining chain validation to "any".
		return ast.ScopeAny, true
	default:
		if cur == ast.ScopeAny {
			// Under `any`, every link name is plausible; don't cascade
			// false positives from an already-degraded chain.
			return ast.ScopeAny, true
		}
		return ResolveLink(cur, seg)
	}
}

// SuggestLink returns a known link name from scopeType within Levenshtein
// distance 2 of name, for "almost-legal chain" diagnostics (spec §7).
func SuggestLink(scopeType ast.ScopeType, name string) (string, bool) {
	best := ""
	bestDist := 3
	for _, candidate := range KnownLinkNames(scopeType) {
		d := levenshtein.Distance(name, candidate, nil)
		if d <= 2 && d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best, best != ""
}
