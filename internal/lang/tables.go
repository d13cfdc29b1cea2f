// Package lang holds the static built-in trigger/effect/keyword tables of
// spec §4.D: closed sets used to classify tokens for semantic coloring and
// to flag unknown-trigger/unknown-effect/effect-in-trigger-block
// diagnostics. Like internal/scope, these are plain immutable maps — no
// library in the pack offers a better fit for a fixed lookup table.
package lang

// BlockKind classifies the context a node's children are evaluated in.
type BlockKind int

const (
	BlockUnknown BlockKind = iota
	BlockTrigger
	BlockEffect
	// BlockOption is the `option = { ... }` body of an event: a mix of
	// `name =`, `trigger = {...}` (itself BlockTrigger), and effects run
	// when the option is picked.
	BlockOption
)

// TriggerBlockKeys are keys whose block body is evaluated as a trigger
// (pure predicate) context.
var TriggerBlockKeys = map[string]bool{
	"trigger":        true,
	"limit":          true,
	"trigger_if":     true,
	"trigger_else_if": true,
	"trigger_else":   true,
	"allow":          true,
	"is_shown":       true,
	"is_valid":       true,
	"potential":      true,
}

// EffectBlockKeys are keys whose block body is evaluated as an effect
// (side-effecting) context.
var EffectBlockKeys = map[string]bool{
	"immediate":     true,
	"effect":        true,
	"after":         true,
	"on_accept":     true,
	"on_decline":    true,
	"ai_chance":     true,
	"on_action":     true,
	"first_valid":   true,
	"random_valid":  true,
}

// ControlFlowKeywords are keywords that drive control flow rather than
// naming a trigger/effect/scope.
var ControlFlowKeywords = map[string]bool{
	"if":             true,
	"else":           true,
	"else_if":        true,
	"limit":          true,
	"while":          true,
	"switch":         true,
	"trigger_switch": true,
	"break":          true,
}

// BooleanValues are the two recognized boolean literals.
var BooleanValues = map[string]bool{"yes": true, "no": true}

// KnownTriggers is the closed set of built-in trigger names (a
// representative subset; nothing extends it at run time).
var KnownTriggers = map[string]bool{
	"has_trait": true, "has_character_flag": true, "is_adult": true,
	"is_ruler": true, "age": true, "is_alive": true, "is_married": true,
	"has_claim_on": true, "is_at_war": true, "num_sinful_traits": true,
	"faith": true, "culture": true, "religion": true, "exists": true,
	"is_landed": true, "has_title": true, "is_ai": true,
	"num_of_children": true, "is_pregnant": true, "has_dlc_feature": true,
}

// KnownEffects is the closed set of built-in effect names (representative
// subset; nothing extends it at run time).
var KnownEffects = map[string]bool{
	"add_gold": true, "add_prestige": true, "add_piety": true,
	"add_trait": true, "remove_trait": true, "add_character_flag": true,
	"remove_character_flag": true, "save_scope_as": true,
	"save_temporary_scope_as": true, "set_variable": true,
	"change_variable": true, "death": true, "imprison": true,
	"add_opinion": true, "trigger_event": true, "spawn_army": true,
}

// IteratorPrefixes are the four recognized loop-key prefixes (spec §4.D,
// GLOSSARY "Iterator").
var IteratorPrefixes = []string{"any_", "every_", "random_", "ordered_"}

// IteratorPrefix returns the recognized prefix of key and the remaining
// base name, or ("", key, false) if key is not an iterator key.
func IteratorPrefix(key string) (prefix, base string, ok bool) {
	for _, p := range IteratorPrefixes {
		if len(key) > len(p) && key[:len(p)] == p {
			return p, key[len(p):], true
		}
	}
	return "", key, false
}

// ClassifyBlock returns the BlockKind a key's block body should be
// evaluated in.
func ClassifyBlock(key string) BlockKind {
	switch {
	case TriggerBlockKeys[key]:
		return BlockTrigger
	case EffectBlockKeys[key]:
		return BlockEffect
	case key == "option":
		return BlockOption
	default:
		return BlockUnknown
	}
}
