package schema

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/parser"
)

// eventSchema is a hand-built schema in the shape a schema file such as
// schemas/events.yaml compiles to: a required enum type field, an option
// block that must occur at least once, at-most-once desc and immediate
// fields, and a has_option rule.
func eventSchema(t *testing.T) *Schema {
	t.Helper()
	typeRule, err := ParseExpr("type.value == character_event")
	require.NoError(t, err)
	optionRule, err := ParseExpr("option.exists")
	require.NoError(t, err)

	return &Schema{
		Name:            "event",
		BlockKeyPattern: nil,
		Fields: map[string]*Field{
			"type": {Type: FieldEnum, Required: true, Enum: []string{"character_event", "letter_event"}, Code: "CK3EVT1"},
			"desc": {Type: FieldString, MaxOccurs: 1, Code: "CK3EVT2"},
			"option": {Type: FieldBlock, MinOccurs: 1, Code: "CK3EVT3"},
			"immediate": {Type: FieldBlock, MaxOccurs: 1},
		},
		Rules: []Rule{
			{Name: "is_character_event", Expr: typeRule},
			{Name: "has_option", Expr: optionRule, Code: "CK3EVT4", Message: "character events must declare at least one option"},
		},
		Docs: map[string]FieldDoc{
			"type": {Description: "the event category", Detail: "event type", Snippet: "type = character_event"},
		},
		Symbols: []SymbolEntry{
			{Field: "option", Kind: "Property"},
		},
		DefaultCode: "CK3EVT0",
	}
}

func parseBlock(t *testing.T, src string) (*ast.Tree, *ast.Node) {
	t.Helper()
	r := parser.Parse(src)
	require.Empty(t, r.Diagnostics, "fixture must parse cleanly")
	root := r.Tree.Get(r.Tree.Root)
	require.Len(t, root.Children, 1)
	return r.Tree, r.Tree.Get(root.Children[0])
}

func TestEvaluateBlockAcceptsCompleteEvent(t *testing.T) {
	s := eventSchema(t)
	tree, n := parseBlock(t, `my_mod.0001 = {
		type = character_event
		option = { name = my_mod.0001.a }
	}`)
	diags := evaluateBlock(tree, s, n)
	assert.Empty(t, diags)
}

func TestEvaluateBlockFlagsMissingRequiredField(t *testing.T) {
	s := eventSchema(t)
	tree, n := parseBlock(t, `my_mod.0002 = {
		option = { name = my_mod.0002.a }
	}`)
	diags := evaluateBlock(tree, s, n)
	require.NotEmpty(t, diags)
	assert.Equal(t, "CK3EVT1", diags[0].Code)
}

func TestEvaluateBlockFlagsUnknownEnumValue(t *testing.T) {
	s := eventSchema(t)
	tree, n := parseBlock(t, `my_mod.0003 = {
		type = nonsense_event
		option = { name = my_mod.0003.a }
	}`)
	diags := evaluateBlock(tree, s, n)
	var found bool
	for _, d := range diags {
		if d.Code == "CK3EVT1" {
			found = true
		}
	}
	assert.True(t, found, "expected an enum-violation diagnostic, got %+v", diags)
}

func TestEvaluateBlockFlagsExcessOccurrences(t *testing.T) {
	s := eventSchema(t)
	tree, n := parseBlock(t, `my_mod.0004 = {
		type = character_event
		desc = my_mod.0004.desc1
		desc = my_mod.0004.desc2
		option = { name = my_mod.0004.a }
	}`)
	diags := evaluateBlock(tree, s, n)
	var found bool
	for _, d := range diags {
		if d.Code == "CK3EVT2" {
			found = true
		}
	}
	assert.True(t, found, "expected a max-occurs violation, got %+v", diags)
}

func TestEvaluateBlockFlagsMissingMinOccurs(t *testing.T) {
	s := eventSchema(t)
	tree, n := parseBlock(t, `my_mod.0005 = {
		type = character_event
	}`)
	diags := evaluateBlock(tree, s, n)
	var found bool
	for _, d := range diags {
		if d.Code == "CK3EVT3" {
			found = true
		}
	}
	assert.True(t, found, "expected a min-occurs violation for missing option, got %+v", diags)
}

func TestEvaluateBlockFlagsUnexpectedField(t *testing.T) {
	s := eventSchema(t)
	tree, n := parseBlock(t, `my_mod.0006 = {
		type = character_event
		option = { name = my_mod.0006.a }
		bogus_field = yes
	}`)
	diags := evaluateBlock(tree, s, n)
	var found bool
	for _, d := range diags {
		if d.Message == "'bogus_field' is not a recognized field of 'event'" {
			found = true
		}
	}
	assert.True(t, found, "expected an unexpected-field diagnostic, got %+v", diags)
}

func TestEvaluateBlockAppliesCrossFieldRule(t *testing.T) {
	s := eventSchema(t)
	tree, n := parseBlock(t, `my_mod.0007 = {
		type = character_event
		immediate = { add_gold = 10 }
	}`)
	diags := evaluateBlock(tree, s, n)
	var found bool
	for _, d := range diags {
		if d.Code == "CK3EVT4" {
			found = true
		}
	}
	assert.True(t, found, "has_option rule should fire when option is absent, got %+v", diags)
}

func TestHoverResolvesKnownField(t *testing.T) {
	s := eventSchema(t)
	doc, ok := Hover(s, "type")
	require.True(t, ok)
	assert.Equal(t, "event type", doc.Detail)
}

func TestHoverMissesUnknownField(t *testing.T) {
	s := eventSchema(t)
	_, ok := Hover(s, "nonexistent")
	assert.False(t, ok)
}

func TestCompletionsOmitFieldsAtMaxOccurs(t *testing.T) {
	s := eventSchema(t)
	tree, n := parseBlock(t, `my_mod.0008 = {
		type = character_event
		desc = my_mod.0008.desc1
		option = { name = my_mod.0008.a }
	}`)
	items := Completions(tree, s, n)
	for _, it := range items {
		assert.NotEqual(t, "desc", it.Label, "desc already at max_occurs and should not be proposed again")
	}
}

func TestSymbolsCollectsEachMatchingChild(t *testing.T) {
	s := eventSchema(t)
	tree, n := parseBlock(t, `my_mod.0009 = {
		type = character_event
		option = { name = my_mod.0009.a }
		option = { name = my_mod.0009.b }
	}`)
	syms := Symbols(tree, s, n)
	require.Len(t, syms, 2)
	assert.Equal(t, "Property", syms[0].Kind)
}

func TestValidateMatchesSchemaByBlockKeyPattern(t *testing.T) {
	s := eventSchema(t)
	s.BlockKeyPattern = regexp.MustCompile(`^[a-z_]+\.[0-9]+$`)
	r := NewRegistry([]*Schema{s})
	tree, _ := parseBlock(t, `my_mod.0010 = {
		type = character_event
		option = { name = my_mod.0010.a }
	}`)
	diags := Validate(r, "events/my_mod_events.txt", tree)
	assert.Empty(t, diags)

	// A key outside the pattern is not evaluated against the schema, so
	// its missing type and unknown field go unreported.
	other, _ := parseBlock(t, `not_an_event = { bogus_field = yes }`)
	assert.Empty(t, Validate(r, "events/my_mod_events.txt", other))
}
