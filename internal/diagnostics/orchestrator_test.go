package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/diag"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/index"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/parser"
)

func parseAndIndex(t *testing.T, src string) (*ast.Tree, *index.Index) {
	t.Helper()
	r := parser.Parse(src)
	require.Empty(t, r.Diagnostics, "fixture must parse cleanly")
	idx := index.New()
	idx.Replace("file:///a.txt", index.Extract(r.Tree))
	return r.Tree, idx
}

func TestRunAllCleanDocumentProducesNoDiagnostics(t *testing.T) {
	tree, idx := parseAndIndex(t, `my_mod.0001 = {
		type = character_event
		immediate = {
			liege.primary_title.holder.add_gold = 100
		}
	}`)
	o := New(nil)
	diags := o.RunAll(tree, "file:///a.txt", idx, ast.ScopeCharacter, nil)
	assert.Empty(t, diags)
}

func TestValidateEventsFlagsMissingType(t *testing.T) {
	tree, idx := parseAndIndex(t, `my_mod.0002 = {
		immediate = { add_gold = 10 }
	}`)
	diags := validateEvents(tree, "file:///a.txt", idx)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.CodeEventMissingType, diags[0].Code)
}

func TestValidateLocalizationFlagsUnresolvedKey(t *testing.T) {
	tree, idx := parseAndIndex(t, `my_mod.0003 = {
		type = character_event
		desc = my_mod.0003.desc
	}`)
	diags := validateLocalization(tree, "file:///a.txt", idx)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.CodeUnresolvedLocalization, diags[0].Code)
}

func TestValidateLocalizationAcceptsResolvedKey(t *testing.T) {
	tree, idx := parseAndIndex(t, `my_mod.0004 = {
		type = character_event
		desc = my_mod.0004.desc
	}`)
	idx.Replace("file:///loc.yml", []index.Contribution{{Category: index.CategoryLocalization, Name: "my_mod.0004.desc"}})
	diags := validateLocalization(tree, "file:///a.txt", idx)
	assert.Empty(t, diags)
}

func TestValidateScriptedBlockReferencesFlagsDuplicate(t *testing.T) {
	tree, _ := parseAndIndex(t, `scripted_effect = { my_effect = { add_gold = 10 } }`)
	idx := index.New()
	idx.Replace("file:///a.txt", []index.Contribution{{Category: index.CategoryScriptedEffect, Name: "my_effect"}})
	idx.Replace("file:///b.txt", []index.Contribution{{Category: index.CategoryScriptedEffect, Name: "my_effect"}})
	diags := validateScriptedBlockReferences(tree, "file:///a.txt", idx)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.CodeDuplicateDefinition, diags[0].Code)
	assert.Len(t, diags[0].Related, 2)
}

func TestValidateConventionsFlagsBadEventID(t *testing.T) {
	tree, idx := parseAndIndex(t, `my_mod.not_a_number = {
		type = character_event
	}`)
	diags := validateConventions(tree, "file:///a.txt", idx)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.CodeNamingConvention, diags[0].Code)
}

func TestValidateScopeTimingFlagsUseBeforeSave(t *testing.T) {
	tree, idx := parseAndIndex(t, `my_mod.0005 = {
		type = character_event
		immediate = {
			scope:foo = yes
			save_scope_as = foo
		}
	}`)
	diags := validateScopeTiming(tree, "file:///a.txt", idx)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.CodeScopeUsedBeforeSaved, diags[0].Code)
}

func TestValidateScopeTimingAcceptsUseAfterSave(t *testing.T) {
	tree, idx := parseAndIndex(t, `my_mod.0006 = {
		type = character_event
		immediate = {
			save_scope_as = foo
			scope:foo = yes
		}
	}`)
	diags := validateScopeTiming(tree, "file:///a.txt", idx)
	assert.Empty(t, diags)
}

func TestValidateDependenciesFlagsUnresolvedScriptedEffectCall(t *testing.T) {
	tree, idx := parseAndIndex(t, `scripted_effect = { my_effect = { other_effect = yes } }`)
	diags := validateDependencies(tree, "file:///a.txt", idx)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.CodeDanglingReference, diags[0].Code)
}

func TestValidateDependenciesAcceptsCallToDefinedScriptedEffect(t *testing.T) {
	tree, idx := parseAndIndex(t, `scripted_effect = { my_effect = { other_effect = yes } }`)
	idx.Replace("file:///b.txt", []index.Contribution{{Category: index.CategoryScriptedEffect, Name: "other_effect"}})
	diags := validateDependencies(tree, "file:///a.txt", idx)
	assert.Empty(t, diags)
}

func TestValidateDependenciesFlagsUnresolvedOnAction(t *testing.T) {
	tree, idx := parseAndIndex(t, `my_mod.0007 = {
		type = character_event
		immediate = {
			on_action = { my_action = yes }
		}
	}`)
	diags := validateDependencies(tree, "file:///a.txt", idx)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.CodeDanglingReference, diags[0].Code)
}

func TestValidateDependenciesAcceptsKnownOnAction(t *testing.T) {
	tree, idx := parseAndIndex(t, `my_mod.0008 = {
		type = character_event
		immediate = {
			on_action = { my_action = yes }
		}
	}`)
	idx.Replace("file:///c.txt", []index.Contribution{{Category: index.CategoryOnAction, Name: "my_action"}})
	diags := validateDependencies(tree, "file:///a.txt", idx)
	assert.Empty(t, diags)
}

func TestSplitSeparatesSyntaxFromSemantic(t *testing.T) {
	diags := []diag.Diagnostic{
		{Code: diag.CodeUnmatchedRBrace},
		{Code: diag.CodeUnknownTrigger},
		{Code: diag.CodeEventMissingType},
	}
	syntax, semantic := Split(diags)
	require.Len(t, syntax, 1)
	require.Len(t, semantic, 2)
	assert.Equal(t, diag.CodeUnmatchedRBrace, syntax[0].Code)
}
