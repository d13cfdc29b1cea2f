package schema

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/log"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/parser"
)

// TestBundledEventSchemaLoadsAndValidates exercises the repository's own
// schemas/events.yaml through the real Load path rather than a synthetic
// fixture, confirming the shipped data file compiles and evaluates the
// way its rules intend.
func TestBundledEventSchemaLoadsAndValidates(t *testing.T) {
	schemas, err := Load(afero.NewOsFs(), "../../schemas", log.NewNop())
	require.NoError(t, err)
	require.Len(t, schemas, 1)

	s := schemas[0]
	assert.Equal(t, "event", s.Name)
	assert.True(t, s.Matches("file:///mod/events/a.txt", "my_mod.0001"))
	assert.False(t, s.Matches("file:///mod/events/a.txt", "scripted_effect"))

	r := NewRegistry(schemas)

	complete := mustParseBlock(t, `my_mod.0001 = {
		type = character_event
		title = my_mod.0001.t
		desc = my_mod.0001.desc
		option = { name = my_mod.0001.a }
	}`)
	assert.Empty(t, Validate(r, "file:///mod/events/a.txt", complete))

	missingOption := mustParseBlock(t, `my_mod.0002 = {
		type = character_event
		title = my_mod.0002.t
		desc = my_mod.0002.desc
	}`)
	diags := Validate(r, "file:///mod/events/a.txt", missingOption)
	require.NotEmpty(t, diags)
	var sawMissingOption bool
	for _, d := range diags {
		if d.Code == "CK3EVT4" {
			sawMissingOption = true
		}
	}
	assert.True(t, sawMissingOption, "character_event without an option should flag CK3EVT4, got %+v", diags)

	letterWithoutSender := mustParseBlock(t, `my_mod.0003 = {
		type = letter_event
		title = my_mod.0003.t
		desc = my_mod.0003.desc
	}`)
	diags = Validate(r, "file:///mod/events/a.txt", letterWithoutSender)
	require.NotEmpty(t, diags)
	var sawMissingSender bool
	for _, d := range diags {
		if d.Code == "CK3EVT5" {
			sawMissingSender = true
		}
	}
	assert.True(t, sawMissingSender, "letter_event without a sender should flag CK3EVT5, got %+v", diags)
}

func mustParseBlock(t *testing.T, src string) *ast.Tree {
	t.Helper()
	r := parser.Parse(src)
	require.Empty(t, r.Diagnostics, "fixture must parse cleanly")
	return r.Tree
}
