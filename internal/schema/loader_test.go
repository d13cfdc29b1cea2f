package schema

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/log"
)

const eventYAML = `
name: event
path_globs: ["events/*.txt"]
block_key_pattern: "^[a-z_]+\\.[0-9]+$"
fields:
  type:
    type: enum
    required: true
    enum: [character_event, letter_event]
    code: CK3EVT1
  option:
    type: block
    min_occurs: 1
    code: CK3EVT3
rules:
  - name: has_option
    expr: "option.exists"
    code: CK3EVT4
    message: "character events must declare at least one option"
docs:
  type:
    description: the event category
    detail: event type
    snippet: "type = character_event"
symbols:
  - field: option
    kind: Property
`

func TestLoadDecodesWellFormedSchema(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/schemas/event.yaml", []byte(eventYAML), 0o644))

	schemas, err := Load(fsys, "/schemas", log.NewNop())
	require.NoError(t, err)
	require.Len(t, schemas, 1)

	s := schemas[0]
	assert.Equal(t, "event", s.Name)
	assert.True(t, s.Matches("events/my_mod.txt", "my_mod.0001"))
	assert.False(t, s.Matches("triggers/my_mod.txt", "my_mod.0001"))
	assert.False(t, s.Matches("events/my_mod.txt", "not_an_event_id"))

	require.Contains(t, s.Fields, "type")
	assert.True(t, s.Fields["type"].Required)
	require.Len(t, s.Rules, 1)
	assert.Equal(t, "CK3EVT4", s.Rules[0].Code)
}

func TestLoadSkipsMalformedFileWithoutAborting(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/schemas/good.yaml", []byte(eventYAML), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/schemas/bad.yaml", []byte("not: [valid: yaml"), 0o644))

	schemas, err := Load(fsys, "/schemas", log.NewNop())
	require.NoError(t, err)
	require.Len(t, schemas, 1)
	assert.Equal(t, "event", schemas[0].Name)
}

func TestLoadSkipsSchemaWithInvalidBlockKeyPattern(t *testing.T) {
	fsys := afero.NewMemMapFs()
	bad := `
name: broken
block_key_pattern: "("
`
	require.NoError(t, afero.WriteFile(fsys, "/schemas/broken.yaml", []byte(bad), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/schemas/good.yaml", []byte(eventYAML), 0o644))

	schemas, err := Load(fsys, "/schemas", log.NewNop())
	require.NoError(t, err)
	require.Len(t, schemas, 1)
	assert.Equal(t, "event", schemas[0].Name)
}

func TestRegistryMatchReturnsOnlyApplicableSchemas(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/schemas/event.yaml", []byte(eventYAML), 0o644))
	schemas, err := Load(fsys, "/schemas", log.NewNop())
	require.NoError(t, err)

	r := NewRegistry(schemas)
	assert.Len(t, r.Match("events/my_mod.txt", "my_mod.0001"), 1)
	assert.Empty(t, r.Match("events/my_mod.txt", "not_an_event_id"))
	assert.Len(t, r.All(), 1)
}
