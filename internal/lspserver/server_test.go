package lspserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/log"
)

func TestDocumentRangeSpansTheLastLine(t *testing.T) {
	r := documentRange("a = b\nc = d\n")
	assert.Equal(t, ast.Position{}, r.Start)
	assert.Equal(t, ast.Position{Line: 2, Character: 0}, r.End)
}

func TestFormatEditsReplacesAMisformattedDocument(t *testing.T) {
	ws, rec := newTestWorkspace(t)
	srv := NewServer(ws, log.NewNop())
	uri := "file:///mod/events/a.txt"
	ws.DidChange(uri, "my_mod.1={type=character_event}")
	mustPublishOnce(t, rec, uri)

	edits := srv.formatEdits(uri)
	require.Len(t, edits, 1)
	assert.Equal(t, "my_mod.1 = {\n\ttype = character_event\n}\n", edits[0].NewText)
}

func TestFormatEditsReturnsNoneForAnAlreadyFormattedDocument(t *testing.T) {
	ws, rec := newTestWorkspace(t)
	srv := NewServer(ws, log.NewNop())
	uri := "file:///mod/events/a.txt"
	ws.DidChange(uri, "my_mod.1 = {\n\ttype = character_event\n}\n")
	mustPublishOnce(t, rec, uri)

	assert.Empty(t, srv.formatEdits(uri))
}

func TestFormatEditsReturnsNoneForAnUnknownDocument(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	srv := NewServer(ws, log.NewNop())
	assert.Empty(t, srv.formatEdits("file:///mod/events/never-opened.txt"))
}
