package scan

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/index"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/log"
)

func TestScanMergesAllFilesIntoIndex(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mod/events/a.txt", []byte(`scripted_effect = { my_effect = { add_gold = 10 } }`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/mod/events/b.txt", []byte(`my_mod.0001 = { type = character_event }`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/mod/readme.md", []byte(`not a script file`), 0o644))

	s := New(fs, log.NewNop())
	idx := index.New()
	stats, diags, err := s.Scan(context.Background(), "/mod", idx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ScannedFiles)
	assert.Empty(t, diags)

	syms := idx.Lookup(index.CategoryScriptedEffect, "my_effect")
	require.Len(t, syms, 1)
	assert.Equal(t, "file:///mod/events/a.txt", syms[0].URI)
}

func TestScanCountsFilesWithDiagnostics(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mod/broken.txt", []byte(`a = { b = c`), 0o644))

	s := New(fs, log.NewNop())
	idx := index.New()
	stats, diags, err := s.Scan(context.Background(), "/mod", idx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ScannedFiles)
	assert.Equal(t, 1, stats.Errors)
	assert.Len(t, diags["file:///mod/broken.txt"], 1)
}

func TestScanMergesLocaleFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mod/events/a.txt", []byte(`my_mod.0001 = { type = character_event }`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/mod/localization/english/l_english.yml", []byte("l_english:\n my_mod.0001.t:0 \"A Title\"\n"), 0o644))

	s := New(fs, log.NewNop())
	idx := index.New()
	stats, diags, err := s.Scan(context.Background(), "/mod", idx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ScannedFiles)
	assert.Empty(t, diags)

	syms := idx.Lookup(index.CategoryLocalization, "my_mod.0001.t")
	require.Len(t, syms, 1)
	assert.Equal(t, "A Title", syms[0].Attrs["text"])
}

func TestScanIgnoresEmptyWorkspace(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/mod", 0o755))

	s := New(fs, log.NewNop())
	idx := index.New()
	stats, diags, err := s.Scan(context.Background(), "/mod", idx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ScannedFiles)
	assert.Empty(t, diags)
}
