package docpipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/diag"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/diagnostics"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/index"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/log"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/pool"
)

type recordingPublisher struct {
	mu    sync.Mutex
	calls [][]diag.Diagnostic
}

func (r *recordingPublisher) publish(uri string, diags []diag.Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, diags)
}

func (r *recordingPublisher) last() []diag.Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestPipeline(t *testing.T) (*Pipeline, *recordingPublisher) {
	t.Helper()
	p := pool.New(2, log.NewNop())
	t.Cleanup(func() { p.Shutdown(false, time.Second) })
	o := diagnostics.New(nil)
	idx := index.New()
	rec := &recordingPublisher{}
	return New(p, o, idx, rec.publish, log.NewNop(), ast.ScopeCharacter), rec
}

func TestDidChangePublishesTwoStagesForCleanDocument(t *testing.T) {
	pl, rec := newTestPipeline(t)
	pl.DidChange("file:///a.txt", `my_mod.0001 = {
		type = character_event
		immediate = { add_gold = 10 }
	}`)

	require.Eventually(t, func() bool { return rec.count() >= 2 }, time.Second, 5*time.Millisecond)
	last := rec.last()
	for _, d := range last {
		assert.NotEqual(t, diag.CodeUnmatchedRBrace, d.Code)
	}
}

func TestDidChangeSupersededVersionDropsStaleCycle(t *testing.T) {
	pl, rec := newTestPipeline(t)
	pl.DidChange("file:///a.txt", `a = { b = c }`)
	pl.DidChange("file:///a.txt", `a = { b = c }`)

	time.Sleep(200 * time.Millisecond)
	assert.LessOrEqual(t, rec.count(), 2, "the superseded first cycle must not publish")
}

func TestTreeAndURIsReflectTheLatestCompletedCycle(t *testing.T) {
	pl, rec := newTestPipeline(t)
	pl.DidChange("file:///a.txt", `a = { b = c }`)
	require.Eventually(t, func() bool { return rec.count() >= 2 }, time.Second, 5*time.Millisecond)

	tree, ok := pl.Tree("file:///a.txt")
	require.True(t, ok)
	require.NotNil(t, tree)
	assert.Contains(t, pl.URIs(), "file:///a.txt")

	_, ok = pl.Tree("file:///never-opened.txt")
	assert.False(t, ok)
}

func TestCommentsAndDiagnosticsReflectTheLatestCompletedCycle(t *testing.T) {
	pl, rec := newTestPipeline(t)
	pl.DidChange("file:///a.txt", "# a leading comment\na = { b = c }")
	require.Eventually(t, func() bool { return rec.count() >= 2 }, time.Second, 5*time.Millisecond)

	comments, ok := pl.Comments("file:///a.txt")
	require.True(t, ok)
	assert.Len(t, comments, 1)

	diags, ok := pl.Diagnostics("file:///a.txt")
	require.True(t, ok)
	assert.Equal(t, rec.last(), diags)

	_, ok = pl.Comments("file:///never-opened.txt")
	assert.False(t, ok)
	_, ok = pl.Diagnostics("file:///never-opened.txt")
	assert.False(t, ok)
}

func TestAdaptiveDebounceScalesWithDocumentSize(t *testing.T) {
	small := adaptiveDebounce("a = b\n")
	big := adaptiveDebounce(func() string {
		s := ""
		for i := 0; i < 6000; i++ {
			s += "x\n"
		}
		return s
	}())
	assert.Equal(t, 80*time.Millisecond, small)
	assert.Equal(t, 400*time.Millisecond, big)
}

func TestContentHashIsStableForIdenticalSource(t *testing.T) {
	assert.Equal(t, contentHash("same"), contentHash("same"))
	assert.NotEqual(t, contentHash("a"), contentHash("b"))
}

func TestCloseCancelsInFlightCycle(t *testing.T) {
	pl, rec := newTestPipeline(t)
	pl.DidChange("file:///a.txt", `a = { b = c }`)
	pl.Close()
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 0, rec.count(), "Close must cancel the cycle before its debounce elapses")
}
