// Package docpipeline implements the debounced, version-aware
// document-update pipeline of spec §4.I: per-URI version tracking,
// adaptive debounce, a content-hashed AST cache, and staged
// (syntax-then-semantic) diagnostics publication, grounded on the
// teacher's Dispatcher.DidChange (dispatcher.go:114-142) generalized
// from "reparse and validate synchronously on every keystroke" to
// "debounce, cache by content hash, stage the publish, and let the pool
// do the work off the event-loop thread."
package docpipeline

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/diag"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/diagnostics"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/index"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/lexer"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/log"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/parser"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/pool"
)

// defaultCacheSize is the AST cache's default entry bound (spec §4.I
// "size-bounded LRU, default 50 entries").
const defaultCacheSize = 50

// PublishFunc receives a document's current diagnostics for one
// publication (there are at most two per version, per §8's quantified
// invariant).
type PublishFunc func(uri string, diags []diag.Diagnostic)

type parseEntry struct {
	tree     *ast.Tree
	diags    []diag.Diagnostic
	comments []lexer.Token
}

type docState struct {
	version        int
	indexedVersion int
	cancel         context.CancelFunc
	source         string
	tree           *ast.Tree
	comments       []lexer.Token
	diags          []diag.Diagnostic
}

// Pipeline drives DidChange/DidOpen updates for every open document,
// dispatching CPU-bound work to a pool.Pool and publishing staged
// diagnostics through a PublishFunc (the LSP transport's notify call).
type Pipeline struct {
	pool         *pool.Pool
	orchestrator *diagnostics.Orchestrator
	idx          *index.Index
	publish      PublishFunc
	log          log.Logger
	rootScope    ast.ScopeType

	cacheMu sync.Mutex
	cache   *lru.Cache[string, parseEntry]

	docsMu sync.Mutex
	docs   map[string]*docState
}

// New constructs a Pipeline. rootScope is the scope type every parsed
// document's root is annotated against; CK3 event/effect files
// overwhelmingly execute in character scope, so that is the default
// every caller in this repo passes.
func New(p *pool.Pool, o *diagnostics.Orchestrator, idx *index.Index, publish PublishFunc, logger log.Logger, rootScope ast.ScopeType) *Pipeline {
	cache, _ := lru.New[string, parseEntry](defaultCacheSize)
	return &Pipeline{
		pool:         p,
		orchestrator: o,
		idx:          idx,
		publish:      publish,
		log:          logger,
		rootScope:    rootScope,
		cache:        cache,
		docs:         map[string]*docState{},
	}
}

// DidChange records a new version of uri's content and schedules a
// debounced re-validation cycle (spec §4.I steps 1-4).
func (p *Pipeline) DidChange(uri, source string) {
	p.docsMu.Lock()
	st, ok := p.docs[uri]
	if !ok {
		st = &docState{}
		p.docs[uri] = st
	}
	st.version++
	version := st.version
	st.source = source
	if st.cancel != nil {
		st.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	st.cancel = cancel
	p.docsMu.Unlock()

	debounce := adaptiveDebounce(source)
	go p.runCycle(ctx, uri, source, version, debounce)
}

// adaptiveDebounce implements spec §4.I step 2's size-based table.
func adaptiveDebounce(source string) time.Duration {
	lines := strings.Count(source, "\n") + 1
	switch {
	case lines < 500:
		return 80 * time.Millisecond
	case lines < 2000:
		return 150 * time.Millisecond
	case lines < 5000:
		return 250 * time.Millisecond
	default:
		return 400 * time.Millisecond
	}
}

func (p *Pipeline) currentVersion(uri string) int {
	p.docsMu.Lock()
	defer p.docsMu.Unlock()
	if st, ok := p.docs[uri]; ok {
		return st.version
	}
	return 0
}

func (p *Pipeline) runCycle(ctx context.Context, uri, source string, version int, debounce time.Duration) {
	select {
	case <-time.After(debounce):
	case <-ctx.Done():
		return
	}
	// (a) stale check.
	if p.currentVersion(uri) != version {
		return
	}

	entry, err := p.parseOrCacheHit(ctx, uri, source)
	if err != nil {
		return
	}
	if p.currentVersion(uri) != version {
		return
	}

	// (c) index update, guarded in the fixed lock order spec §4.I
	// requires: AST lock (held implicitly by this single-writer-per-URI
	// goroutine) before the index lock (internal to Index.Replace).
	p.idx.Replace(uri, index.Extract(entry.tree))

	// (d) syntax+scope, published immediately.
	staged := p.orchestrator.RunSyntaxAndScope(entry.tree, p.rootScope, entry.diags)
	if p.currentVersion(uri) != version {
		return
	}
	p.publish(uri, staged)

	// (e) semantic+schema+domain, published as the full concatenation.
	if p.currentVersion(uri) != version {
		return
	}
	semantic := p.orchestrator.RunSemantic(entry.tree, uri, p.idx)
	if p.currentVersion(uri) != version {
		return
	}
	full := append(append([]diag.Diagnostic(nil), staged...), semantic...)
	p.publish(uri, full)

	p.docsMu.Lock()
	if st, ok := p.docs[uri]; ok && st.version == version {
		st.indexedVersion = version
		st.tree = entry.tree
		st.comments = entry.comments
		st.diags = full
	}
	p.docsMu.Unlock()
}

// Diagnostics returns the last diagnostic set published for uri, the
// concatenation RunSyntaxAndScope+RunSemantic staged over the wire
// (spec §4.I step 4.e "full concatenation"), used by the
// validate_workspace and check_dependencies commands (spec §6) to
// report the workspace's current diagnostic state without re-running
// the pipeline synchronously.
func (p *Pipeline) Diagnostics(uri string) ([]diag.Diagnostic, bool) {
	p.docsMu.Lock()
	defer p.docsMu.Unlock()
	st, ok := p.docs[uri]
	if !ok || st.tree == nil {
		return nil, false
	}
	return st.diags, true
}

// Tree returns the most recently published AST for uri, if any update
// cycle has completed for it.
func (p *Pipeline) Tree(uri string) (*ast.Tree, bool) {
	p.docsMu.Lock()
	defer p.docsMu.Unlock()
	st, ok := p.docs[uri]
	if !ok || st.tree == nil {
		return nil, false
	}
	return st.tree, true
}

// Comments returns the comment tokens from uri's most recent parse,
// used by folding-range to fold multi-line comment blocks (spec §4.J).
func (p *Pipeline) Comments(uri string) ([]lexer.Token, bool) {
	p.docsMu.Lock()
	defer p.docsMu.Unlock()
	st, ok := p.docs[uri]
	if !ok || st.tree == nil {
		return nil, false
	}
	return st.comments, true
}

// Source returns the most recently received text for uri, regardless
// of whether its update cycle has completed yet, used by formatting
// (spec §4.J) to know the full extent of the document it is replacing.
func (p *Pipeline) Source(uri string) (string, bool) {
	p.docsMu.Lock()
	defer p.docsMu.Unlock()
	st, ok := p.docs[uri]
	if !ok {
		return "", false
	}
	return st.source, true
}

// URIs returns every URI this Pipeline has completed at least one
// update cycle for, used by workspace-wide commands that need to walk
// every currently known document (e.g. find_orphaned_localization).
func (p *Pipeline) URIs() []string {
	p.docsMu.Lock()
	defer p.docsMu.Unlock()
	out := make([]string, 0, len(p.docs))
	for uri, st := range p.docs {
		if st.tree != nil {
			out = append(out, uri)
		}
	}
	return out
}

func (p *Pipeline) parseOrCacheHit(ctx context.Context, uri, source string) (parseEntry, error) {
	hash := contentHash(source)

	p.cacheMu.Lock()
	entry, hit := p.cache.Get(hash)
	p.cacheMu.Unlock()
	if hit {
		return entry, nil
	}

	var result parseEntry
	h := p.pool.Submit(ctx, pool.High, "parse:"+uri, func(ctx context.Context) error {
		r := parser.Parse(source)
		result = parseEntry{tree: r.Tree, diags: r.Diagnostics, comments: r.Comments}
		return nil
	})
	<-h.Done()
	if h.Record().Status != pool.StatusCompleted {
		return parseEntry{}, ctx.Err()
	}

	p.cacheMu.Lock()
	p.cache.Add(hash, result)
	p.cacheMu.Unlock()
	return result, nil
}

func contentHash(source string) string {
	sum := md5.Sum([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Close cancels every in-flight update cycle, used at shutdown before
// the pool itself drains (spec §5 "Shutdown cancels all pending
// tasks").
func (p *Pipeline) Close() {
	p.docsMu.Lock()
	defer p.docsMu.Unlock()
	for _, st := range p.docs {
		if st.cancel != nil {
			st.cancel()
		}
	}
}
