// Package lspserver implements the external interface of spec §6: an LSP
// transport over stdio wired to internal/docpipeline, internal/features,
// internal/scan, and internal/schema, grounded on the teacher's
// Handler.Handle (xpls/handler.go:104-176) — a single jsonrpc2.Handler
// method switching on r.Method — generalized from four LSP methods
// (initialize, initialized, textDocument/didSave) to the full capability
// set §6 advertises, and on xpls/server/server.go's one-method-per-
// function style for the per-request handler bodies.
//
// internal/features' adapters return plain ast.Position/ast.Range-keyed
// result types rather than sourcegraph/go-lsp wire types, since the
// pinned go-lsp commit (2020-04) predates the LSP 3.16 semantic-tokens
// and 3.17 inlay-hint additions §6 requires. Rather than embed a partial
// lsp.ServerCapabilities and lsp.* request/response set alongside
// hand-rolled structs for the rest, this package defines its own
// complete wire-format types in wire.go for every shape beyond the four
// the teacher's own code confirms go-lsp carries (InitializeParams,
// PublishDiagnosticsParams, Diagnostic, Range/Position) — one consistent
// translation boundary instead of a patchwork of two type systems.
package lspserver

import (
	"context"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/diag"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/diagnostics"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/docpipeline"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/index"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/lexer"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/locale"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/log"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/pool"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/scan"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/schema"
)

// rootScope is every document's root scope-annotation seed. CK3 event and
// scripted-effect bodies overwhelmingly execute in character scope; no
// workspace setting overrides it.
const rootScope = ast.ScopeCharacter

// Workspace aggregates every subsystem a running server needs: the
// parse/validate pipeline, the cross-file index, the schema registry and
// its reload watch, and the workspace scanner. One Workspace exists per
// server process, constructed at startup; Initialize records the
// client's root path when `initialize` arrives.
type Workspace struct {
	fs   afero.Fs
	log  log.Logger
	pool *pool.Pool

	idx     *index.Index
	orch    *diagnostics.Orchestrator
	pipe    *docpipeline.Pipeline
	scanner *scan.Scanner

	mu         sync.RWMutex
	root       string
	schemasDir string
	schemas    *schema.Registry
	watcher    *schema.Watcher

	publish PublishFunc
}

// PublishFunc forwards one document's staged diagnostics to the client,
// set by Server before any document activity begins. An alias (not a
// distinct named type) so it is interchangeable with docpipeline's own
// PublishFunc without a conversion at the call site.
type PublishFunc = docpipeline.PublishFunc

// New constructs a Workspace with its own worker pool and orchestrator.
// schemasDir names a directory, relative to root once Initialize is
// called, whose `*.yaml`/`*.yml` files are loaded as the schema
// registry and watched for changes.
func New(fs afero.Fs, logger log.Logger, workers int, schemasDir string) *Workspace {
	p := pool.New(workers, logger)
	orch := diagnostics.New(nil)
	idx := index.New()
	return &Workspace{
		fs:         fs,
		log:        logger,
		pool:       p,
		idx:        idx,
		orch:       orch,
		scanner:    scan.New(fs, logger),
		schemasDir: schemasDir,
	}
}

// Initialize records the workspace root, loads and watches the schema
// directory under it (if present), and performs an initial scan so the
// index is populated before the client sends its first request.
func (w *Workspace) Initialize(ctx context.Context, root string, publish PublishFunc) {
	w.mu.Lock()
	w.root = root
	w.publish = publish
	w.pipe = docpipeline.New(w.pool, w.orch, w.idx, publish, w.log, rootScope)
	w.mu.Unlock()

	dir := schemaDirPath(root, w.schemasDir)
	if schemas, err := schema.Load(w.fs, dir, w.log); err == nil {
		reg := schema.NewRegistry(schemas)
		w.orch.SetSchemas(reg)
		w.mu.Lock()
		w.schemas = reg
		w.mu.Unlock()
		onReload := func(r *schema.Registry) {
			w.orch.SetSchemas(r)
			w.mu.Lock()
			w.schemas = r
			w.mu.Unlock()
		}
		if wt, err := schema.NewWatcher(w.fs, dir, w.log, onReload); err == nil {
			w.mu.Lock()
			w.watcher = wt
			w.mu.Unlock()
		}
	} else {
		w.log.Debug("schema directory unavailable, schema stage disabled", "dir", dir, "error", err.Error())
	}

	if _, _, err := w.scanner.Scan(ctx, root, w.idx); err != nil {
		w.log.Debug("initial workspace scan failed", "error", err.Error())
	}
}

func schemaDirPath(root, schemasDir string) string {
	if schemasDir == "" {
		return root
	}
	if root == "" {
		return schemasDir
	}
	return root + "/" + schemasDir
}

// localeURIExt is the suffix DidChange checks to route a document to
// the locale scanner instead of the scripted-language pipeline.
const localeURIExt = ".yml"

// DidChange schedules a debounced re-validation cycle for uri (spec
// §4.I); used for both textDocument/didOpen and textDocument/didChange
// since both supply the document's full current text. A `.yml` URI is
// a localization file, not a scripted-language document: running
// internal/parser's grammar over it would produce nothing but noise,
// so its contributions are merged directly via internal/locale instead
// of going through the debounced AST pipeline.
func (w *Workspace) DidChange(uri, text string) {
	if strings.HasSuffix(uri, localeURIExt) {
		w.idx.Replace(uri, locale.Extract(text))
		return
	}
	w.mu.RLock()
	pipe := w.pipe
	w.mu.RUnlock()
	if pipe == nil {
		return
	}
	pipe.DidChange(uri, text)
}

// DidClose drops uri's contributions from the index; its last-published
// diagnostics are left for the client to clear via an empty
// publishDiagnostics, which callers send separately.
func (w *Workspace) DidClose(uri string) {
	w.idx.Remove(uri)
}

// Tree returns the most recently parsed AST for an open document.
func (w *Workspace) Tree(uri string) (*ast.Tree, bool) {
	w.mu.RLock()
	pipe := w.pipe
	w.mu.RUnlock()
	if pipe == nil {
		return nil, false
	}
	return pipe.Tree(uri)
}

// URIs lists every document the pipeline has completed at least one
// update cycle for.
func (w *Workspace) URIs() []string {
	w.mu.RLock()
	pipe := w.pipe
	w.mu.RUnlock()
	if pipe == nil {
		return nil
	}
	return pipe.URIs()
}

// Comments returns uri's comment tokens from its most recent parse, for
// folding-range's comment-block folding.
func (w *Workspace) Comments(uri string) ([]lexer.Token, bool) {
	w.mu.RLock()
	pipe := w.pipe
	w.mu.RUnlock()
	if pipe == nil {
		return nil, false
	}
	return pipe.Comments(uri)
}

// Source returns uri's most recently received text, used by the
// formatting handlers to know the document's full extent.
func (w *Workspace) Source(uri string) (string, bool) {
	w.mu.RLock()
	pipe := w.pipe
	w.mu.RUnlock()
	if pipe == nil {
		return "", false
	}
	return pipe.Source(uri)
}

// Diagnostics returns uri's last published diagnostic set.
func (w *Workspace) Diagnostics(uri string) ([]diag.Diagnostic, bool) {
	w.mu.RLock()
	pipe := w.pipe
	w.mu.RUnlock()
	if pipe == nil {
		return nil, false
	}
	return pipe.Diagnostics(uri)
}

// Index exposes the workspace symbol index to feature adapters.
func (w *Workspace) Index() *index.Index { return w.idx }

// Orchestrator exposes the validator pipeline. No command calls it:
// validate_workspace and check_dependencies read the pipeline's cached
// diagnostics, and rescan_workspace only re-runs the scanner.
func (w *Workspace) Orchestrator() *diagnostics.Orchestrator { return w.orch }

// Schemas returns the registry currently in effect, or nil.
func (w *Workspace) Schemas() *schema.Registry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.schemas
}

// Root returns the workspace root path recorded at initialize.
func (w *Workspace) Root() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.root
}

// Scanner exposes the workspace scanner to rescan_workspace.
func (w *Workspace) Scanner() *scan.Scanner { return w.scanner }

// FS exposes the backing filesystem. No command reads or writes files
// through it: generate_event_template and generate_localization_stubs
// return their text in the command result.
func (w *Workspace) FS() afero.Fs { return w.fs }

// Close shuts down every subsystem the workspace owns, in the order
// spec §5 specifies: stop accepting new document updates, then shut the
// pool down, which cancels queued tasks and signals running ones. The
// zero timeout means Close does not wait for running tasks to return.
func (w *Workspace) Close() {
	w.mu.Lock()
	pipe, wt := w.pipe, w.watcher
	w.mu.Unlock()
	if pipe != nil {
		pipe.Close()
	}
	if wt != nil {
		wt.Close()
	}
	w.pool.Shutdown(true, 0)
}
