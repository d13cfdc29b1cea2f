package schema

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/log"
)

// yamlFile is the on-disk shape of a schema file (spec §3 "Schema"),
// decoded with gopkg.in/yaml.v3 — the teacher's own direct dependency
// for YAML, kept instead of its goccy/go-yaml AST reader since our
// schema files need no token-level position tracking (our hand-written
// parser already produces ranges for the *scripted-language* documents
// schemas validate; the schema file itself needs no diagnostics of its
// own beyond "ignored with a warning" per spec §6).
type yamlFile struct {
	Name            string              `yaml:"name"`
	PathGlobs       []string            `yaml:"path_globs"`
	BlockKeyPattern string              `yaml:"block_key_pattern"`
	Constants       map[string][]string `yaml:"constants"`
	Fields          map[string]yamlField `yaml:"fields"`
	Nested          map[string]yamlFile `yaml:"nested"`
	Rules           []yamlRule          `yaml:"rules"`
	Docs            map[string]yamlDoc  `yaml:"docs"`
	Symbols         []SymbolEntry       `yaml:"symbols"`
	CodeLens        []CodeLensEntry     `yaml:"code_lens"`
	DefaultCode     string              `yaml:"default_code"`
}

type yamlField struct {
	Type         string   `yaml:"type"`
	Required     bool     `yaml:"required"`
	RequiredWhen string   `yaml:"required_when"`
	MinOccurs    int      `yaml:"min_occurs"`
	MaxOccurs    int      `yaml:"max_occurs"`
	Enum         []string `yaml:"enum"`
	Ref          string   `yaml:"ref"`
	Code         string   `yaml:"code"`
	Default      string   `yaml:"default"`
}

type yamlRule struct {
	Name    string `yaml:"name"`
	Expr    string `yaml:"expr"`
	Code    string `yaml:"code"`
	Message string `yaml:"message"`
}

type yamlDoc struct {
	Description string `yaml:"description"`
	Detail      string `yaml:"detail"`
	Snippet     string `yaml:"snippet"`
}

// Load walks dir on fsys and decodes every `*.yaml`/`*.yml` schema file
// found there into a Schema, grounded on Workspace.LoadValidators'
// afero.Walk + per-file decode loop (workspace.go:584). Malformed files
// are skipped with a logged warning rather than aborting the load (spec
// §6 "unknown keys are ignored with a warning").
func Load(fsys afero.Fs, dir string, logger log.Logger) ([]*Schema, error) {
	var out []*Schema
	err := afero.Walk(fsys, dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		b, err := afero.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		var yf yamlFile
		if err := yaml.Unmarshal(b, &yf); err != nil {
			logger.Info("skipping malformed schema file", "path", p, "error", err.Error())
			return nil
		}
		s, err := compile(yf)
		if err != nil {
			logger.Info("skipping invalid schema file", "path", p, "error", err.Error())
			return nil
		}
		out = append(out, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func compile(yf yamlFile) (*Schema, error) {
	s := &Schema{
		Name:        yf.Name,
		PathGlobs:   yf.PathGlobs,
		Constants:   yf.Constants,
		Fields:      map[string]*Field{},
		Nested:      map[string]*Schema{},
		Docs:        map[string]FieldDoc{},
		Symbols:     yf.Symbols,
		CodeLens:    yf.CodeLens,
		DefaultCode: yf.DefaultCode,
	}
	if yf.BlockKeyPattern != "" {
		re, err := regexp.Compile(yf.BlockKeyPattern)
		if err != nil {
			return nil, fmt.Errorf("schema %s: block_key_pattern: %w", yf.Name, err)
		}
		s.BlockKeyPattern = re
	}
	for name, yfld := range yf.Fields {
		s.Fields[name] = &Field{
			Type:         FieldType(yfld.Type),
			Required:     yfld.Required,
			RequiredWhen: yfld.RequiredWhen,
			MinOccurs:    yfld.MinOccurs,
			MaxOccurs:    yfld.MaxOccurs,
			Enum:         yfld.Enum,
			Ref:          yfld.Ref,
			Code:         yfld.Code,
			Default:      yfld.Default,
		}
	}
	for name, nested := range yf.Nested {
		nested.Name = name
		ns, err := compile(nested)
		if err != nil {
			return nil, err
		}
		s.Nested[name] = ns
	}
	for _, yr := range yf.Rules {
		e, err := ParseExpr(yr.Expr)
		if err != nil {
			return nil, fmt.Errorf("schema %s: rule %s: %w", yf.Name, yr.Name, err)
		}
		s.Rules = append(s.Rules, Rule{Name: yr.Name, Expr: e, Code: yr.Code, Message: yr.Message})
	}
	for name, yd := range yf.Docs {
		s.Docs[name] = FieldDoc{Description: yd.Description, Detail: yd.Detail, Snippet: yd.Snippet}
	}
	return s, nil
}

// Registry holds the schemas currently loaded and answers "which schema
// applies" lookups (spec §4.E "For a given file and for each top-level
// block matching a schema...").
type Registry struct {
	schemas []*Schema
}

// NewRegistry wraps a loaded schema set.
func NewRegistry(schemas []*Schema) *Registry {
	return &Registry{schemas: schemas}
}

// Match returns every schema whose identification predicate matches
// path/blockKey.
func (r *Registry) Match(path, blockKey string) []*Schema {
	var out []*Schema
	for _, s := range r.schemas {
		if s.Matches(path, blockKey) {
			out = append(out, s)
		}
	}
	return out
}

// All returns every loaded schema.
func (r *Registry) All() []*Schema {
	return r.schemas
}

// Watcher reloads the registry's backing schema set whenever a file
// under dir changes, grounded on the teacher's watchCache
// (dispatcher.go) which drives a radovskyb/watcher-based reload loop;
// here schema-directory reload uses fsnotify directly, since it is a
// fixed, known directory rather than an externally-configured log path
// (see internal/logwatch for the radovskyb/watcher use).
type Watcher struct {
	w        *fsnotify.Watcher
	fsys     afero.Fs
	dir      string
	log      log.Logger
	onReload func(*Registry)
}

// NewWatcher starts watching dir for changes and invokes onReload with
// a freshly loaded Registry after each change settles.
func NewWatcher(fsys afero.Fs, dir string, logger log.Logger, onReload func(*Registry)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{w: fw, fsys: fsys, dir: dir, log: logger, onReload: onReload}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			schemas, err := Load(w.fsys, w.dir, w.log)
			if err != nil {
				w.log.Debug("schema reload failed", "error", err.Error())
				continue
			}
			w.log.Debug("schemas reloaded", "count", len(schemas), "trigger", ev.Name)
			w.onReload(NewRegistry(schemas))
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.log.Debug("schema watcher error", "error", err.Error())
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.w.Close()
}
