// Package locale implements the lightweight localization-file scanner
// of spec §4.F/§6: lines of the form `KEY:N "TEXT"`. This is
// deliberately not the main parser — spec.md itself calls it out as a
// "lightweight key-only line scanner" distinct from internal/parser's
// grammar, so it is grounded on stdlib bufio.Scanner + regexp rather
// than internal/lexer: the format has no nesting and no grammar beyond
// one line pattern, so a dedicated tokenizer/parser pass would add a
// second traversal of the same ground internal/lexer+internal/parser
// already cover, for no benefit over a single regexp match per line.
package locale

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/index"
)

// entryPattern matches one `KEY:N "TEXT"` locale line. N is optional
// in practice (some mods omit it, defaulting to 0) so it is captured
// but not required.
var entryPattern = regexp.MustCompile(`^\s*([A-Za-z0-9_.'-]+):\s*(\d*)\s*"(.*)"\s*$`)

// Entry is one decoded locale line.
type Entry struct {
	Key     string
	Version int
	Text    string
	Range   ast.Range
}

// Scan reads a locale file's content and returns one Entry per
// well-formed `KEY:N "TEXT"` line. Lines that are blank, `#`-comments,
// the leading `l_english:` language header, or otherwise malformed are
// skipped rather than aborting the scan, matching the parser's own
// "never abort, keep going" posture.
func Scan(src string) []Entry {
	var out []Entry
	sc := bufio.NewScanner(strings.NewReader(src))
	for l := 0; sc.Scan(); l++ {
		text := sc.Text()
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.HasPrefix(trimmed, "l_") && strings.HasSuffix(trimmed, ":") {
			continue
		}
		m := entryPattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		version, _ := strconv.Atoi(m[2])
		out = append(out, Entry{
			Key:     m[1],
			Version: version,
			Text:    m[3],
			Range: ast.Range{
				Start: ast.Position{Line: l, Character: 0},
				End:   ast.Position{Line: l, Character: len(text)},
			},
		})
	}
	return out
}

// Extract adapts Scan's output into index.Contribution values under
// index.CategoryLocalization, the shape internal/scan and
// internal/lspserver's Workspace.DidChange merge into the workspace index
// for every `.yml` locale file.
func Extract(src string) []index.Contribution {
	entries := Scan(src)
	out := make([]index.Contribution, 0, len(entries))
	for _, e := range entries {
		out = append(out, index.Contribution{
			Category: index.CategoryLocalization,
			Name:     e.Key,
			Range:    e.Range,
			Attrs:    map[string]string{"text": e.Text},
		})
	}
	return out
}
