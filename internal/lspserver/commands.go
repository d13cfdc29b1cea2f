package lspserver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Cyborgninja21/pychivalry-sub003/internal/ast"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/diag"
	"github.com/Cyborgninja21/pychivalry-sub003/internal/index"
)

// ExecuteCommand dispatches one workspace/executeCommand invocation to
// the handler named in spec §6's command table; the table's argument
// positions are bit-exact, so every command here reads Arguments by
// fixed index rather than by name.
func ExecuteCommand(ctx context.Context, ws *Workspace, command string, args []interface{}) (interface{}, error) {
	switch command {
	case "validate_workspace":
		return cmdValidateWorkspace(ws), nil
	case "rescan_workspace":
		return cmdRescanWorkspace(ctx, ws)
	case "get_workspace_stats":
		return cmdGetWorkspaceStats(ws), nil
	case "generate_event_template":
		return cmdGenerateEventTemplate(args)
	case "generate_localization_stubs":
		return cmdGenerateLocalizationStubs(ws, args)
	case "rename_event":
		return cmdRenameEvent(ws, args)
	case "find_orphaned_localization":
		return cmdFindOrphanedLocalization(ws), nil
	case "show_namespace_events":
		return cmdShowNamespaceEvents(ws, args)
	case "check_dependencies":
		return cmdCheckDependencies(ws), nil
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

func stringArg(args []interface{}, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("argument %d missing", i)
	}
	s, ok := args[i].(string)
	if !ok {
		return "", fmt.Errorf("argument %d must be a string", i)
	}
	return s, nil
}

// intArg accepts the argument as either a JSON number (decoded as
// float64, since that is how jsonrpc2's generic []interface{} decodes
// a bare number) or a numeric string, since clients disagree about
// quoting event numbers in command arguments.
func intArg(args []interface{}, i int) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("argument %d missing", i)
	}
	switch v := args[i].(type) {
	case float64:
		return int(v), nil
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
			return 0, fmt.Errorf("argument %d is not a number: %q", i, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("argument %d must be a number", i)
	}
}

// --- validate_workspace / check_dependencies ------------------------------

// allDiagnostics reports the last staged diagnostic set for every
// document the pipeline currently tracks, keyed by URI — the workspace
// view validate_workspace surfaces (spec §6 "{diagnostics_by_uri}").
// check_dependencies reports the part of the same staged set that
// carries the dangling-reference code, the findings internal/diagnostics'
// "dependencies" validator contributes (see domain.go).
func allDiagnostics(ws *Workspace) map[string][]diag.Diagnostic {
	out := map[string][]diag.Diagnostic{}
	for _, uri := range ws.URIs() {
		if diags, ok := ws.Diagnostics(uri); ok {
			out[uri] = diags
		}
	}
	return out
}

type validateWorkspaceResult struct {
	DiagnosticsByURI map[string][]diag.Diagnostic `json:"diagnostics_by_uri"`
}

func cmdValidateWorkspace(ws *Workspace) validateWorkspaceResult {
	return validateWorkspaceResult{DiagnosticsByURI: allDiagnostics(ws)}
}

func cmdCheckDependencies(ws *Workspace) map[string][]diag.Diagnostic {
	out := map[string][]diag.Diagnostic{}
	for uri, diags := range allDiagnostics(ws) {
		for _, d := range diags {
			if d.Code == diag.CodeDanglingReference {
				out[uri] = append(out[uri], d)
			}
		}
	}
	return out
}

// --- rescan_workspace / get_workspace_stats -------------------------------

type rescanWorkspaceResult struct {
	Scanned          int `json:"scanned"`
	Errors           int `json:"errors"`
	Events           int `json:"events"`
	ScriptedEffects  int `json:"scripted_effects"`
	ScriptedTriggers int `json:"scripted_triggers"`
	OnActions        int `json:"on_actions"`
}

func cmdRescanWorkspace(ctx context.Context, ws *Workspace) (rescanWorkspaceResult, error) {
	stats, _, err := ws.Scanner().Scan(ctx, ws.Root(), ws.Index())
	if err != nil {
		return rescanWorkspaceResult{}, err
	}
	counts := ws.Index().Stats()
	return rescanWorkspaceResult{
		Scanned:          stats.ScannedFiles,
		Errors:           stats.Errors,
		Events:           counts[index.CategoryEvent],
		ScriptedEffects:  counts[index.CategoryScriptedEffect],
		ScriptedTriggers: counts[index.CategoryScriptedTrigger],
		OnActions:        counts[index.CategoryOnAction],
	}, nil
}

func cmdGetWorkspaceStats(ws *Workspace) map[string]int {
	counts := ws.Index().Stats()
	out := make(map[string]int, len(counts))
	for cat, n := range counts {
		out[string(cat)] = n
	}
	return out
}

// --- generate_event_template -----------------------------------------------

type generateEventTemplateResult struct {
	TemplateText     string   `json:"template_text"`
	EventID          string   `json:"event_id"`
	LocalizationKeys []string `json:"localization_keys"`
}

// cmdGenerateEventTemplate builds a minimal well-formed event skeleton
// for the given event type (spec §4.B's grammar), the same shape
// cmdGenerateLocalizationStubs expects a caller to paste the returned
// localization_keys' text against.
func cmdGenerateEventTemplate(args []interface{}) (generateEventTemplateResult, error) {
	namespace, err := stringArg(args, 0)
	if err != nil {
		return generateEventTemplateResult{}, err
	}
	eventNum, err := intArg(args, 1)
	if err != nil {
		return generateEventTemplateResult{}, err
	}
	eventType, err := stringArg(args, 2)
	if err != nil {
		return generateEventTemplateResult{}, err
	}
	eventID := fmt.Sprintf("%s.%d", namespace, eventNum)

	var b strings.Builder
	fmt.Fprintf(&b, "%s = {\n", eventID)
	fmt.Fprintf(&b, "\ttype = %s\n", eventType)
	b.WriteString("\ttitle = ")
	fmt.Fprintf(&b, "%s.t\n", eventID)
	b.WriteString("\tdesc = ")
	fmt.Fprintf(&b, "%s.desc\n", eventID)
	b.WriteString("\n\toption = {\n")
	b.WriteString("\t\tname = ")
	fmt.Fprintf(&b, "%s.a\n", eventID)
	b.WriteString("\t}\n")
	b.WriteString("}\n")

	return generateEventTemplateResult{
		TemplateText:     b.String(),
		EventID:          eventID,
		LocalizationKeys: []string{eventID + ".t", eventID + ".desc", eventID + ".a"},
	}, nil
}

// --- generate_localization_stubs -------------------------------------------

type generateLocalizationStubsResult struct {
	LocalizationText string   `json:"localization_text"`
	KeysGenerated    []string `json:"keys_generated"`
}

// localizationSuffixes lists the keys an event template's option/title
// fields reference, matching cmdGenerateEventTemplate's own output.
var localizationSuffixes = []struct {
	suffix, placeholder string
}{
	{".t", "TODO title"},
	{".desc", "TODO description"},
	{".a", "TODO option"},
}

// cmdGenerateLocalizationStubs emits one `KEY:0 "TEXT"` line (spec §6's
// locale-file grammar) per key an event conventionally needs, skipping
// any key already present in the index so a rerun is idempotent.
func cmdGenerateLocalizationStubs(ws *Workspace, args []interface{}) (generateLocalizationStubsResult, error) {
	eventID, err := stringArg(args, 0)
	if err != nil {
		return generateLocalizationStubsResult{}, err
	}
	var b strings.Builder
	var keys []string
	for _, s := range localizationSuffixes {
		key := eventID + s.suffix
		if ws.Index().Has(index.CategoryLocalization, key) {
			continue
		}
		fmt.Fprintf(&b, " %s:0 \"%s\"\n", key, s.placeholder)
		keys = append(keys, key)
	}
	return generateLocalizationStubsResult{LocalizationText: b.String(), KeysGenerated: keys}, nil
}

// --- rename_event -----------------------------------------------------------

type renameEventResult struct {
	Message    string `json:"message,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Error      string `json:"error,omitempty"`
}

// cmdRenameEvent validates an event rename and reports its impact
// across the workspace index without applying an edit: the client
// already has textDocument/rename (spec §4.J) to perform the actual
// text replacement once it knows the move is safe. This command is
// the advisory front-end spec §6's `{message?, suggestion?, error?}`
// return shape implies — three mutually exclusive outcomes rather than
// one required field — since Workspace holds no raw source centrally
// to rewrite by itself.
func cmdRenameEvent(ws *Workspace, args []interface{}) (renameEventResult, error) {
	oldID, err := stringArg(args, 0)
	if err != nil {
		return renameEventResult{}, err
	}
	newID, err := stringArg(args, 1)
	if err != nil {
		return renameEventResult{}, err
	}

	if !ws.Index().Has(index.CategoryEvent, oldID) {
		return renameEventResult{Error: fmt.Sprintf("event '%s' not found", oldID)}, nil
	}
	if ws.Index().Has(index.CategoryEvent, newID) {
		return renameEventResult{
			Error:      fmt.Sprintf("event '%s' already exists", newID),
			Suggestion: nextFreeEventID(ws, newID),
		}, nil
	}

	occurrences := len(ws.Index().Lookup(index.CategoryEvent, oldID))
	return renameEventResult{
		Message: fmt.Sprintf("'%s' resolves to %d definition(s); rename the identifier with textDocument/rename to update every occurrence, then regenerate localization keys for '%s'", oldID, occurrences, newID),
	}, nil
}

// nextFreeEventID appends an incrementing numeric suffix to base's
// event number until it names an id not already in the index.
func nextFreeEventID(ws *Workspace, base string) string {
	dot := strings.LastIndex(base, ".")
	prefix := base
	if dot >= 0 {
		prefix = base[:dot]
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s.%s%d", prefix, base[dot+1:], n)
		if !ws.Index().Has(index.CategoryEvent, candidate) {
			return candidate
		}
	}
}

// --- find_orphaned_localization ---------------------------------------------

// localizedFieldKeys are the assignment keys whose value is a
// localization key reference, matching diagnostics.validateLocalization's
// own table so both commands agree on what counts as "referenced".
var localizedFieldKeys = map[string]bool{"desc": true, "title": true, "name": true, "flavor": true}

type findOrphanedLocalizationResult struct {
	OrphanedKeys []string `json:"orphaned_keys"`
	TotalCount   int      `json:"total_count"`
}

// cmdFindOrphanedLocalization reports every localization key the index
// holds that no open document's desc/title/name/flavor field resolves
// to (spec §6), the inverse of diagnostics.validateLocalization's
// unresolved-reference check.
func cmdFindOrphanedLocalization(ws *Workspace) findOrphanedLocalizationResult {
	referenced := map[string]bool{}
	for _, uri := range ws.URIs() {
		tree, ok := ws.Tree(uri)
		if !ok {
			continue
		}
		tree.Walk(tree.Root, func(i ast.NodeIndex) bool {
			n := tree.Get(i)
			if n.Type == ast.NodeAssignment && localizedFieldKeys[n.Key] && n.Value != "" {
				referenced[n.Value] = true
			}
			return true
		})
	}

	var orphaned []string
	for name := range ws.Index().Search(index.CategoryLocalization, "") {
		if !referenced[name] {
			orphaned = append(orphaned, name)
		}
	}
	sort.Strings(orphaned)
	return findOrphanedLocalizationResult{OrphanedKeys: orphaned, TotalCount: len(orphaned)}
}

// --- show_namespace_events ---------------------------------------------------

type namespaceEvent struct {
	EventID string `json:"event_id"`
	Title   string `json:"title"`
	File    string `json:"file"`
	Line    int    `json:"line"`
}

type showNamespaceEventsResult struct {
	Namespace string           `json:"namespace"`
	Events    []namespaceEvent `json:"events"`
	Count     int              `json:"count"`
}

func cmdShowNamespaceEvents(ws *Workspace, args []interface{}) (showNamespaceEventsResult, error) {
	namespace, err := stringArg(args, 0)
	if err != nil {
		return showNamespaceEventsResult{}, err
	}
	prefix := namespace + "."
	matches := ws.Index().Search(index.CategoryEvent, namespace)
	var events []namespaceEvent
	for name, syms := range matches {
		if !strings.HasPrefix(name, prefix) || len(syms) == 0 {
			continue
		}
		title := name
		if locSyms := ws.Index().Lookup(index.CategoryLocalization, name+".t"); len(locSyms) > 0 {
			if text, ok := locSyms[0].Attrs["text"]; ok && text != "" {
				title = text
			}
		}
		sym := syms[0]
		events = append(events, namespaceEvent{
			EventID: name,
			Title:   title,
			File:    sym.URI,
			Line:    sym.Range.Start.Line,
		})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].EventID < events[j].EventID })
	return showNamespaceEventsResult{Namespace: namespace, Events: events, Count: len(events)}, nil
}
