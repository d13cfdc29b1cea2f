package lspserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPublishOnce(t *testing.T, rec *recordingPublisher, uri string) {
	t.Helper()
	require.Eventually(t, func() bool { return rec.count(uri) > 0 }, time.Second, 5*time.Millisecond)
}

func TestGenerateEventTemplateBuildsAWellFormedSkeleton(t *testing.T) {
	res, err := ExecuteCommand(context.Background(), nil, "generate_event_template", []interface{}{"my_mod", float64(1), "character_event"})
	require.NoError(t, err)
	out := res.(generateEventTemplateResult)
	assert.Equal(t, "my_mod.1", out.EventID)
	assert.Contains(t, out.TemplateText, "my_mod.1 = {")
	assert.Contains(t, out.TemplateText, "type = character_event")
	assert.Equal(t, []string{"my_mod.1.t", "my_mod.1.desc", "my_mod.1.a"}, out.LocalizationKeys)
}

func TestGenerateEventTemplateRejectsMissingArguments(t *testing.T) {
	_, err := ExecuteCommand(context.Background(), nil, "generate_event_template", []interface{}{"my_mod"})
	assert.Error(t, err)
}

func TestGenerateLocalizationStubsSkipsKeysAlreadyInTheIndex(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	ws.DidChange("file:///mod/localization/english/l_english.yml", `l_english:
 my_mod.1.t:0 "Existing Title"
`)

	res, err := ExecuteCommand(context.Background(), ws, "generate_localization_stubs", []interface{}{"my_mod.1"})
	require.NoError(t, err)
	out := res.(generateLocalizationStubsResult)
	assert.Equal(t, []string{"my_mod.1.desc", "my_mod.1.a"}, out.KeysGenerated)
	assert.NotContains(t, out.LocalizationText, "my_mod.1.t:")
}

func TestRenameEventReportsMissingSource(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	res, err := ExecuteCommand(context.Background(), ws, "rename_event", []interface{}{"my_mod.1", "my_mod.2"})
	require.NoError(t, err)
	out := res.(renameEventResult)
	assert.Contains(t, out.Error, "not found")
}

func TestRenameEventSuggestsAFreeIDOnCollision(t *testing.T) {
	ws, rec := newTestWorkspace(t)
	ws.DidChange("file:///mod/events/a.txt", `my_mod.1 = { type = character_event }
my_mod.2 = { type = character_event }`)
	mustPublishOnce(t, rec, "file:///mod/events/a.txt")

	res, err := ExecuteCommand(context.Background(), ws, "rename_event", []interface{}{"my_mod.1", "my_mod.2"})
	require.NoError(t, err)
	out := res.(renameEventResult)
	assert.Contains(t, out.Error, "already exists")
	assert.NotEmpty(t, out.Suggestion)
	assert.NotEqual(t, "my_mod.2", out.Suggestion)
}

func TestRenameEventReportsOccurrenceCountWhenTheMoveIsClear(t *testing.T) {
	ws, rec := newTestWorkspace(t)
	ws.DidChange("file:///mod/events/a.txt", `my_mod.1 = { type = character_event }`)
	mustPublishOnce(t, rec, "file:///mod/events/a.txt")

	res, err := ExecuteCommand(context.Background(), ws, "rename_event", []interface{}{"my_mod.1", "my_mod.9"})
	require.NoError(t, err)
	out := res.(renameEventResult)
	assert.Empty(t, out.Error)
	assert.Contains(t, out.Message, "textDocument/rename")
}

func TestFindOrphanedLocalizationReportsUnreferencedKeys(t *testing.T) {
	ws, rec := newTestWorkspace(t)
	ws.DidChange("file:///mod/events/a.txt", `my_mod.1 = {
		type = character_event
		title = my_mod.1.t
	}`)
	mustPublishOnce(t, rec, "file:///mod/events/a.txt")
	ws.DidChange("file:///mod/localization/english/l_english.yml", `l_english:
 my_mod.1.t:0 "Referenced"
 my_mod.1.unused:0 "Orphaned"
`)

	res := cmdFindOrphanedLocalization(ws)
	assert.Equal(t, []string{"my_mod.1.unused"}, res.OrphanedKeys)
	assert.Equal(t, 1, res.TotalCount)
}

func TestShowNamespaceEventsFiltersByPrefixAndResolvesTitles(t *testing.T) {
	ws, rec := newTestWorkspace(t)
	ws.DidChange("file:///mod/events/a.txt", `my_mod.1 = { type = character_event }
other_mod.1 = { type = character_event }`)
	mustPublishOnce(t, rec, "file:///mod/events/a.txt")
	ws.DidChange("file:///mod/localization/english/l_english.yml", `l_english:
 my_mod.1.t:0 "A Resolved Title"
`)

	res, err := ExecuteCommand(context.Background(), ws, "show_namespace_events", []interface{}{"my_mod"})
	require.NoError(t, err)
	out := res.(showNamespaceEventsResult)
	require.Len(t, out.Events, 1)
	assert.Equal(t, "my_mod.1", out.Events[0].EventID)
	assert.Equal(t, "A Resolved Title", out.Events[0].Title)
}

func TestGetWorkspaceStatsCountsEveryCategory(t *testing.T) {
	ws, rec := newTestWorkspace(t)
	ws.DidChange("file:///mod/events/a.txt", `my_mod.1 = { type = character_event }`)
	mustPublishOnce(t, rec, "file:///mod/events/a.txt")

	res, err := ExecuteCommand(context.Background(), ws, "get_workspace_stats", nil)
	require.NoError(t, err)
	out := res.(map[string]int)
	assert.Equal(t, 1, out["events"])
}

func TestExecuteCommandRejectsAnUnknownCommand(t *testing.T) {
	_, err := ExecuteCommand(context.Background(), nil, "not_a_real_command", nil)
	assert.Error(t, err)
}
