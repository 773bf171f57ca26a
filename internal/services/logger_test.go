package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imyashkale/sitebuilder/internal/models"
)

func TestBuildLogger_GetLogs(t *testing.T) {
	logs := NewBuildLogger()
	logs.LogInfo("extracting", "started")
	logs.LogWarning("generating", "retrying")
	logs.LogError("deploying", "failed")

	got := logs.GetLogs()
	require.Len(t, got, 3)
	assert.Equal(t, LevelInfo, got[0].Level)
	assert.Equal(t, LevelWarning, got[1].Level)
	assert.Equal(t, "deploying", got[2].Stage)

	got[0].Message = "changed"
	assert.Equal(t, "started", logs.GetLogs()[0].Message)
}

func TestBuildLogger_TrailAppendsToPrior(t *testing.T) {
	prior := []models.BuildLogEntry{{Stage: "finalize", Level: LevelInfo, Message: "Revision 1 deployed"}}
	logs := NewBuildLogger()
	logs.LogInfo("editing", "Applying edit to revision 1")

	got := logs.Trail(prior)

	require.Len(t, got, 2)
	assert.Equal(t, "Revision 1 deployed", got[0].Message)
	assert.Equal(t, "Applying edit to revision 1", got[1].Message)
	assert.Len(t, prior, 1)
}

func TestCapLogs_KeepsNewestEntries(t *testing.T) {
	bulky := strings.Repeat("x", 100*1024)
	var entries []models.BuildLogEntry
	for _, stage := range []string{"one", "two", "three", "four", "five"} {
		entries = append(entries, models.BuildLogEntry{Stage: stage, Level: LevelInfo, Message: bulky})
	}

	got := CapLogs(entries)

	require.Len(t, got, 4)
	assert.Equal(t, truncatedMessage, got[0].Message)
	assert.Equal(t, LevelWarning, got[0].Level)
	assert.Equal(t, "three", got[1].Stage)
	assert.Equal(t, "five", got[3].Stage)
}

func TestCapLogs_UnderLimitUntouched(t *testing.T) {
	entries := []models.BuildLogEntry{{Stage: "deploying", Level: LevelInfo, Message: "ok"}}

	assert.Equal(t, entries, CapLogs(entries))
}
