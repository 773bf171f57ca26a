package services

import (
	"sync"
	"time"

	"github.com/imyashkale/sitebuilder/internal/models"
)

const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"

	// LogSizeLimit bounds the build log stored on a site record so the item
	// stays well below the DynamoDB item size limit
	LogSizeLimit = 400 * 1024

	// entryOverhead approximates the encoded timestamp and attribute names
	entryOverhead = 100

	truncatedStage   = "system"
	truncatedMessage = "Build log exceeded size limit. Earlier entries dropped."
)

// BuildLogger collects the stage log of one pipeline run or edit
type BuildLogger struct {
	mu   sync.Mutex
	logs []models.BuildLogEntry
}

// NewBuildLogger creates an empty build logger
func NewBuildLogger() *BuildLogger {
	return &BuildLogger{
		logs: make([]models.BuildLogEntry, 0),
	}
}

// LogInfo logs an info level message
func (bl *BuildLogger) LogInfo(stage, message string) {
	bl.log(stage, LevelInfo, message)
}

// LogWarning logs a warning level message
func (bl *BuildLogger) LogWarning(stage, message string) {
	bl.log(stage, LevelWarning, message)
}

// LogError logs an error level message
func (bl *BuildLogger) LogError(stage, message string) {
	bl.log(stage, LevelError, message)
}

func (bl *BuildLogger) log(stage, level, message string) {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	bl.logs = append(bl.logs, models.BuildLogEntry{
		Timestamp: time.Now(),
		Stage:     stage,
		Level:     level,
		Message:   message,
	})
}

// GetLogs returns a copy of the entries logged so far
func (bl *BuildLogger) GetLogs() []models.BuildLogEntry {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	logsCopy := make([]models.BuildLogEntry, len(bl.logs))
	copy(logsCopy, bl.logs)
	return logsCopy
}

// Trail appends this run's entries to prior and caps the result with CapLogs.
// Use it to build the log stored on the site record.
func (bl *BuildLogger) Trail(prior []models.BuildLogEntry) []models.BuildLogEntry {
	current := bl.GetLogs()
	merged := make([]models.BuildLogEntry, 0, len(prior)+len(current))
	merged = append(merged, prior...)
	merged = append(merged, current...)
	return CapLogs(merged)
}

// CapLogs keeps the newest entries that fit within LogSizeLimit. When entries
// are dropped a warning entry saying so is placed first.
func CapLogs(entries []models.BuildLogEntry) []models.BuildLogEntry {
	notice := models.BuildLogEntry{
		Stage:   truncatedStage,
		Level:   LevelWarning,
		Message: truncatedMessage,
	}

	total := 0
	for _, entry := range entries {
		total += entrySize(entry)
	}
	if total <= LogSizeLimit {
		return entries
	}

	budget := LogSizeLimit - entrySize(notice)
	used := 0
	first := len(entries)
	for first > 0 {
		size := entrySize(entries[first-1])
		if used+size > budget {
			break
		}
		used += size
		first--
	}

	kept := entries[first:]
	// A notice carried over from an earlier cap is replaced by the new one.
	if len(kept) > 0 && kept[0].Stage == truncatedStage && kept[0].Message == truncatedMessage {
		kept = kept[1:]
	}

	notice.Timestamp = time.Now()
	if len(kept) > 0 {
		notice.Timestamp = kept[0].Timestamp
	}

	result := make([]models.BuildLogEntry, 0, len(kept)+1)
	result = append(result, notice)
	return append(result, kept...)
}

func entrySize(entry models.BuildLogEntry) int {
	return entryOverhead + len(entry.Stage) + len(entry.Level) + len(entry.Message)
}
