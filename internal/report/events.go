// Package report writes the append-only JSONL event log. One file is created
// per run; every mutation of the index or the filesystem leaves a line here.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventIndex    EventType = "index"
	EventVerify   EventType = "verify"
	EventMatch    EventType = "match"
	EventVet      EventType = "vet"
	EventPlan     EventType = "plan"
	EventValidate EventType = "validate"
	EventBackup   EventType = "backup"
	EventDelete   EventType = "delete"
	EventError    EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single event in the pipeline
type Event struct {
	Timestamp    time.Time         `json:"ts"`
	Level        EventLevel        `json:"level"`
	Event        EventType         `json:"event"`
	RunID        string            `json:"run_id,omitempty"`
	Path         string            `json:"path,omitempty"`
	MatchedPath  string            `json:"matched_path,omitempty"`
	BackupPath   string            `json:"backup_path,omitempty"`
	Tier         string            `json:"tier,omitempty"`
	Confidence   float64           `json:"confidence,omitempty"`
	QualityScore int               `json:"quality_score,omitempty"`
	Check        string            `json:"check,omitempty"`
	Reason       string            `json:"reason,omitempty"`
	SizeBytes    int64             `json:"size_bytes,omitempty"`
	Error        string            `json:"error,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger writing to outputDir. Events
// below minLevel are dropped.
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	timestamp := time.Now().Format("20060102-150405")
	path := filepath.Join(outputDir, fmt.Sprintf("events-%s.jsonl", timestamp))

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log %s: %w", path, err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// NullLogger returns a logger that drops everything
func NullLogger() *EventLogger {
	return &EventLogger{}
}

// Path returns the log file path, or "" for a null logger
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close closes the underlying file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil
	}
	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return nil
}

// LogIndex logs an indexed (or refreshed) file
func (l *EventLogger) LogIndex(path string, sizeBytes int64) error {
	return l.Log(&Event{
		Level:     LevelInfo,
		Event:     EventIndex,
		Path:      path,
		SizeBytes: sizeBytes,
	})
}

// LogVerify logs the outcome of a verification check on one path
func (l *EventLogger) LogVerify(path string, present bool) error {
	reason := "present"
	level := LevelDebug
	if !present {
		reason = "missing, marked inactive"
		level = LevelWarning
	}
	return l.Log(&Event{
		Level:  level,
		Event:  EventVerify,
		Path:   path,
		Reason: reason,
	})
}

// LogMatch logs a duplicate match decision for one candidate
func (l *EventLogger) LogMatch(path, matchedPath, tier string, confidence float64) error {
	return l.Log(&Event{
		Level:       LevelInfo,
		Event:       EventMatch,
		Path:        path,
		MatchedPath: matchedPath,
		Tier:        tier,
		Confidence:  confidence,
	})
}

// LogVet logs one classified file of a vetting run
func (l *EventLogger) LogVet(runID, path, classification string, confidence float64) error {
	return l.Log(&Event{
		Level:      LevelInfo,
		Event:      EventVet,
		RunID:      runID,
		Path:       path,
		Reason:     classification,
		Confidence: confidence,
	})
}

// LogPlan logs a planned keep/delete decision
func (l *EventLogger) LogPlan(path, keptPath string, score int, keep bool) error {
	reason := "delete"
	if keep {
		reason = "keep"
	}
	return l.Log(&Event{
		Level:        LevelInfo,
		Event:        EventPlan,
		Path:         path,
		MatchedPath:  keptPath,
		QualityScore: score,
		Reason:       reason,
	})
}

// LogValidate logs a failed safety check for a deletion group
func (l *EventLogger) LogValidate(keptPath, check, reason string) error {
	return l.Log(&Event{
		Level:  LevelWarning,
		Event:  EventValidate,
		Path:   keptPath,
		Check:  check,
		Reason: reason,
	})
}

// LogBackup logs a confirmed backup copy
func (l *EventLogger) LogBackup(runID, path, backupPath string, sizeBytes int64) error {
	return l.Log(&Event{
		Level:      LevelInfo,
		Event:      EventBackup,
		RunID:      runID,
		Path:       path,
		BackupPath: backupPath,
		SizeBytes:  sizeBytes,
	})
}

// LogDelete logs an executed deletion
func (l *EventLogger) LogDelete(runID, path, keptPath string, sizeBytes int64) error {
	return l.Log(&Event{
		Level:       LevelInfo,
		Event:       EventDelete,
		RunID:       runID,
		Path:        path,
		MatchedPath: keptPath,
		SizeBytes:   sizeBytes,
	})
}

// LogError logs a per-file failure
func (l *EventLogger) LogError(path string, err error) error {
	return l.Log(&Event{
		Level: LevelError,
		Event: EventError,
		Path:  path,
		Error: err.Error(),
	})
}
