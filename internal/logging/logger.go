// Package logging writes per-category debug logs under .deck/logs/.
//
// Nothing is written unless logging.debug_mode is set in .deck/config.yaml
// (or DECK_DEBUG=1). Every call is safe before Initialize; it simply drops
// the entry.
package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"taskdeck/internal/config"
)

// Category names one log file.
type Category string

const (
	CategoryBoot   Category = "boot"
	CategoryInit   Category = "init"
	CategoryParse  Category = "parse"
	CategoryQuery  Category = "query"
	CategoryView   Category = "view"
	CategoryStore  Category = "store"
	CategoryWatch  Category = "watch"
	CategoryUI     Category = "ui"
	CategoryConfig Category = "config"
)

const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

type state struct {
	config.LoggingConfig
	workspace string
	dir       string
	level     int
}

// StructuredLogEntry is one line of JSON output.
type StructuredLogEntry struct {
	Timestamp int64                  `json:"ts"`
	Category  string                 `json:"cat"`
	Level     string                 `json:"lvl"`
	Message   string                 `json:"msg"`
	RunID     string                 `json:"run,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger appends to one category file. The zero Logger discards everything.
type Logger struct {
	category Category
	out      *log.Logger
	file     *os.File
}

var (
	stateMu sync.RWMutex
	current = state{level: LevelInfo}

	filesMu sync.Mutex
	files   = make(map[Category]*Logger)
)

// Initialize reads the workspace config. Log files are created lazily on
// first use, and only in debug mode.
func Initialize(ws string) error {
	if ws == "" {
		return errors.New("workspace path required")
	}

	stateMu.Lock()
	current.workspace = ws
	current.dir = filepath.Join(ws, ".deck", "logs")
	stateMu.Unlock()

	if err := ReloadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "[logging] ignoring config: %v\n", err)
		stateMu.Lock()
		current.DebugMode = false
		stateMu.Unlock()
	}
	if !IsDebugMode() {
		return nil
	}

	stateMu.RLock()
	dir, level := current.dir, current.Level
	stateMu.RUnlock()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	Boot("logging started for %s (level %q)", ws, level)
	return nil
}

// ReloadConfig re-reads the logging section of .deck/config.yaml, including
// the DECK_DEBUG override. A missing file means defaults.
func ReloadConfig() error {
	stateMu.Lock()
	defer stateMu.Unlock()

	cfg, err := config.Load(config.Path(current.workspace))
	if err != nil {
		return err
	}
	current.LoggingConfig = cfg.Logging
	current.level = parseLevel(current.Level)
	return nil
}

func parseLevel(s string) int {
	switch s {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	}
	return LevelInfo
}

// IsDebugMode reports whether any logging is on.
func IsDebugMode() bool {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return current.DebugMode
}

// IsJSONFormat reports whether entries are written as JSON lines.
func IsJSONFormat() bool {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return current.JSONFormat
}

// IsCategoryEnabled reports whether category writes. Categories missing
// from the config are on.
func IsCategoryEnabled(category Category) bool {
	stateMu.RLock()
	defer stateMu.RUnlock()
	return current.LoggingConfig.IsCategoryEnabled(string(category))
}

// Get returns the logger for category, opening its file on first use.
func Get(category Category) *Logger {
	stateMu.RLock()
	dir := current.dir
	stateMu.RUnlock()
	if dir == "" || !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	filesMu.Lock()
	defer filesMu.Unlock()
	if l := files[category]; l != nil {
		return l
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02"), category))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] cannot open %s: %v\n", path, err)
		return &Logger{category: category}
	}
	l := &Logger{
		category: category,
		file:     f,
		out:      log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	files[category] = l
	return l
}

// CloseAll closes every open log file. Later calls to Get reopen them.
func CloseAll() {
	filesMu.Lock()
	defer filesMu.Unlock()
	for _, l := range files {
		if l.file != nil {
			l.file.Close()
		}
	}
	files = make(map[Category]*Logger)
}

func (l *Logger) enabled(level int) bool {
	if l.out == nil {
		return false
	}
	stateMu.RLock()
	defer stateMu.RUnlock()
	return level >= current.level
}

func (l *Logger) emit(level int, msg, runID string, fields map[string]interface{}) {
	if IsJSONFormat() {
		line, err := json.Marshal(StructuredLogEntry{
			Timestamp: time.Now().UnixMilli(),
			Category:  string(l.category),
			Level:     levelNames[level],
			Message:   msg,
			RunID:     runID,
			Fields:    fields,
		})
		if err == nil {
			l.out.Print(string(line))
			return
		}
	}
	if runID != "" || fields != nil {
		l.out.Printf("[%s] %s | run=%s fields=%v", levelNames[level], msg, runID, fields)
		return
	}
	l.out.Printf("[%s] %s", levelNames[level], msg)
}

func (l *Logger) logf(level int, format string, args []interface{}) {
	if l.enabled(level) {
		l.emit(level, fmt.Sprintf(format, args...), "", nil)
	}
}

func (l *Logger) Debug(format string, args ...interface{}) { l.logf(LevelDebug, format, args) }
func (l *Logger) Info(format string, args ...interface{})  { l.logf(LevelInfo, format, args) }
func (l *Logger) Warn(format string, args ...interface{})  { l.logf(LevelWarn, format, args) }
func (l *Logger) Error(format string, args ...interface{}) { l.logf(LevelError, format, args) }

// StructuredLog writes msg tagged with a refresh run id and extra fields.
func (l *Logger) StructuredLog(level, runID, msg string, fields map[string]interface{}) {
	lv := parseLevel(level)
	if l.enabled(lv) {
		l.emit(lv, msg, runID, fields)
	}
}

func Boot(format string, args ...interface{})       { Get(CategoryBoot).Info(format, args...) }
func Init(format string, args ...interface{})       { Get(CategoryInit).Info(format, args...) }
func ParseDebug(format string, args ...interface{}) { Get(CategoryParse).Debug(format, args...) }
func View(format string, args ...interface{})       { Get(CategoryView).Info(format, args...) }
func ViewDebug(format string, args ...interface{})  { Get(CategoryView).Debug(format, args...) }
func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
func Watch(format string, args ...interface{})      { Get(CategoryWatch).Info(format, args...) }
func WatchDebug(format string, args ...interface{}) { Get(CategoryWatch).Debug(format, args...) }
func UI(format string, args ...interface{})         { Get(CategoryUI).Debug(format, args...) }

// Timer logs how long an operation took.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop logs the elapsed time at debug level and returns it.
func (t *Timer) Stop() time.Duration {
	return t.StopWithThreshold(0)
}

// StopWithThreshold warns when the operation ran longer than threshold.
// A zero threshold never warns.
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	d := time.Since(t.start)
	l := Get(t.category)
	if threshold > 0 && d > threshold {
		l.Warn("%s took %v, over %v", t.op, d, threshold)
	} else {
		l.Debug("%s took %v", t.op, d)
	}
	return d
}
