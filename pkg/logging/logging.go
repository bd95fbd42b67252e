// pkg/logging/logging.go - timestamped leveled logging for Platform Setup.
//
// Sessions log into timestamped subdirectories (YYYY-MM-DD-HHMMss) under the
// base log directory, with a plain setup.log plus a JSONL event stream for
// external monitoring tools. Old session directories are cleaned up against a
// retention policy.

package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/windows"

	"github.com/windowsadmins/platformsetup/pkg/config"
)

// LogLevel represents the severity of the log message.
type LogLevel int

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// String returns the string representation of the LogLevel.
func (ll LogLevel) String() string {
	switch ll {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

func parseLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "ERROR":
		return LevelError
	case "WARN", "WARNING":
		return LevelWarn
	case "DEBUG":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// LogEntry is a structured log entry written to the JSONL event stream.
type LogEntry struct {
	Time       int64                  `json:"time"`
	Timestamp  string                 `json:"timestamp"`
	Level      string                 `json:"level"`
	Message    string                 `json:"message"`
	Hostname   string                 `json:"hostname"`
	PID        int64                  `json:"pid"`
	SessionID  string                 `json:"session_id"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// RetentionPolicy defines log retention rules
type RetentionPolicy struct {
	KeepRuns   int // Keep last N session directories
	MaxAgeDays int // Maximum age in days before deletion
}

// DefaultRetentionPolicy returns sensible defaults for log retention
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{KeepRuns: 20, MaxAgeDays: 30}
}

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	BaseDir       string
	SessionID     string
	Retention     RetentionPolicy
	EnableJSON    bool
	EnableConsole bool
}

// Logger writes leveled log output to the session directory and console.
type Logger struct {
	mu           sync.RWMutex
	logger       *log.Logger
	logLevel     LogLevel
	logFile      *os.File
	jsonFile     *os.File
	config       LoggerConfig
	sessionStart time.Time
	logDir       string
	hostname     string
}

// singleton instance and sync.Once for thread-safe initialization
var (
	instance *Logger
	once     sync.Once
)

// Init initializes the singleton Logger based on the provided configuration.
// It must be called before any logging functions are used.
func Init(cfg *config.Configuration) error {
	var initErr error
	once.Do(func() {
		logCfg := LoggerConfig{
			BaseDir:       `C:\ProgramData\PlatformSetup\logs`,
			SessionID:     generateSessionID(),
			Retention:     DefaultRetentionPolicy(),
			EnableJSON:    true,
			EnableConsole: true,
		}
		instance, initErr = newLoggerWithConfig(logCfg)
		if initErr == nil && cfg != nil {
			instance.logLevel = parseLevel(cfg.LogLevel)
		}
	})
	return initErr
}

// InitWithConfig initializes the logger with explicit LoggerConfig
func InitWithConfig(logCfg LoggerConfig) error {
	var initErr error
	once.Do(func() {
		instance, initErr = newLoggerWithConfig(logCfg)
	})
	return initErr
}

// generateSessionID creates a unique session identifier
func generateSessionID() string {
	return fmt.Sprintf("platformsetup-%d-%s", time.Now().Unix(),
		time.Now().Format("2006-01-02-150405"))
}

// createTimestampedLogDir creates a timestamped log directory
func createTimestampedLogDir(baseDir string, sessionStart time.Time) (string, error) {
	timestamp := sessionStart.Format("2006-01-02-150405")
	logDir := filepath.Join(baseDir, timestamp)

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create timestamped log directory %s: %w", logDir, err)
	}
	return logDir, nil
}

// newLoggerWithConfig creates a new Logger instance with explicit configuration.
func newLoggerWithConfig(cfg LoggerConfig) (*Logger, error) {
	sessionStart := time.Now()

	if err := os.MkdirAll(cfg.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base log directory: %w", err)
	}

	logDir, err := createTimestampedLogDir(cfg.BaseDir, sessionStart)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	logger := &Logger{
		config:       cfg,
		logLevel:     LevelInfo,
		sessionStart: sessionStart,
		logDir:       logDir,
		hostname:     hostname,
	}

	if err := logger.initializeLogFiles(); err != nil {
		return nil, err
	}

	if cfg.EnableConsole {
		multiWriter := io.MultiWriter(os.Stdout, logger.logFile)
		logger.logger = log.New(multiWriter, "", 0)
	} else {
		logger.logger = log.New(logger.logFile, "", 0)
	}

	logger.performCleanup()

	return logger, nil
}

// initializeLogFiles creates and opens all log files
func (l *Logger) initializeLogFiles() error {
	var err error

	logFilePath := filepath.Join(l.logDir, "setup.log")
	l.logFile, err = os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open main log file: %w", err)
	}

	if l.config.EnableJSON {
		jsonPath := filepath.Join(l.logDir, "events.jsonl")
		l.jsonFile, err = os.OpenFile(jsonPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open JSON log file: %w", err)
		}
	}

	return nil
}

// performCleanup removes old session directories per the retention policy.
func (l *Logger) performCleanup() {
	baseDir := l.config.BaseDir
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return // Silently fail cleanup
	}

	var logDirs []os.DirEntry
	now := time.Now()

	// Session directory names match the timestamp format YYYY-MM-DD-HHMMss
	for _, entry := range entries {
		if entry.IsDir() && len(entry.Name()) == 17 && strings.Count(entry.Name(), "-") == 3 {
			logDirs = append(logDirs, entry)
		}
	}

	sort.Slice(logDirs, func(i, j int) bool {
		return logDirs[i].Name() > logDirs[j].Name() // Newest first
	})

	retention := l.config.Retention
	toDelete := map[string]bool{}

	if retention.KeepRuns > 0 && len(logDirs) > retention.KeepRuns {
		for i := retention.KeepRuns; i < len(logDirs); i++ {
			toDelete[logDirs[i].Name()] = true
		}
	}

	maxAge := time.Duration(retention.MaxAgeDays) * 24 * time.Hour
	for _, dir := range logDirs {
		dirPath := filepath.Join(baseDir, dir.Name())
		if info, err := os.Stat(dirPath); err == nil && now.Sub(info.ModTime()) > maxAge {
			toDelete[dir.Name()] = true
		}
	}

	for dirName := range toDelete {
		if filepath.Join(baseDir, dirName) == l.logDir {
			continue
		}
		os.RemoveAll(filepath.Join(baseDir, dirName)) // Best effort, ignore errors
	}
}

// CloseLogger closes all log files if they're open.
func CloseLogger() {
	if instance == nil {
		return
	}
	instance.mu.Lock()
	defer instance.mu.Unlock()

	if instance.logFile != nil {
		if err := instance.logFile.Close(); err != nil {
			fmt.Printf("Failed to close main log file: %v\n", err)
		}
		instance.logFile = nil
	}
	if instance.jsonFile != nil {
		if err := instance.jsonFile.Close(); err != nil {
			fmt.Printf("Failed to close JSON log file: %v\n", err)
		}
		instance.jsonFile = nil
	}
}

// logMessage is the core logging method that writes to all configured outputs
func (l *Logger) logMessage(level LogLevel, message string, keyValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.logger == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: %s %s %v\n", level.String(), message, keyValues)
		return
	}

	if level > l.logLevel {
		return
	}

	properties := make(map[string]interface{})
	for i := 0; i < len(keyValues); i += 2 {
		if i+1 < len(keyValues) {
			key := fmt.Sprintf("%v", keyValues[i])
			properties[key] = keyValues[i+1]
		}
	}

	now := time.Now()
	entry := LogEntry{
		Time:       now.Unix(),
		Timestamp:  now.Format(time.RFC3339),
		Level:      level.String(),
		Message:    message,
		Hostname:   l.hostname,
		PID:        int64(os.Getpid()),
		SessionID:  l.config.SessionID,
		Properties: properties,
	}

	l.writeMainLog(entry, keyValues)

	if l.config.EnableJSON && l.jsonFile != nil {
		if data, err := json.Marshal(entry); err == nil {
			l.jsonFile.WriteString(string(data) + "\n")
		}
	}

	if l.logFile != nil {
		l.logFile.Sync()
	}
	if l.jsonFile != nil {
		l.jsonFile.Sync()
	}
}

// writeMainLog writes to setup.log in traditional format
func (l *Logger) writeMainLog(entry LogEntry, keyValues []interface{}) {
	ts := time.Unix(entry.Time, 0).Format("2006-01-02 15:04:05")
	baseLine := fmt.Sprintf("[%s] %-5s %s", ts, entry.Level, entry.Message)

	for i := 0; i < len(keyValues); i += 2 {
		if i+1 < len(keyValues) {
			key := fmt.Sprintf("%v", keyValues[i])
			val := keyValues[i+1]
			baseLine += fmt.Sprintf(" %s=%v", key, val)
		}
	}

	l.logger.Println(baseLine)
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGreen  = "\033[32m"
)

// enableColors enables ANSI colors for Windows console
func enableColors() {
	if runtime.GOOS == "windows" {
		handle := windows.Handle(windows.STD_OUTPUT_HANDLE)
		var mode uint32
		err := windows.GetConsoleMode(handle, &mode)
		if err == nil {
			// Enable virtual terminal processing (0x0004)
			mode |= 0x0004
			_ = windows.SetConsoleMode(handle, mode)
		}
	}
}

// Info logs informational messages.
func Info(message string, keyValues ...interface{}) {
	if instance == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: INFO %s %v\n", message, keyValues)
		return
	}
	instance.logMessage(LevelInfo, message, keyValues...)
}

// Debug logs debug messages.
func Debug(message string, keyValues ...interface{}) {
	if instance == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: DEBUG %s %v\n", message, keyValues)
		return
	}
	instance.logMessage(LevelDebug, message, keyValues...)
}

// Warn logs warning messages.
func Warn(message string, keyValues ...interface{}) {
	if instance == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: WARN %s %v\n", message, keyValues)
		return
	}
	instance.logMessage(LevelWarn, message, keyValues...)
}

// Error logs error messages.
func Error(message string, keyValues ...interface{}) {
	if instance == nil {
		fmt.Printf("LOGGING NOT INITIALIZED: ERROR %s %v\n", message, keyValues)
		return
	}
	instance.logMessage(LevelError, message, keyValues...)
}

// New creates a standalone console Logger for command-line output.
func New(verbose bool) *Logger {
	enableColors()

	output := os.Stdout
	if !verbose {
		output = os.Stderr
	}
	l := log.New(output, "", 0)
	return &Logger{
		logger:   l,
		logLevel: LevelInfo,
		logFile:  nil, // no file logging for this instance
	}
}

// colorPrintf prints a colored message.
func (l *Logger) colorPrintf(color, format string, v ...interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ts := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, v...)
	l.logger.Printf("%s[%s] %s%s", color, ts, msg, colorReset)
}

// Printf prints a regular message.
func (l *Logger) Printf(format string, v ...interface{}) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ts := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, v...)
	l.logger.Printf("[%s] %s", ts, msg)
}

// Info prints an informational message (instance method counterpart to the package-level Info).
func (l *Logger) Info(format string, v ...interface{}) {
	l.Printf(format, v...)
}

// Success prints a success message in green.
func (l *Logger) Success(format string, v ...interface{}) {
	l.colorPrintf(colorGreen, format, v...)
}

// Error prints an error message in red.
func (l *Logger) Error(format string, v ...interface{}) {
	l.colorPrintf(colorRed, format, v...)
}

// Warning prints a warning message in yellow.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.colorPrintf(colorYellow, format, v...)
}

// Fatal prints an error message in red and exits.
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.Error(format, v...)
	os.Exit(1)
}

// GetCurrentLogDir returns the current timestamped log directory
func GetCurrentLogDir() string {
	if instance == nil {
		return ""
	}
	instance.mu.RLock()
	defer instance.mu.RUnlock()
	return instance.logDir
}
