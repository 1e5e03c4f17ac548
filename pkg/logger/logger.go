package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// Options configures the package logger.
type Options struct {
	Level    string
	Format   string // text or json
	Output   string // console, file or both
	FilePath string
}

var (
	mu       sync.RWMutex
	std      = log.New(os.Stdout, "", 0)
	minLevel = INFO
	asJSON   bool
)

// Setup configures level, format and output.
func Setup(opts Options) error {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	format := strings.ToLower(opts.Format)
	if format == "" {
		format = "text"
	}
	if format != "json" && format != "text" {
		return fmt.Errorf("invalid log format: %s", opts.Format)
	}

	var writer io.Writer
	switch strings.ToLower(opts.Output) {
	case "", "console":
		writer = os.Stdout
	case "file":
		fw, err := openFile(opts.FilePath)
		if err != nil {
			return err
		}
		writer = fw
	case "both":
		fw, err := openFile(opts.FilePath)
		if err != nil {
			return err
		}
		writer = io.MultiWriter(os.Stdout, fw)
	default:
		return fmt.Errorf("invalid log output: %s", opts.Output)
	}

	mu.Lock()
	std = log.New(writer, "", 0)
	minLevel = lvl
	asJSON = format == "json"
	mu.Unlock()
	return nil
}

// SetOutput redirects output, mostly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	std = log.New(w, "", 0)
	mu.Unlock()
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("invalid log level: %s", s)
}

func openFile(path string) (io.Writer, error) {
	if path == "" {
		path = "logs/app.log"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func write(level Level, name, msg string) {
	mu.RLock()
	defer mu.RUnlock()
	if level < minLevel {
		return
	}
	ts := time.Now().Format("2006-01-02 15:04:05")
	if asJSON {
		line, _ := json.Marshal(map[string]string{"time": ts, "level": name, "msg": msg})
		std.Print(string(line))
		return
	}
	std.Printf("[%s] %s: %s", ts, name, msg)
}

func Debugf(format string, args ...interface{}) { write(DEBUG, "DEBUG", fmt.Sprintf(format, args...)) }
func Infof(format string, args ...interface{})  { write(INFO, "INFO", fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...interface{})  { write(WARN, "WARN", fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...interface{}) { write(ERROR, "ERROR", fmt.Sprintf(format, args...)) }

// Fatalf logs and exits regardless of level.
func Fatalf(format string, args ...interface{}) {
	write(ERROR, "FATAL", fmt.Sprintf(format, args...))
	os.Exit(1)
}
