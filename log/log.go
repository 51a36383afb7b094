package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const EnvLogPath = "DTMFPAD_LOG_PATH"

var (
	diagLog  = zerolog.Nop()
	diagFile *os.File
	dialFile *os.File
	logMu    sync.Mutex
	logReady bool
	level    = zerolog.InfoLevel
	pid      int
	dir      string
)

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

// ResolveDir picks the log directory: the --logpath flag, then
// DTMFPAD_LOG_PATH, then the config file's log.path, then the OS default.
func ResolveDir(flagPath, configPath string) (string, error) {
	if flagPath != "" {
		return absolute(flagPath)
	}
	if envPath := os.Getenv(EnvLogPath); envPath != "" {
		return absolute(envPath)
	}
	if configPath != "" {
		return absolute(configPath)
	}
	return getDefaultDir()
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// SetLevel parses a zerolog level name. It applies to the next Init and to
// the running logger.
func SetLevel(name string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	logMu.Lock()
	defer logMu.Unlock()
	level = lvl
	if logReady {
		diagLog = diagLog.Level(lvl)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	dialPath := filepath.Join(dir, "dial_log.txt")
	dialFile, err = os.OpenFile(dialPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).Level(level).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if dialFile != nil {
		dialFile.Close()
		dialFile = nil
	}
	diagLog = zerolog.Nop()
	logReady = false
}

// Logger returns the diagnostics logger for components that log with
// structured fields. Before Init it discards everything.
func Logger() zerolog.Logger {
	logMu.Lock()
	defer logMu.Unlock()
	return diagLog
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// Dialed appends one dialed sequence to dial_log.txt.
func Dialed(source, digits string) {
	if !logReady || digits == "" {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, source, digits)
	dialFile.WriteString(line)
}

func SessionStart(frontend, device string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("frontend", frontend).
		Str("device", device).
		Msg("session_start")
}

func SessionEnd(tones int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("tones", tones).
		Msg("session_end")
}
