// Package logging is a thin key/value facade over zerolog.
//
// Output always goes to stderr: the capture CLI prints its image payload on
// stdout and nothing else may share that stream.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

// InitLogger configures the global logger. When file is set, entries are
// written as JSON to a rotating file in addition to the console on stderr.
func InitLogger(file string, maxSizeMB, maxBackups, maxAgeDays int, compress bool, level string) {
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	if file != "" {
		rotating := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   compress,
		}
		out = zerolog.MultiLevelWriter(out, rotating)
	}

	l := zerolog.New(out).With().Timestamp().Logger().Level(parseLevel(level))

	mu.Lock()
	logger = l
	mu.Unlock()
}

// SetLogLevel changes the level of the global logger. Unknown levels fall
// back to info.
func SetLogLevel(level string) {
	mu.Lock()
	logger = logger.Level(parseLevel(level))
	mu.Unlock()
}

// SetLoggerForTest replaces the global logger.
func SetLoggerForTest(l zerolog.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

func Debug(msg string, kv ...any) { write(zerolog.DebugLevel, msg, kv) }
func Info(msg string, kv ...any)  { write(zerolog.InfoLevel, msg, kv) }
func Warn(msg string, kv ...any)  { write(zerolog.WarnLevel, msg, kv) }
func Error(msg string, kv ...any) { write(zerolog.ErrorLevel, msg, kv) }

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func write(level zerolog.Level, msg string, kv []any) {
	mu.RLock()
	l := logger
	mu.RUnlock()

	ev := l.WithLevel(level)
	if ev == nil {
		return
	}
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 >= len(kv) {
			ev = ev.Interface(key, nil)
			break
		}
		if err, ok := kv[i+1].(error); ok {
			ev = ev.AnErr(key, err)
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
