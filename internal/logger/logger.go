// Copyright 2023 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger provides zfsd's structured logging, backed by log/slog
// and rotated on disk with gopkg.in/natefinch/lumberjack.v2.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/zlomekfs/zlomekfs/cfg"
)

// Severity levels, spaced the way slog's own Debug/Info/Warn/Error are,
// with Trace below Debug and Off above Error so every record is
// filtered out.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelOff   = slog.Level(12)
)

const timeLayout = "2006/01/02 15:04:05.000000"

type loggerFactory struct {
	fileWriter      io.WriteCloser
	sysWriter       io.Writer
	format          string
	level           string
	msgPrefix       string
	logRotateConfig cfg.LogRotateConfig
}

var defaultLoggerFactory = &loggerFactory{
	sysWriter: os.Stderr,
	level:     cfg.INFO,
	format:    string(cfg.TextLogFormat),
}

var defaultLogger = slog.New(defaultLoggerFactory.handler())

// severityToLevel maps a cfg.LogSeverity-style string to a slog.Level.
func severityToLevel(level string) slog.Level {
	switch level {
	case cfg.TRACE:
		return LevelTrace
	case cfg.DEBUG:
		return LevelDebug
	case cfg.WARNING:
		return LevelWarn
	case cfg.ERROR:
		return LevelError
	case cfg.OFF:
		return LevelOff
	default:
		return LevelInfo
	}
}

func setLoggingLevel(level string, programLevel *slog.LevelVar) {
	programLevel.Set(severityToLevel(level))
}

func levelName(l slog.Level) string {
	switch {
	case l < LevelDebug:
		return "TRACE"
	case l < LevelInfo:
		return "DEBUG"
	case l < LevelWarn:
		return "INFO"
	case l < LevelError:
		return "WARNING"
	default:
		return "ERROR"
	}
}

// replaceAttr renames slog's built-in keys to the severity/message/
// timestamp vocabulary zfsd's logs use, and (for JSON) nests the
// timestamp as {seconds,nanos} rather than a single formatted string.
func replaceAttr(jsonFormat bool) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		switch a.Key {
		case slog.LevelKey:
			a.Key = "severity"
			a.Value = slog.StringValue(levelName(a.Value.Any().(slog.Level)))
		case slog.MessageKey:
			a.Key = "message"
		case slog.TimeKey:
			t := a.Value.Time()
			if jsonFormat {
				a.Key = "timestamp"
				a.Value = slog.GroupValue(
					slog.Int64("seconds", t.Unix()),
					slog.Int64("nanos", int64(t.Nanosecond())),
				)
			} else {
				a.Value = slog.StringValue(t.Format(timeLayout))
			}
		}
		return a
	}
}

func (f *loggerFactory) writer() io.Writer {
	if f.fileWriter != nil {
		return f.fileWriter
	}
	if f.sysWriter != nil {
		return f.sysWriter
	}
	return os.Stderr
}

func (f *loggerFactory) createJsonOrTextHandler(w io.Writer, level *slog.LevelVar, msgPrefix string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceAttr(f.format == string(cfg.JSONLogFormat)),
	}
	prefixer := &prefixWriter{w: w, prefix: msgPrefix}
	if f.format == string(cfg.JSONLogFormat) {
		return slog.NewJSONHandler(prefixer, opts)
	}
	return slog.NewTextHandler(prefixer, opts)
}

// prefixWriter prepends prefix to the message field of each line it is
// given, used so tests can tag lines written to a shared buffer.
type prefixWriter struct {
	w      io.Writer
	prefix string
}

func (p *prefixWriter) Write(b []byte) (int, error) {
	if p.prefix == "" {
		return p.w.Write(b)
	}
	if _, err := p.w.Write(insertPrefix(b, p.prefix)); err != nil {
		return 0, err
	}
	return len(b), nil
}

// insertPrefix inserts prefix right before the message/msg field value,
// working for both the text and JSON handler's output shape. The text
// handler leaves a message with no spaces or quotes unquoted; such a
// value is quoted together with the prefix.
func insertPrefix(b []byte, prefix string) []byte {
	s := string(b)
	for _, marker := range []string{"message=\"", "\"message\":\""} {
		if idx := indexOf(s, marker); idx >= 0 {
			pos := idx + len(marker)
			return []byte(s[:pos] + prefix + s[pos:])
		}
	}
	if idx := indexOf(s, " message="); idx >= 0 {
		pos := idx + len(" message=")
		end := pos
		for end < len(s) && s[end] != ' ' && s[end] != '\n' {
			end++
		}
		return []byte(s[:pos] + strconv.Quote(prefix+s[pos:end]) + s[end:])
	}
	return b
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func (f *loggerFactory) handler() slog.Handler {
	programLevel := new(slog.LevelVar)
	setLoggingLevel(f.level, programLevel)
	return f.createJsonOrTextHandler(f.writer(), programLevel, f.msgPrefix)
}

// SetLogFormat switches the default logger's rendering between "text"
// and "json", rebuilding the handler over the current output.
func SetLogFormat(format string) {
	if format == "" {
		format = string(cfg.JSONLogFormat)
	}
	defaultLoggerFactory.format = format
	defaultLogger = slog.New(defaultLoggerFactory.handler())
}

// InitLogFile points the default logger at a rotated file, per loggingConfig.
func InitLogFile(loggingConfig cfg.LoggingConfig) error {
	defaultLoggerFactory.logRotateConfig = loggingConfig.LogRotate
	defaultLoggerFactory.level = string(loggingConfig.Severity)
	if loggingConfig.Format != "" {
		defaultLoggerFactory.format = string(loggingConfig.Format)
	}

	if loggingConfig.FilePath == "" {
		defaultLoggerFactory.sysWriter = os.Stderr
		defaultLogger = slog.New(defaultLoggerFactory.handler())
		return nil
	}

	defaultLoggerFactory.fileWriter = &lumberjack.Logger{
		Filename:   string(loggingConfig.FilePath),
		MaxSize:    loggingConfig.LogRotate.MaxFileSizeMB,
		MaxBackups: loggingConfig.LogRotate.BackupFileCount,
		Compress:   loggingConfig.LogRotate.Compress,
	}
	defaultLogger = slog.New(defaultLoggerFactory.handler())
	return nil
}

func Tracef(format string, v ...interface{}) { defaultLogger.Log(context.Background(), LevelTrace, fmt.Sprintf(format, v...)) }
func Debugf(format string, v ...interface{}) { defaultLogger.Debug(fmt.Sprintf(format, v...)) }
func Infof(format string, v ...interface{})  { defaultLogger.Info(fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...interface{})  { defaultLogger.Warn(fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...interface{}) { defaultLogger.Error(fmt.Sprintf(format, v...)) }

func Trace(v ...interface{}) { defaultLogger.Log(context.Background(), LevelTrace, fmt.Sprint(v...)) }
func Debug(v ...interface{}) { defaultLogger.Debug(fmt.Sprint(v...)) }
func Info(v ...interface{})  { defaultLogger.Info(fmt.Sprint(v...)) }
func Warn(v ...interface{})  { defaultLogger.Warn(fmt.Sprint(v...)) }
func Error(v ...interface{}) { defaultLogger.Error(fmt.Sprint(v...)) }

// Fatalf logs at error severity then exits the process, mirroring the
// teacher's use of logger.Fatal for unrecoverable startup failures.
func Fatalf(format string, v ...interface{}) {
	Errorf(format, v...)
	os.Exit(1)
}

// Close releases the rotated log file, if one is open.
func Close() error {
	if defaultLoggerFactory.fileWriter != nil {
		return defaultLoggerFactory.fileWriter.Close()
	}
	return nil
}
