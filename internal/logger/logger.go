// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public
// License along with this program. If not, see
// <https://www.gnu.org/licenses/>.

package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Level represents the severity level of a log message
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the string representation of a log level
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	case FatalLevel:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Field represents a structured logging field
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a boolean field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Float64 creates a floating point field
func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

// Error creates an error field
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration creates a duration field
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Any creates a field with any value
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger defines the interface for structured logging
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	WithContext(ctx context.Context) Logger
	WithFields(fields ...Field) Logger
	SetLevel(level Level)
	GetLevel() Level
}

// ZeroLogger implements the Logger interface over zerolog.
type ZeroLogger struct {
	zl  zerolog.Logger
	lvl Level
}

// NewLogger creates a new structured logger writing JSON lines to output.
func NewLogger(output io.Writer, level Level) *ZeroLogger {
	zl := zerolog.New(output).With().Timestamp().Logger().Level(level.zerolog())
	return &ZeroLogger{zl: zl, lvl: level}
}

// NewDefaultLogger creates a logger with settings sourced from
// AGENTWEB_LOG_LEVEL (DEBUG|INFO|WARN|ERROR, default INFO) and
// AGENTWEB_LOG_FORMAT ("console" for human-readable, default JSON).
func NewDefaultLogger() *ZeroLogger {
	level := InfoLevel
	if envLevel := os.Getenv("AGENTWEB_LOG_LEVEL"); envLevel != "" {
		switch strings.ToUpper(envLevel) {
		case "DEBUG":
			level = DebugLevel
		case "INFO":
			level = InfoLevel
		case "WARN":
			level = WarnLevel
		case "ERROR":
			level = ErrorLevel
		}
	}

	var output io.Writer = os.Stdout
	if strings.EqualFold(os.Getenv("AGENTWEB_LOG_FORMAT"), "console") {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return NewLogger(output, level)
}

func (l *ZeroLogger) event(level Level) *zerolog.Event {
	switch level {
	case DebugLevel:
		return l.zl.Debug()
	case WarnLevel:
		return l.zl.Warn()
	case ErrorLevel:
		return l.zl.Error()
	case FatalLevel:
		return l.zl.WithLevel(zerolog.FatalLevel)
	default:
		return l.zl.Info()
	}
}

// log is the internal logging method
func (l *ZeroLogger) log(level Level, msg string, fields ...Field) {
	ev := l.event(level)
	for _, f := range fields {
		ev = ev.Interface(f.Key, f.Value)
	}
	ev.Msg(msg)
}

// Debug logs a debug level message
func (l *ZeroLogger) Debug(msg string, fields ...Field) {
	l.log(DebugLevel, msg, fields...)
}

// Info logs an info level message
func (l *ZeroLogger) Info(msg string, fields ...Field) {
	l.log(InfoLevel, msg, fields...)
}

// Warn logs a warning level message
func (l *ZeroLogger) Warn(msg string, fields ...Field) {
	l.log(WarnLevel, msg, fields...)
}

// Error logs an error level message
func (l *ZeroLogger) Error(msg string, fields ...Field) {
	l.log(ErrorLevel, msg, fields...)
}

// Fatal logs a fatal level message and exits
func (l *ZeroLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields...)
	os.Exit(1)
}

// WithContext returns a new logger carrying the request ID found on ctx, if any.
func (l *ZeroLogger) WithContext(ctx context.Context) Logger {
	zl := l.zl
	if requestID, ok := ctx.Value(ctxKeyRequestID{}).(string); ok && requestID != "" {
		zl = zl.With().Str("request_id", requestID).Logger()
	}
	if traceID, ok := ctx.Value(ctxKeyTraceID{}).(string); ok && traceID != "" {
		zl = zl.With().Str("trace_id", traceID).Logger()
	}
	return &ZeroLogger{zl: zl, lvl: l.lvl}
}

// WithFields returns a new logger with additional base fields
func (l *ZeroLogger) WithFields(fields ...Field) Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}
	return &ZeroLogger{zl: ctx.Logger(), lvl: l.lvl}
}

// SetLevel sets the minimum log level
func (l *ZeroLogger) SetLevel(level Level) {
	l.lvl = level
	l.zl = l.zl.Level(level.zerolog())
}

// GetLevel returns the current log level
func (l *ZeroLogger) GetLevel() Level {
	return l.lvl
}

type ctxKeyRequestID struct{}
type ctxKeyTraceID struct{}

// WithRequestID returns a context carrying a request ID for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID{}, id)
}

// WithTraceID returns a context carrying a trace ID for log correlation.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyTraceID{}, id)
}

// FabricError represents a structured error with additional context,
// matching one of the error kinds the fabric reports.
type FabricError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *FabricError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *FabricError) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is comparison by error code, so sentinel FabricErrors
// can be compared against wrapped instances carrying different details/causes.
func (e *FabricError) Is(target error) bool {
	other, ok := target.(*FabricError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// WithDetails returns a copy of the error with key added to its details,
// for chaining, so sentinel errors are never mutated in place.
func (e *FabricError) WithDetails(key string, value interface{}) *FabricError {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// WithCause attaches an underlying cause and returns a copy for chaining,
// so sentinel errors are never mutated in place.
func (e *FabricError) WithCause(cause error) *FabricError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// NewFabricError creates a new fabric error
func NewFabricError(code, message string, cause error) *FabricError {
	return &FabricError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error kinds from the fabric's error taxonomy. Each is a sentinel
// *FabricError compared against via errors.Is, and wrapped with
// WithCause/WithDetails at the call site for the concrete failure.
const (
	ErrCodeKeyMaterial         = "KEY_MATERIAL_ERROR"
	ErrCodeIdentityMismatch    = "IDENTITY_MISMATCH"
	ErrCodeDiscovery           = "DISCOVERY_ERROR"
	ErrCodeNoCandidates        = "NO_CANDIDATES"
	ErrCodeNoVerifiedCandidate = "NO_VERIFIED_CANDIDATES"
	ErrCodeTransport           = "TRANSPORT_ERROR"
	ErrCodeAuthentication      = "AUTHENTICATION_FAILURE"
	ErrCodeHandler             = "HANDLER_ERROR"
	ErrCodeReporting           = "REPORTING_ERROR"
	ErrCodeConfiguration       = "CONFIGURATION_ERROR"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

var (
	// ErrKeyMaterial indicates a key could not be loaded, generated, or parsed.
	ErrKeyMaterial = NewFabricError(ErrCodeKeyMaterial, "key material error", nil)
	// ErrIdentityMismatch indicates a fetched record's digest does not match its claimed identifier.
	ErrIdentityMismatch = NewFabricError(ErrCodeIdentityMismatch, "identifier does not match public key digest", nil)
	// ErrDiscovery indicates the indexer search or overlay lookup failed outright.
	ErrDiscovery = NewFabricError(ErrCodeDiscovery, "discovery failed", nil)
	// ErrNoCandidates indicates a capability search returned zero identifiers.
	ErrNoCandidates = NewFabricError(ErrCodeNoCandidates, "no candidates advertise this capability", nil)
	// ErrNoVerifiedCandidates indicates candidates existed but none verified.
	ErrNoVerifiedCandidates = NewFabricError(ErrCodeNoVerifiedCandidate, "no candidate record verified", nil)
	// ErrTransport indicates an outbound RPC failed at the network layer.
	ErrTransport = NewFabricError(ErrCodeTransport, "transport error", nil)
	// ErrAuthentication indicates an inbound envelope failed signature or freshness checks.
	ErrAuthentication = NewFabricError(ErrCodeAuthentication, "authentication failure", nil)
	// ErrHandler indicates the registered message handler returned an error.
	ErrHandler = NewFabricError(ErrCodeHandler, "handler error", nil)
	// ErrReporting indicates a best-effort reputation report failed to reach the indexer.
	ErrReporting = NewFabricError(ErrCodeReporting, "reporting error", nil)
)

// Global logger instance
var defaultLogger Logger = NewDefaultLogger()

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(l Logger) {
	defaultLogger = l
}

// GetDefaultLogger returns the global default logger
func GetDefaultLogger() Logger {
	return defaultLogger
}

// Default returns the global default logger. It is a short alias for
// GetDefaultLogger used by callers that just want to attach fields.
func Default() Logger {
	return defaultLogger
}

// Package-level logging functions using the default logger

// Debug logs a debug message using the default logger
func Debug(msg string, fields ...Field) {
	defaultLogger.Debug(msg, fields...)
}

// Info logs an info message using the default logger
func Info(msg string, fields ...Field) {
	defaultLogger.Info(msg, fields...)
}

// Warn logs a warning message using the default logger
func Warn(msg string, fields ...Field) {
	defaultLogger.Warn(msg, fields...)
}

// ErrorMsg logs an error message using the default logger
func ErrorMsg(msg string, fields ...Field) {
	defaultLogger.Error(msg, fields...)
}

// Fatal logs a fatal message using the default logger and exits
func Fatal(msg string, fields ...Field) {
	defaultLogger.Fatal(msg, fields...)
}
