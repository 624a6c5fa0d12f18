// Package logger 结构化日志
package logger

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// LogLevel 日志级别
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// LevelNames 级别名称映射
var LevelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

// ParseLevel 解析日志级别，无法识别时返回 INFO
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

var exitFunc = os.Exit

// options 同一根 logger 派生出的模块 logger 共享的设置
type options struct {
	mu         sync.RWMutex
	level      LogLevel
	jsonOutput bool
}

// StructuredLogger 结构化日志
type StructuredLogger struct {
	opts   *options
	module string
	logger *log.Logger
}

// NewStructuredLogger 创建结构化日志
func NewStructuredLogger(level LogLevel, module string, jsonOutput bool) *StructuredLogger {
	return &StructuredLogger{
		opts:   &options{level: level, jsonOutput: jsonOutput},
		module: module,
		logger: log.New(os.Stdout, "", 0),
	}
}

// WithModule 派生模块 logger，级别与输出格式随父级变化
func (l *StructuredLogger) WithModule(module string) *StructuredLogger {
	return &StructuredLogger{
		opts:   l.opts,
		module: module,
		logger: l.logger,
	}
}

// Module 模块名
func (l *StructuredLogger) Module() string { return l.module }

// Enabled 指定级别是否会输出
func (l *StructuredLogger) Enabled(level LogLevel) bool {
	l.opts.mu.RLock()
	defer l.opts.mu.RUnlock()
	return level >= l.opts.level
}

// Debug 调试日志
func (l *StructuredLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(DEBUG, msg, nil, keysAndValues...)
}

// Info 信息日志
func (l *StructuredLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log(INFO, msg, nil, keysAndValues...)
}

// Warn 警告日志
func (l *StructuredLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(WARN, msg, nil, keysAndValues...)
}

// Error 错误日志
func (l *StructuredLogger) Error(msg string, err error, keysAndValues ...interface{}) {
	l.log(ERROR, msg, err, keysAndValues...)
}

// Fatal 致命日志，输出后退出进程
func (l *StructuredLogger) Fatal(msg string, err error, keysAndValues ...interface{}) {
	l.log(FATAL, msg, err, keysAndValues...)
	exitFunc(1)
}

// Printf 兼容 log.Printf 风格的调用方（INFO 级别）
func (l *StructuredLogger) Printf(format string, v ...interface{}) {
	if !l.Enabled(INFO) {
		return
	}
	l.logger.Printf(format, v...)
}

func (l *StructuredLogger) log(level LogLevel, msg string, err error, keysAndValues ...interface{}) {
	if !l.Enabled(level) {
		return
	}
	entry := l.newEntry(level, msg)
	if err != nil {
		entry.Error = err.Error()
	}
	if len(keysAndValues) > 0 {
		entry.Fields = parseKeyValues(keysAndValues...)
	}
	l.output(entry)
}

func (l *StructuredLogger) newEntry(level LogLevel, msg string) *LogEntry {
	// log -> Info/Warn/... -> 调用方
	caller := ""
	if pc, _, _, ok := runtime.Caller(3); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}
	return &LogEntry{
		Level:     LevelNames[level],
		Timestamp: time.Now().Format(time.RFC3339),
		Message:   msg,
		Module:    l.module,
		Caller:    caller,
	}
}

func (l *StructuredLogger) output(entry *LogEntry) {
	l.opts.mu.RLock()
	jsonOutput := l.opts.jsonOutput
	l.opts.mu.RUnlock()

	if jsonOutput {
		data, _ := json.Marshal(entry)
		l.logger.Println(string(data))
		return
	}

	var b strings.Builder
	b.WriteString("[" + entry.Level + "] " + entry.Timestamp)
	if entry.Module != "" {
		b.WriteString(" [" + entry.Module + "]")
	}
	b.WriteString(" " + entry.Message)
	if entry.Error != "" {
		b.WriteString(" error=" + entry.Error)
	}
	if len(entry.Fields) > 0 {
		data, _ := json.Marshal(entry.Fields)
		b.WriteString(" " + string(data))
	}
	l.logger.Println(b.String())
}

// parseKeyValues 解析键值对，非字符串键和落单的键被忽略
func parseKeyValues(keysAndValues ...interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		v := keysAndValues[i+1]
		if err, isErr := v.(error); isErr && err != nil {
			v = err.Error()
		}
		result[key] = v
	}
	return result
}

// LogEntry 日志条目
type LogEntry struct {
	Level     string                 `json:"level"`
	Timestamp string                 `json:"timestamp"`
	Message   string                 `json:"message"`
	Module    string                 `json:"module,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// 全局logger
var global = NewStructuredLogger(INFO, "alertfi", false)

// Named 基于全局 logger 派生模块 logger
func Named(module string) *StructuredLogger {
	return global.WithModule(module)
}

// SetLevel 设置日志级别
func SetLevel(level LogLevel) {
	global.opts.mu.Lock()
	global.opts.level = level
	global.opts.mu.Unlock()
}

// SetJSONOutput 设置JSON输出
func SetJSONOutput(enabled bool) {
	global.opts.mu.Lock()
	global.opts.jsonOutput = enabled
	global.opts.mu.Unlock()
}

// SetOutput 设置输出目标
func SetOutput(w io.Writer) {
	global.logger.SetOutput(w)
}

// Output 当前输出目标
func Output() io.Writer {
	return global.logger.Writer()
}

// Debug 全局调试日志
func Debug(msg string, keysAndValues ...interface{}) {
	global.log(DEBUG, msg, nil, keysAndValues...)
}

// Info 全局信息日志
func Info(msg string, keysAndValues ...interface{}) {
	global.log(INFO, msg, nil, keysAndValues...)
}

// Warn 全局警告日志
func Warn(msg string, keysAndValues ...interface{}) {
	global.log(WARN, msg, nil, keysAndValues...)
}

// Error 全局错误日志
func Error(msg string, err error, keysAndValues ...interface{}) {
	global.log(ERROR, msg, err, keysAndValues...)
}

// Fatal 全局致命日志
func Fatal(msg string, err error, keysAndValues ...interface{}) {
	global.log(FATAL, msg, err, keysAndValues...)
	exitFunc(1)
}

// Printf 格式化日志
func Printf(format string, v ...interface{}) {
	global.logger.Printf(format, v...)
}
