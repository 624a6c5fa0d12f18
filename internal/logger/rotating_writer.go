package logger

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

const (
	defaultMaxLogSizeBytes = 2 * 1024 * 1024
	defaultMaxBackups      = 3
	defaultFlushInterval   = time.Second
	fileBufferSize         = 64 * 1024
)

// FileOptions 日志文件输出参数
type FileOptions struct {
	Path         string
	MaxSizeBytes int64 // 单个文件上限，<=0 使用 2MB
	MaxBackups   int   // 保留的历史文件数，<1 使用 3
}

func (o FileOptions) withDefaults() FileOptions {
	if o.Path == "" {
		o.Path = filepath.Join("logs", "alertfi.log")
	}
	if o.MaxSizeBytes <= 0 {
		o.MaxSizeBytes = defaultMaxLogSizeBytes
	}
	if o.MaxBackups < 1 {
		o.MaxBackups = defaultMaxBackups
	}
	return o
}

// backupPath 第 n 个历史文件：alertfi.log.1 最新
func (o FileOptions) backupPath(n int) string {
	return o.Path + "." + strconv.Itoa(n)
}

// rotatingWriter 按大小滚动的带缓冲文件写入器
type rotatingWriter struct {
	opts FileOptions

	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	size int64

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func newRotatingWriter(opts FileOptions, flushEvery time.Duration) (*rotatingWriter, error) {
	opts = opts.withDefaults()
	if flushEvery <= 0 {
		flushEvery = defaultFlushInterval
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	w := &rotatingWriter{opts: opts, done: make(chan struct{})}
	if err := w.open(); err != nil {
		return nil, err
	}

	w.wg.Add(1)
	go w.flushLoop(flushEvery)
	return w, nil
}

func (w *rotatingWriter) open() error {
	f, err := os.OpenFile(w.opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.file, w.size = f, info.Size()
	w.buf = bufio.NewWriterSize(f, fileBufferSize)
	return nil
}

func (w *rotatingWriter) flushLoop(every time.Duration) {
	defer w.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.Lock()
			if w.buf != nil {
				_ = w.buf.Flush()
			}
			w.mu.Unlock()
		}
	}
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}
	if w.size > 0 && w.size+int64(len(p)) > w.opts.MaxSizeBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.buf.Write(p)
	w.size += int64(n)
	return n, err
}

// rotate 调用方需持有锁
func (w *rotatingWriter) rotate() error {
	if err := w.closeFile(); err != nil {
		return err
	}
	_ = os.Remove(w.opts.backupPath(w.opts.MaxBackups))
	for n := w.opts.MaxBackups - 1; n >= 1; n-- {
		_ = os.Rename(w.opts.backupPath(n), w.opts.backupPath(n+1))
	}
	if err := os.Rename(w.opts.Path, w.opts.backupPath(1)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rotate log file: %w", err)
	}
	return w.open()
}

func (w *rotatingWriter) closeFile() error {
	if w.file == nil {
		return nil
	}
	flushErr := w.buf.Flush()
	closeErr := w.file.Close()
	w.file, w.buf = nil, nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// Close 停止后台刷盘并关闭文件
func (w *rotatingWriter) Close() error {
	w.once.Do(func() { close(w.done) })
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeFile()
}

// InitFileOutput 将日志同时写入标准输出和滚动文件
// 返回的 Closer 负责刷盘并关闭文件。
func InitFileOutput(opts FileOptions) (io.Closer, error) {
	w, err := newRotatingWriter(opts, defaultFlushInterval)
	if err != nil {
		return nil, err
	}
	SetOutput(io.MultiWriter(os.Stdout, w))
	return w, nil
}

// Configure 按配置初始化全局 logger
// file.Path 为空时只输出到标准输出，返回的 Closer 为 nil。
func Configure(level string, jsonOutput bool, file FileOptions) (io.Closer, error) {
	SetLevel(ParseLevel(level))
	SetJSONOutput(jsonOutput)
	if file.Path == "" {
		return nil, nil
	}
	return InitFileOutput(file)
}
