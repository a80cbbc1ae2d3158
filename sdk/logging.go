package sdk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	logTailLines    = 200
	logFileMaxBytes = 2 * 1024 * 1024
)

// logManager keeps a bounded in-memory tail of SDK log lines and optionally
// appends them to a rotating file. Host apps pull the tail through
// Client.LogSnapshot; the file exists so logs survive process death.
type logManager struct {
	mu       sync.Mutex
	dir      string
	baseName string
	file     *os.File
	size     int64
	tail     []string
}

func newLogManager() *logManager {
	return &logManager{baseName: "ulink-sdk.log"}
}

func (m *logManager) setDir(dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dir == "" {
		return fmt.Errorf("log directory is empty")
	}
	if m.dir == dir && m.file != nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	m.dir = dir
	return m.openLocked()
}

func (m *logManager) append(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}
	stamped := fmt.Sprintf("%s %s", time.Now().Format("2006-01-02 15:04:05.000"), line)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tail = append(m.tail, stamped)
	if len(m.tail) > logTailLines {
		m.tail = m.tail[len(m.tail)-logTailLines:]
	}
	m.appendFileLocked(stamped + "\n")
}

func (m *logManager) appendFileLocked(line string) {
	if m.file == nil {
		return
	}
	n, err := m.file.WriteString(line)
	if err != nil {
		return
	}
	m.size += int64(n)
	if m.size >= logFileMaxBytes {
		_ = m.rotateLocked()
	}
}

func (m *logManager) openLocked() error {
	path := filepath.Join(m.dir, m.baseName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if info, err := file.Stat(); err == nil {
		m.size = info.Size()
	}
	m.file = file
	return nil
}

func (m *logManager) rotateLocked() error {
	if m.file != nil {
		_ = m.file.Close()
		m.file = nil
	}
	base := filepath.Join(m.dir, m.baseName)
	_ = os.Rename(base, base+".1")
	m.size = 0
	return m.openLocked()
}

func (m *logManager) snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.tail))
	copy(out, m.tail)
	return out
}

func (m *logManager) closeFile() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file != nil {
		_ = m.file.Close()
		m.file = nil
	}
}

// logf writes a line to the platform sink (stderr + log file) and, in debug
// mode, mirrors it to the in-SDK debug log channel.
func (c *Client) logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, "ulink: "+line)
	c.logs.append(line)
	if c.cfg.Debug {
		c.debugLogs.emit(line)
	}
}

// debugf logs verbose lines in debug mode only.
func (c *Client) debugf(format string, args ...any) {
	if !c.cfg.Debug {
		return
	}
	c.logf(format, args...)
}

// warnf logs warnings/errors regardless of debug mode.
func (c *Client) warnf(format string, args ...any) {
	c.logf(format, args...)
}

// LogSnapshot returns a copy of the bounded SDK log tail.
func (c *Client) LogSnapshot() []string {
	return c.logs.snapshot()
}

// DebugLogs subscribes to the in-SDK debug log channel. Events are emitted
// only when Config.Debug is set.
func (c *Client) DebugLogs() (<-chan string, func()) {
	return c.debugLogs.subscribe()
}
