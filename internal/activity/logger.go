// Package activity keeps a per-day audit trail of owner commands.
package activity

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger writes "2006-01-02 15:04:05 - <user> : <message>" lines to stdout
// and to <dir>/<date>.txt.
type Logger struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

func New(dir string) *Logger {
	return &Logger{dir: dir, now: time.Now}
}

// Log records msg for userID. File errors are reported but never returned.
func (l *Logger) Log(userID int64, msg string) {
	ts := l.now().UTC()
	line := fmt.Sprintf("%s - %d : %s", ts.Format("2006-01-02 15:04:05"), userID, msg)
	log.Println("[activity]", line)
	if l.dir == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.append(ts, line); err != nil {
		log.Printf("activity log: %v", err)
	}
}

func (l *Logger) append(ts time.Time, line string) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create log dir %q: %w", l.dir, err)
	}
	path := filepath.Join(l.dir, ts.Format("2006-01-02")+".txt")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return err
	}
	return f.Close()
}
