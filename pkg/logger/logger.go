package logger

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/globals"
)

const (
	maxEntries    = 1000
	flushInterval = 10 * time.Second
)

type Entry struct {
	Time   string `json:"time"`
	Uptime int64  `json:"uptimeMs"`
	Msg    string `json:"msg"`
}

type ring struct {
	mu        sync.Mutex
	entries   []Entry
	bootedAt  time.Time
	lastFlush time.Time
}

var r *ring

// Init routes the stdlib logger to stdout plus a bounded in-memory ring
// that the status surface can read back.
func Init() {
	r = &ring{
		entries:  load(),
		bootedAt: time.Now(),
	}
	log.SetOutput(io.MultiWriter(os.Stdout, r))
}

func (rg *ring) Write(p []byte) (int, error) {
	rg.mu.Lock()
	defer rg.mu.Unlock()

	now := time.Now()
	rg.entries = append(rg.entries, Entry{
		Time:   now.Format("15:04:05"),
		Uptime: now.Sub(rg.bootedAt).Milliseconds(),
		Msg:    string(p),
	})

	if len(rg.entries) > maxEntries {
		rg.entries = rg.entries[len(rg.entries)-maxEntries:]
	}

	// Flushing every entry wears flash, so persist at most once per interval.
	if now.Sub(rg.lastFlush) >= flushInterval {
		save(rg.entries)
		rg.lastFlush = now
	}

	return len(p), nil
}

// GetLogs returns a copy of the buffered entries, oldest first.
func GetLogs() []Entry {
	if r == nil {
		return []Entry{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry{}, r.entries...)
}

// Flush persists the ring immediately. Called on shutdown.
func Flush() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	save(r.entries)
	r.lastFlush = time.Now()
}

func load() []Entry {
	data, err := os.ReadFile(globals.LogsPath)
	if err != nil {
		return []Entry{}
	}
	var entries []Entry
	json.Unmarshal(data, &entries)
	return entries
}

func save(entries []Entry) {
	data, _ := json.Marshal(entries)
	os.WriteFile(globals.LogsPath, data, 0644)
}
