// Package storage abstracts two physical media (SD card, onboard flash)
// behind one path-based file API with per-call fallback routing, a rotating
// append-log, and best-effort cleanup of aged files.
package storage

import (
	"errors"
	"fmt"
	"log"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/driver"
	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/globals"
)

var (
	ErrMediaUnavailable = errors.New("no storage medium available")
	ErrReentrantWrite   = errors.New("storage write re-entered")
)

// Deletion cap per cleanup run, so a huge backlog cannot stall the poll loop.
const maxCleanupDeletions = 1000

type Manager struct {
	media []driver.Medium // probe order: SD first, then flash
	clock driver.Clock

	bootedAt time.Time

	loggingEnabled bool
	logInterval    time.Duration
	currentLogFile string
	lastRotateAt   time.Time

	totalSpace uint64
	usedSpace  uint64
	freeSpace  uint64

	writing bool // reentrancy guard; storage is the sole serialization point
}

var instance *Manager
var once sync.Once

// Init builds the singleton manager over the given media and runs Begin.
// Begin never fails outright: each medium is independently optional.
func Init(media ...driver.Medium) {
	once.Do(func() {
		instance = New(time.Now, media...)
	})
	instance.Begin()
}

// Get returns the singleton manager instance
func Get() *Manager {
	if instance == nil {
		panic("storage not initialized - call Init() first")
	}
	return instance
}

// New builds a manager over the given media in fallback order.
func New(clock driver.Clock, media ...driver.Medium) *Manager {
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		media:       media,
		clock:       clock,
		bootedAt:    clock(),
		logInterval: time.Second,
	}
}

// Begin probes each medium and bootstraps the category directories on the
// available ones. It reports whether at least one medium is usable, but a
// false result still leaves the manager operating as an inert fallback so
// dependent subsystems degrade instead of halting.
func (m *Manager) Begin() bool {
	available := false
	for _, med := range m.media {
		if !med.Available() {
			log.Printf("Storage medium %s not available", med.Name())
			continue
		}
		available = true
		for _, dir := range []string{globals.DataPath, globals.ImagePath, globals.AudioPath, globals.LogPath} {
			if err := med.MkdirAll(dir); err != nil {
				log.Printf("Failed to create %s on %s: %v", dir, med.Name(), err)
			}
		}
		log.Printf("Storage medium %s initialized", med.Name())
	}

	if !available {
		log.Println("No storage available")
	}

	m.UpdateStorageInfo()
	return available
}

// End releases the manager. Media unmounting is the drivers' concern.
func (m *Manager) End() {
	m.loggingEnabled = false
	m.currentLogFile = ""
	log.Println("Storage manager deinitialized")
}

// active returns the first available medium, probing fresh on every call so
// a card hot-removed between calls is detected.
func (m *Manager) active() driver.Medium {
	for _, med := range m.media {
		if med.Available() {
			return med
		}
	}
	return nil
}

func (m *Manager) IsSDAvailable() bool {
	if len(m.media) == 0 {
		return false
	}
	return m.media[0].Available()
}

func (m *Manager) IsAvailable() bool {
	return m.active() != nil
}

// pathFor routes a bare filename into its logical category by extension.
// Already-qualified paths pass through unchanged.
func pathFor(filename string) string {
	if strings.Contains(filename, "/") {
		return filename
	}
	switch strings.ToLower(path.Ext(filename)) {
	case ".jpg", ".jpeg":
		return path.Join(globals.ImagePath, filename)
	case ".wav", ".mp3":
		return path.Join(globals.AudioPath, filename)
	case ".log", ".txt":
		return path.Join(globals.LogPath, filename)
	default:
		return path.Join(globals.DataPath, filename)
	}
}

// WriteFile stores data under the filename's category on the first available
// medium. The routing decision is made fresh per call.
func (m *Manager) WriteFile(filename string, data []byte) error {
	return m.write(filename, data, false)
}

// AppendFile appends to the file, creating it if absent.
func (m *Manager) AppendFile(filename string, data []byte) error {
	return m.write(filename, data, true)
}

func (m *Manager) write(filename string, data []byte, appendTo bool) error {
	if m.writing {
		return ErrReentrantWrite
	}
	m.writing = true
	defer func() { m.writing = false }()

	med := m.active()
	if med == nil {
		return ErrMediaUnavailable
	}

	p := pathFor(filename)
	var err error
	if appendTo {
		err = med.AppendFile(p, data)
	} else {
		err = med.WriteFile(p, data)
	}
	if err != nil {
		return fmt.Errorf("write to %s failed: %w", med.Name(), err)
	}
	return nil
}

// ReadFile reads the file from the first available medium.
func (m *Manager) ReadFile(filename string) ([]byte, error) {
	med := m.active()
	if med == nil {
		return nil, ErrMediaUnavailable
	}
	return med.ReadFile(pathFor(filename))
}

// DeleteFile removes the file from the first available medium.
func (m *Manager) DeleteFile(filename string) error {
	med := m.active()
	if med == nil {
		return ErrMediaUnavailable
	}
	return med.Remove(pathFor(filename))
}

// FileExists reports whether the file exists on the first available medium.
func (m *Manager) FileExists(filename string) bool {
	med := m.active()
	if med == nil {
		return false
	}
	return med.Exists(pathFor(filename))
}

// GetFileSize returns the file size, or 0 when unavailable or missing.
func (m *Manager) GetFileSize(filename string) int64 {
	med := m.active()
	if med == nil {
		return 0
	}
	size, err := med.Size(pathFor(filename))
	if err != nil {
		return 0
	}
	return size
}

// EnableLogging arms or disarms the rotating append-log.
func (m *Manager) EnableLogging(enable bool, interval time.Duration) {
	m.loggingEnabled = enable
	if interval > 0 {
		m.logInterval = interval
	}

	if enable {
		m.currentLogFile = m.GenerateFilename("log", "txt")
		m.lastRotateAt = m.clock()
		log.Printf("Logging enabled - file: %s", m.currentLogFile)
	} else {
		m.currentLogFile = ""
		log.Println("Logging disabled")
	}
}

func (m *Manager) IsLoggingEnabled() bool {
	return m.loggingEnabled
}

func (m *Manager) CurrentLogFile() string {
	return m.currentLogFile
}

// LogData appends one timestamped entry to the current log file. The
// rotation reference advances only when the write succeeds.
func (m *Manager) LogData(data string) error {
	if !m.loggingEnabled {
		return nil
	}

	if m.currentLogFile == "" {
		m.currentLogFile = m.GenerateFilename("log", "txt")
	}

	entry := fmt.Sprintf("%s: %s\n", m.uptimeStamp(), data)
	if err := m.AppendFile(m.currentLogFile, []byte(entry)); err != nil {
		return err
	}
	m.lastRotateAt = m.clock()
	return nil
}

// LogSensorData appends a formatted sensor reading line.
func (m *Manager) LogSensorData(values []float64) error {
	if !m.loggingEnabled {
		return nil
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%.2f", v)
	}
	return m.LogData("Sensors: " + strings.Join(parts, ", "))
}

// LogSystemEvent appends a marked system event line.
func (m *Manager) LogSystemEvent(event string) error {
	if !m.loggingEnabled {
		return nil
	}
	return m.LogData("EVENT: " + event)
}

// Update evaluates log rotation once per poll tick. When the interval has
// elapsed the current filename is dropped so the next write opens a fresh
// file; the reference timestamp itself moves on that write, not here.
func (m *Manager) Update() {
	if !m.loggingEnabled || m.currentLogFile == "" {
		return
	}
	if m.clock().Sub(m.lastRotateAt) >= m.logInterval {
		m.currentLogFile = ""
	}
}

// UpdateStorageInfo recomputes capacity figures from the active medium. It
// is deliberately not run on every file operation; callers refresh before
// trusting GetUsagePercentage.
func (m *Manager) UpdateStorageInfo() {
	med := m.active()
	if med == nil {
		m.totalSpace, m.usedSpace, m.freeSpace = 0, 0, 0
		return
	}

	usage, err := med.Usage()
	if err != nil {
		log.Printf("Failed to read usage from %s: %v", med.Name(), err)
		return
	}
	m.totalSpace = usage.Total
	m.usedSpace = usage.Used
	if usage.Used > usage.Total {
		m.usedSpace = usage.Total
	}
	m.freeSpace = m.totalSpace - m.usedSpace
}

func (m *Manager) GetTotalSpace() uint64 { return m.totalSpace }
func (m *Manager) GetUsedSpace() uint64  { return m.usedSpace }
func (m *Manager) GetFreeSpace() uint64  { return m.freeSpace }

func (m *Manager) GetUsagePercentage() float64 {
	if m.totalSpace == 0 {
		return 0
	}
	return float64(m.usedSpace) / float64(m.totalSpace) * 100.0
}

// CleanupOldFiles deletes managed files older than maxAgeDays from every
// available medium. Deletions are best-effort: a failed delete is logged
// and the scan continues. Returns the number of files removed.
func (m *Manager) CleanupOldFiles(maxAgeDays int) int {
	expiration := m.clock().Add(-time.Duration(maxAgeDays) * 24 * time.Hour)
	deleted := 0

	for _, med := range m.media {
		if !med.Available() {
			continue
		}
		for _, dir := range []string{globals.ImagePath, globals.AudioPath, globals.LogPath, globals.DataPath} {
			files, err := med.List(dir)
			if err != nil {
				log.Printf("Cleanup: failed to list %s on %s: %v", dir, med.Name(), err)
				continue
			}
			for _, f := range files {
				if !f.ModTime.Before(expiration) {
					continue
				}
				if err := med.Remove(path.Join(dir, f.Name)); err != nil {
					log.Printf("Cleanup: failed to delete %s: %v", f.Name, err)
					continue
				}
				deleted++
				if deleted >= maxCleanupDeletions {
					log.Printf("Cleanup: reached deletion cap (%d)", maxCleanupDeletions)
					return deleted
				}
			}
		}
	}

	if deleted > 0 {
		log.Printf("Cleanup: removed %d files older than %d days", deleted, maxAgeDays)
	}
	return deleted
}

// GenerateFilename builds the canonical artifact name: <prefix>_<millis>.<ext>
func (m *Manager) GenerateFilename(prefix, ext string) string {
	return fmt.Sprintf("%s_%d.%s", prefix, m.clock().UnixMilli(), ext)
}

// uptimeStamp renders time since boot as hh:mm:ss for log entries.
func (m *Manager) uptimeStamp() string {
	elapsed := m.clock().Sub(m.bootedAt)
	seconds := int64(elapsed.Seconds())
	return fmt.Sprintf("%d:%02d:%02d", (seconds/3600)%24, (seconds/60)%60, seconds%60)
}

// Status returns a human-readable summary for the status surface.
func (m *Manager) Status() string {
	med := m.active()
	if med == nil {
		return "Storage: unavailable"
	}
	return fmt.Sprintf("Storage: %s (%.1f%% used)", med.Name(), m.GetUsagePercentage())
}
