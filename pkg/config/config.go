package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/uuid"

	"github.com/HybridzDynamics/yahmi-security-rover-sub003/pkg/globals"
)

type Config struct {
	mu   sync.RWMutex
	data map[string]any
}

var instance *Config
var once sync.Once

// Defaults applied when a key is absent. Pin numbers match the reference
// carrier board; intervals are milliseconds.
var defaults = map[string]any{
	"speakerPin":          float64(25),
	"micPin":              float64(26),
	"sdCSPin":             float64(5),
	"sampleRate":          float64(16000),
	"bitDepth":            float64(16),
	"masterVolume":        float64(50),
	"jpegQuality":         float64(12),
	"frameSize":           float64(8), // VGA
	"autoCaptureInterval": float64(5000),
	"logInterval":         float64(1000),
	"pollInterval":        float64(20),
}

// Init initializes the config system and creates config.json if it doesn't exist
func Init() error {
	var err error
	once.Do(func() {
		instance = &Config{
			data: make(map[string]any),
		}
		err = instance.load()
	})
	return err
}

// Get returns the singleton config instance
func Get() *Config {
	if instance == nil {
		panic("config not initialized - call Init() first")
	}
	return instance
}

func (c *Config) load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(globals.ConfigPath); os.IsNotExist(err) {
		return c.createInitialConfig()
	}

	data, err := os.ReadFile(globals.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, &c.data); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	return nil
}

func (c *Config) createInitialConfig() error {
	if err := os.MkdirAll(filepath.Dir(globals.ConfigPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("failed to generate device ID: %w", err)
	}

	c.data = map[string]any{
		"id":               id.String(),
		"firmware_version": globals.FirmwareVersion,
	}

	return c.save()
}

func (c *Config) save() error {
	data, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(globals.ConfigPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// SetKey sets a config value and persists to disk
// Pass nil to delete the key
func (c *Config) SetKey(key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value == nil {
		delete(c.data, key)
	} else {
		c.data[key] = value
	}

	return c.save()
}

// GetKey retrieves a config value
// Returns the value and a boolean indicating if the key exists
func (c *Config) GetKey(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, exists := c.data[key]
	return value, exists
}

// GetInt retrieves an integer config value, falling back to the built-in
// default when the key is absent or has the wrong type.
func (c *Config) GetInt(key string) int {
	c.mu.RLock()
	v, ok := c.data[key]
	c.mu.RUnlock()

	if !ok {
		v = defaults[key]
	}
	f, ok := v.(float64)
	if !ok {
		if d, dok := defaults[key].(float64); dok {
			return int(d)
		}
		return 0
	}
	return int(f)
}

// GetBool retrieves a boolean config value, defaulting to fallback when absent.
func (c *Config) GetBool(key string, fallback bool) bool {
	c.mu.RLock()
	v, ok := c.data[key]
	c.mu.RUnlock()

	if !ok {
		return fallback
	}
	b, ok := v.(bool)
	if !ok {
		return fallback
	}
	return b
}

// GetString retrieves a string config value, defaulting to fallback when absent.
func (c *Config) GetString(key, fallback string) string {
	c.mu.RLock()
	v, ok := c.data[key]
	c.mu.RUnlock()

	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	return s
}
