package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store is the persistence collaborator. The control core invokes it on
// boot, on a save request and on a factory-reset trigger; the storage medium
// itself is outside the core.
type Store interface {
	// LoadSettings reads the persisted user settings.
	LoadSettings() (*Settings, error)

	// SaveSettings persists the user settings.
	SaveSettings(*Settings) error

	// LoadCapabilities reads the persisted capability record.
	LoadCapabilities() (*Capabilities, error)

	// SaveCapabilities persists the capability record.
	SaveCapabilities(*Capabilities) error

	// SetDefaults writes factory settings and capabilities.
	SetDefaults() error

	// Format erases the backing storage.
	Format() error
}

const (
	settingsFile     = "settings.cfg"
	capabilitiesFile = "capabilities.cfg"
)

// FileStore persists settings and capabilities as files under a directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("config: create store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// LoadSettings reads and parses the settings file.
func (fs *FileStore) LoadSettings() (*Settings, error) {
	data, err := os.ReadFile(filepath.Join(fs.dir, settingsFile))
	if err != nil {
		return nil, fmt.Errorf("config: read settings: %w", err)
	}
	return ParseSettings(string(data))
}

// SaveSettings writes the settings file atomically (write-then-rename).
func (fs *FileStore) SaveSettings(s *Settings) error {
	return fs.writeFile(settingsFile, s.Encode())
}

// LoadCapabilities reads and parses the capabilities file.
func (fs *FileStore) LoadCapabilities() (*Capabilities, error) {
	data, err := os.ReadFile(filepath.Join(fs.dir, capabilitiesFile))
	if err != nil {
		return nil, fmt.Errorf("config: read capabilities: %w", err)
	}
	return ParseCapabilities(string(data))
}

// SaveCapabilities writes the capabilities file atomically.
func (fs *FileStore) SaveCapabilities(c *Capabilities) error {
	return fs.writeFile(capabilitiesFile, c.Encode())
}

// SetDefaults writes factory settings and capabilities.
func (fs *FileStore) SetDefaults() error {
	if err := fs.SaveSettings(DefaultSettings()); err != nil {
		return err
	}
	return fs.SaveCapabilities(DefaultCapabilities())
}

// Format removes all persisted files.
func (fs *FileStore) Format() error {
	for _, name := range []string{settingsFile, capabilitiesFile} {
		if err := os.Remove(filepath.Join(fs.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("config: format: %w", err)
		}
	}
	return nil
}

func (fs *FileStore) writeFile(name, data string) error {
	path := filepath.Join(fs.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(data), 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("config: rename %s: %w", name, err)
	}
	return nil
}

// MemStore is an in-memory Store for tests. It records call counts so tests
// can assert factory-reset and deferred-save behavior.
type MemStore struct {
	mu sync.Mutex

	settings     *Settings
	capabilities *Capabilities

	SaveCount    int
	FormatCount  int
	DefaultCount int
}

// NewMemStore returns a MemStore seeded with factory contents.
func NewMemStore() *MemStore {
	return &MemStore{
		settings:     DefaultSettings(),
		capabilities: DefaultCapabilities(),
	}
}

// LoadSettings returns the stored settings.
func (ms *MemStore) LoadSettings() (*Settings, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.settings == nil {
		return nil, fmt.Errorf("config: no settings stored")
	}
	return ParseSettings(ms.settings.Encode())
}

// SaveSettings stores a snapshot of the settings.
func (ms *MemStore) SaveSettings(s *Settings) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	snapshot, err := ParseSettings(s.Encode())
	if err != nil {
		return err
	}
	ms.settings = snapshot
	ms.SaveCount++
	return nil
}

// LoadCapabilities returns the stored capability record.
func (ms *MemStore) LoadCapabilities() (*Capabilities, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.capabilities == nil {
		return nil, fmt.Errorf("config: no capabilities stored")
	}
	c := *ms.capabilities
	return &c, nil
}

// SaveCapabilities stores a copy of the capability record.
func (ms *MemStore) SaveCapabilities(c *Capabilities) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	cc := *c
	ms.capabilities = &cc
	return nil
}

// SetDefaults resets the stored contents to factory values.
func (ms *MemStore) SetDefaults() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.settings = DefaultSettings()
	ms.capabilities = DefaultCapabilities()
	ms.DefaultCount++
	return nil
}

// Format clears the stored contents.
func (ms *MemStore) Format() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.settings = nil
	ms.capabilities = nil
	ms.FormatCount++
	return nil
}
