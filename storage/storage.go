package storage

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

func init() {
	// Register types for gob encoding/decoding
	gob.Register(time.Time{})
}

// Storage handles persistent state files for the desktop client. Secrets do
// not belong here; those go through the CredentialStore.
type Storage struct {
	stateDir string
}

// NewStorage creates a Storage rooted at dir, or at
// ~/.local/state/<appName> when dir is empty.
func NewStorage(appName, dir string) (*Storage, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(homeDir, ".local", "state", appName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &Storage{stateDir: dir}, nil
}

// Load reads a state file into data using a gob decoder. A missing file is
// not an error; a corrupted file is removed so the next Save starts fresh.
func (s *Storage) Load(fileName string, data interface{}) error {
	filePath := filepath.Join(s.stateDir, fileName)
	if _, err := os.Stat(filePath); err != nil {
		return nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", filePath, err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(data); err != nil {
		// Do not keep a file we can no longer read.
		file.Close()
		os.Remove(filePath)
		return fmt.Errorf("decode %s (removed corrupted file): %w", filePath, err)
	}
	return nil
}

// Save writes data to a state file using a gob encoder
func (s *Storage) Save(fileName string, data interface{}) error {
	filePath := filepath.Join(s.stateDir, fileName)
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("create %s: %w", filePath, err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(data); err != nil {
		file.Close()
		os.Remove(filePath)
		return fmt.Errorf("encode %s: %w", filePath, err)
	}
	return nil
}
