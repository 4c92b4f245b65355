// Package config manages trialgate configuration and filesystem paths.
//
// Settings are read from TRIALGATE_* environment variables, optionally
// seeded from a .env file. The default data root is ~/.trialgate/ holding
// the file-backed state, the sqlite database and staged payloads.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths contains all the filesystem paths used by trialgate.
type Paths struct {
	// Root is the base directory for all trialgate data (default: ~/.trialgate)
	Root string

	// State is the directory of the file-backed state store
	State string

	// Database is the sqlite database used by the sqlite store driver
	Database string

	// Payloads is where fetched payloads are staged before execution
	Payloads string
}

// PathsFor returns the paths under root. An empty root resolves to
// ~/.trialgate.
func PathsFor(root string) (*Paths, error) {
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		root = filepath.Join(home, ".trialgate")
	}

	return &Paths{
		Root:     root,
		State:    filepath.Join(root, "state"),
		Database: filepath.Join(root, "state.db"),
		Payloads: filepath.Join(root, "payloads"),
	}, nil
}

// EnsureDirectories creates all necessary directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		p.Root,
		p.State,
		p.Payloads,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
