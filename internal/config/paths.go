package config

import (
	"os"
	"path/filepath"
)

// Paths holds all the file system paths used by the application
type Paths struct {
	Home       string // ~/.ncte
	ConfigPath string // ~/.ncte/config.json
	LogDir     string // ~/.ncte/logs
}

// DefaultPaths returns the default paths configuration
func DefaultPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	return PathsAt(filepath.Join(home, ".ncte")), nil
}

// PathsAt lays out the paths under root.
func PathsAt(root string) *Paths {
	return &Paths{
		Home:       root,
		ConfigPath: filepath.Join(root, "config.json"),
		LogDir:     filepath.Join(root, "logs"),
	}
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.Home, p.LogDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
