// Package dotdir manages the .atlas/ and ~/.atlas directories that hold the
// config file and, by default, the sqlite database.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the atlas directory.
	dirName = ".atlas"

	// dbName is the default sqlite database filename inside the atlas dir.
	dbName = "atlas.sqlite"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .atlas/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.atlas/ dir
//  3. Home ~/.atlas/ dir
//  4. If none found, attempt to create ~/.atlas/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating atlas directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// SQLitePath resolves the database path: the override when given, otherwise
// atlas.sqlite inside the resolved .atlas/ directory.
func (m *Manager) SQLitePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	dir, err := m.Target("")
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, dbName), nil
}

// localDirExists checks whether a .atlas/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
