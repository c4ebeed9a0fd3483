package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// appName names the global config directory.
	appName = "vaihde"

	// LocalFileName is the project-local config file in the repository root.
	LocalFileName = "vaihde.toml"
)

// localFileNames are the project-local candidates in priority order.
var localFileNames = []string{LocalFileName, "vaihde.yaml", "vaihde.yml", "vaihde.json"}

// globalExtensions are the accepted extensions of the global file, in priority order.
var globalExtensions = []string{".toml", ".yaml", ".yml", ".json"}

// DefaultGlobalDir returns the directory holding per-repository config files:
// $XDG_CONFIG_HOME/vaihde when XDG_CONFIG_HOME is set, ~/.config/vaihde otherwise.
func DefaultGlobalDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", appName)
	}
	return filepath.Join(home, ".config", appName)
}

// LocalPath returns the project-local config path for a repository root.
func LocalPath(repoRoot string) string {
	return filepath.Join(repoRoot, LocalFileName)
}

// GlobalPath returns the TOML global config path for a repository root inside dir.
func GlobalPath(dir, repoRoot string) string {
	return filepath.Join(dir, MangledName(repoRoot)+".toml")
}

// MangledName turns a repository root into a flat file name stem.
//
// The path is made absolute and symlink-resolved, then the volume colon and
// leading separator are dropped and every remaining separator becomes "__":
//
//	/Users/akx/build/foo → Users__akx__build__foo
func MangledName(repoRoot string) string {
	path := repoRoot
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}

	if vol := filepath.VolumeName(path); vol != "" {
		path = strings.TrimSuffix(vol, ":") + path[len(vol):]
	}
	path = strings.TrimLeft(filepath.ToSlash(path), "/")
	return strings.ReplaceAll(path, "/", "__")
}

// expandHome replaces a leading "~" with home.
func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		return filepath.Join(home, path[2:])
	}
	return path
}
