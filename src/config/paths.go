package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName is used for every XDG directory and the environment prefix
const AppName = "chatportal"

// StoragePaths contains paths for application storage
type StoragePaths struct {
	DatabasePath string
	LogDir       string
}

// GetDefaultStoragePaths returns default storage paths using XDG base directories
func GetDefaultStoragePaths() StoragePaths {
	// session state belongs in XDG_STATE_HOME
	base := filepath.Join(xdg.StateHome, AppName)
	return StoragePaths{
		DatabasePath: filepath.Join(base, AppName+".db"),
		LogDir:       filepath.Join(base, "logs"),
	}
}

// GetUserConfigPath returns the per-user configuration file
func GetUserConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.json")
}
