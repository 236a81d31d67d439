package model

import (
	"os"
	"path/filepath"
)

// HomeDir is the per-user callaudit directory (~/.callaudit)
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".callaudit"
	}
	return filepath.Join(home, ".callaudit")
}

func defaultCacheDir() string {
	return filepath.Join(HomeDir(), "cache")
}

func defaultStorePath() string {
	return filepath.Join(HomeDir(), "verdicts.db")
}
