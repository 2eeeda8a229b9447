package main

import (
	"errors"
	"os"
	"strings"
)

type Config struct {
	BaseDir    string
	CSVPath    string
	JSONRoot   string
	ReportsDir string
	BackupDir  string

	DryRun     bool
	Backup     bool
	RewriteSrc bool

	LogLevel  string
	LogFormat string
}

func (c Config) Validate() error {
	if c.BaseDir == "" {
		return errors.New("missing -dir")
	}
	if c.Backup && c.BackupDir == "" {
		return errors.New("missing -backup-dir")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return errors.New("log-format must be text or json")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		BaseDir:    ".",
		DryRun:     envFlag("ALT_DRY_RUN"),
		Backup:     envFlag("ALT_BACKUP"),
		RewriteSrc: envFlag("ALT_REWRITE_SRC"),
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// envFlag reads a 1/true/yes toggle from the environment.
func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
