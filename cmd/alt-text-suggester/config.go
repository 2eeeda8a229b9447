package main

import (
	"errors"
	"path/filepath"
)

type Config struct {
	BaseDir  string
	CSVPath  string
	JSONRoot string
	OutPath  string

	Model     string
	APIKey    string
	BatchSize int
	MaxImages int
	Overwrite bool

	LogLevel  string
	LogFormat string
}

func (c Config) Validate() error {
	if c.BaseDir == "" {
		return errors.New("missing -dir")
	}
	if c.OutPath == "" {
		return errors.New("missing -out")
	}
	if c.Model == "" {
		return errors.New("missing -model")
	}
	if c.BatchSize <= 0 {
		return errors.New("batch-size must be > 0")
	}
	if c.MaxImages < 0 {
		return errors.New("max-images must be >= 0")
	}
	if filepath.Clean(c.OutPath) == filepath.Clean(c.CSVPath) {
		return errors.New("-out must differ from the mapping CSV")
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
		BaseDir:   ".",
		Model:     "gpt-5-mini",
		BatchSize: 25,
		LogLevel:  "info",
		LogFormat: "text",
	}
}
