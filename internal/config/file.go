package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigFileName is the name the database console gives the
// downloaded configuration file.
const DefaultConfigFileName = "astradb-config.json"

// fileConfig mirrors the downloaded JSON configuration file.
type fileConfig struct {
	DatabaseID string `json:"databaseId"`
	Region     string `json:"region"`
	Keyspace   string `json:"keyspace"`
	Token      string `json:"token"`
}

// LoadFile parses a downloaded configuration file into a Legacy connection.
// Each missing field yields a *MissingFieldError naming it.
func LoadFile(path string) (Connection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Connection{}, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return Connection{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	conn := Connection{
		Variant:          Legacy,
		DatabaseID:       fc.DatabaseID,
		Region:           fc.Region,
		Keyspace:         fc.Keyspace,
		ApplicationToken: fc.Token,
	}
	if err := conn.Validate("config file"); err != nil {
		return Connection{}, err
	}
	return conn, nil
}

// DefaultConfigFilePath points at the user's Downloads folder, falling back
// to the bare file name when the home directory is unknown.
func DefaultConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(home, "Downloads", DefaultConfigFileName)
}
