// Package config loads the sensor and scenario JSON files.
//
// Every field is optional. Values are stored as pointers so an omitted
// field can be told apart from a zero one, and the Get* accessors fill in
// defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const maxFileSize = 1 * 1024 * 1024 // 1MB

// validator is implemented by every loadable config type.
type validator interface {
	Validate() error
}

// loadJSON reads path into v and validates it. The file must have a .json
// extension and be under maxFileSize.
func loadJSON(path string, v validator) error {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }
func ptrBool(v bool) *bool          { return &v }
