package configs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// SaveTOML saves a struct to a TOML file.
func SaveTOML(filePath string, data interface{}) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return err
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteTOML(file, data)
}

// WriteTOML encodes a struct as TOML to w.
func WriteTOML(w io.Writer, data interface{}) error {
	return toml.NewEncoder(w).Encode(data)
}

// LoadTOML loads a TOML file into a struct.
func LoadTOML(filePath string, data interface{}) error {
	_, err := toml.DecodeFile(filePath, data)
	return err
}

// LoadYAML loads a YAML file into a struct.
func LoadYAML(filePath string, data interface{}) error {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, data)
}

// loadFile decodes filePath into data, picking the format from the extension.
func loadFile(filePath string, data interface{}) error {
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".toml":
		return LoadTOML(filePath, data)
	case ".yaml", ".yml":
		return LoadYAML(filePath, data)
	default:
		return fmt.Errorf("unsupported config format %q (use .toml, .yaml or .yml)", ext)
	}
}
