package config

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"go.viam.com/so3pose/logging"
)

// Format is the encoding of a config file.
type Format string

// The supported config formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errors.Errorf("unsupported config file extension %q", filepath.Ext(path))
	}
}

// Read reads a config from the given file. Environment variables in the file are expanded
// before decoding and fields the file omits keep their defaults.
func Read(filePath string, logger logging.Logger) (*Search, error) {
	format, err := FormatFromPath(filePath)
	if err != nil {
		return nil, err
	}
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	cfg, err := FromReader(filePath, bytes.NewReader(buf), format)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Debugw("read search config", "path", filePath, "format", format)
	}
	return cfg, nil
}

// FromReader decodes and validates a config. originalPath is only used in error messages.
func FromReader(originalPath string, r io.Reader, format Format) (*Search, error) {
	cfg := DefaultSearch()
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to decode config from json")
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrapf(err, "failed to decode config from yaml")
		}
	default:
		return nil, errors.Errorf("unsupported config format %q", format)
	}
	if err := cfg.Validate("search"); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", originalPath)
	}
	return cfg, nil
}
