// Package configutil reads layered json5 configuration files.
package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// ReadConfig reads `name` (with extension) and, if present, the
// matching `<name>.local.<ext>` next to it. Local values override the
// base file. Returns os.ErrNotExist when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found := false

	base, err := readInto(name, &out)
	if err != nil {
		return out, err
	}
	found = found || base

	var override T
	local, err := readInto(localName(name), &override)
	if err != nil {
		return out, err
	}
	if local {
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, err
		}
		slog.Debug("merged config with local overrides", "file", localName(name))
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively walks up from the working directory towards the
// filesystem root until ReadConfig finds a file matching name.
func ReadRecursively[T any](name string) (T, error) {
	var zero T

	current, err := os.Getwd()
	if err != nil {
		return zero, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if os.IsNotExist(err) {
			parent := filepath.Dir(current)
			if parent == current {
				return zero, os.ErrNotExist
			}
			current = parent
			continue
		}
		return config, err
	}
}

// ReadOptional is ReadRecursively except a missing file is not an
// error, just the zero config.
func ReadOptional[T any](name string) (T, bool, error) {
	config, err := ReadRecursively[T](name)
	if os.IsNotExist(err) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		return config, false, err
	}
	return config, true, nil
}

func readInto[T any](path string, out *T) (bool, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	if err := json5.Unmarshal(contents, out); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

func localName(name string) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s.local%s", strings.TrimSuffix(name, ext), ext)
}
