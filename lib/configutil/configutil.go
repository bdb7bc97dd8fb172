package configutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"
	"github.com/titanous/json5"
)

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

func unmarshal(ext string, data []byte, out any) error {
	switch strings.ToLower(ext) {
	case "toml":
		return toml.Unmarshal(data, out)
	case "json", "json5", "":
		return json5.Unmarshal(data, out)
	}
	return fmt.Errorf("unsupported config format '%s'", ext)
}

// reads a configuration file, `name` should come with a file extension,
// it will automatically be lopped off to produce the other extensions.
// this function will merge the following files, where higher number is more prioritized.
// 1. <name>.<ext>
// 2. <name>.local.<ext>
//
// `.json` and `.json5` files are read as json5, `.toml` files as toml.
func ReadConfig[T any](name string) (T, error) {
	var out T
	return ReadConfigOver(name, out)
}

// ReadConfigOver is ReadConfig starting from `base`, keys missing from the
// files keep the value they have in `base`.
func ReadConfigOver[T any](name string, base T) (T, error) {
	out := base
	allNotFound := true

	dirname := filepath.Dir(name)
	basename := filepath.Base(name)
	prefixname, ext := splitExt(basename)

	defaultFile, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(defaultFile) > 0 {
		err = unmarshal(ext, defaultFile, &out)
		if err != nil {
			return out, fmt.Errorf("parse %s: %w", name, err)
		}
		allNotFound = false
	}

	localFilepath := filepath.Join(
		dirname,
		fmt.Sprintf("%s.local.%s", prefixname, ext),
	)
	localFile, err := os.ReadFile(localFilepath)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(localFile) > 0 {
		var override T
		err = unmarshal(ext, localFile, &override)
		if err != nil {
			return out, fmt.Errorf("parse %s: %w", localFilepath, err)
		}
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localFilepath)
		allNotFound = false
	}

	if allNotFound {
		return out, os.ErrNotExist
	}

	return out, nil
}

// ReadConfig but it recursively goes up the filesystem until the root
// to find a configuration file matching the name.
func ReadRecursively[T any](name string) (T, error) {
	var defaultOut T

	root, err := filepath.Abs("/")
	if err != nil {
		return defaultOut, err
	}
	current, err := os.Getwd()
	if err != nil {
		return defaultOut, err
	}

	for current != root {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if os.IsNotExist(err) {
			current = filepath.Dir(current)
			continue
		}
		if err != nil {
			return defaultOut, err
		}

		return config, nil
	}

	return defaultOut, os.ErrNotExist
}

// WriteConfig writes a configuration file in the format given by the
// extension of `name`, json files are indented by 2 spaces.
func WriteConfig[T any](name string, value T) error {
	_, ext := splitExt(filepath.Base(name))

	var buff bytes.Buffer
	switch strings.ToLower(ext) {
	case "toml":
		err := toml.NewEncoder(&buff).Encode(value)
		if err != nil {
			return err
		}
	case "json", "json5", "":
		encoded, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return err
		}
		buff.Write(encoded)
	default:
		return fmt.Errorf("unsupported config format '%s'", ext)
	}

	err := os.MkdirAll(filepath.Dir(name), 0777)
	if err != nil {
		return err
	}
	return os.WriteFile(name, buff.Bytes(), 0600)
}
