package fileio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirCreate creates the directory and its parents if they do not exist.
func DirCreate(dir string) error {
	return os.MkdirAll(dir, 0777)
}

// DirClear removes the directory with everything inside it, if retainDir
// is set an empty directory is left in its place.
func DirClear(dir string, retainDir bool) error {
	err := os.RemoveAll(dir)
	if err != nil {
		return fmt.Errorf("dir clear: %w", err)
	}
	if retainDir {
		return DirCreate(dir)
	}
	return nil
}

// FileDelete removes a file, a file that does not exist is not an error.
func FileDelete(file string) error {
	err := os.Remove(file)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func writeFile(file string, data []byte) error {
	err := os.MkdirAll(filepath.Dir(file), 0777)
	if err != nil {
		return err
	}
	return os.WriteFile(file, data, 0644)
}

func LoadStr(file string) (string, error) {
	data, err := os.ReadFile(file)
	return string(data), err
}

func SaveStr(file, content string) error {
	return writeFile(file, []byte(content))
}

func LoadBytes(file string) ([]byte, error) {
	return os.ReadFile(file)
}

func SaveBytes(file string, content []byte) error {
	return writeFile(file, content)
}

// LoadJSON decodes a json file into T.
func LoadJSON[T any](file string) (T, error) {
	var out T
	data, err := os.ReadFile(file)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	if err != nil {
		return out, fmt.Errorf("load %s: %w", file, err)
	}
	return out, nil
}

// SaveJSON encodes value into a json file indented by 2 spaces.
func SaveJSON[T any](file string, value T) error {
	var buff bytes.Buffer
	enc := json.NewEncoder(&buff)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	err := enc.Encode(value)
	if err != nil {
		return fmt.Errorf("save %s: %w", file, err)
	}
	return writeFile(file, bytes.TrimRight(buff.Bytes(), "\n"))
}

func LoadList(file string) ([]any, error) {
	return LoadJSON[[]any](file)
}

func SaveList(file string, data []any) error {
	return SaveJSON(file, data)
}

func LoadDict(file string) (map[string]any, error) {
	return LoadJSON[map[string]any](file)
}

func SaveDict(file string, data map[string]any) error {
	return SaveJSON(file, data)
}

func LoadListList(file string) ([][]any, error) {
	return LoadJSON[[][]any](file)
}

func SaveListList(file string, data [][]any) error {
	return SaveJSON(file, data)
}

func LoadListDict(file string) ([]map[string]any, error) {
	return LoadJSON[[]map[string]any](file)
}

func SaveListDict(file string, data []map[string]any) error {
	return SaveJSON(file, data)
}

// LoadLines reads the trimmed lines of a file, lines shorter than minChars
// or not containing keyword are dropped when those filters are set.
func LoadLines(file string, minChars int, keyword string) ([]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if minChars > 0 && len(line) < minChars {
			continue
		}
		if keyword != "" && !strings.Contains(line, keyword) {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}

func SaveLines(file string, lines []string) error {
	return writeFile(file, []byte(strings.Join(lines, "\n")))
}
