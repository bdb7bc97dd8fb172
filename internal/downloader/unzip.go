package downloader

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Unzip extracts a zip archive held in memory into dir and returns the
// extracted paths. Entries escaping dir are rejected.
func Unzip(data []byte, dir string) ([]string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("unzip: %w", err)
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range reader.File {
		target := filepath.Join(root, entry.Name)
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return nil, fmt.Errorf("unzip: illegal path '%s'", entry.Name)
		}

		if entry.FileInfo().IsDir() {
			err = os.MkdirAll(target, 0755)
			if err != nil {
				return nil, err
			}
			continue
		}

		err = extract(entry, target)
		if err != nil {
			return nil, fmt.Errorf("unzip: %w", err)
		}
		paths = append(paths, target)
	}
	return paths, nil
}

func extract(entry *zip.File, target string) error {
	err := os.MkdirAll(filepath.Dir(target), 0755)
	if err != nil {
		return err
	}

	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	mode := entry.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
