package generator

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// WriteFileIfChanged writes contents to filename unless the file already
// has those contents. It reports whether the file was written.
func WriteFileIfChanged(filename string, contents []byte) (bool, error) {
	var current []byte
	stat, err := os.Stat(filename)
	if os.IsNotExist(err) {
		goto overwrite
	}
	if err != nil {
		return false, err
	}
	if stat.Size() != int64(len(contents)) {
		goto overwrite
	}
	current, err = os.ReadFile(filename)
	if err != nil {
		return false, err
	}
	if bytes.Equal(current, contents) {
		return false, nil
	}

overwrite:
	if err := os.MkdirAll(filepath.Dir(filename), os.FileMode(0777)); err != nil {
		return false, err
	}
	if err := os.WriteFile(filename, contents, os.FileMode(0666)); err != nil {
		return false, err
	}
	return true, nil
}

// WriteFiles writes files into dir and returns the names of those whose
// contents changed.
func WriteFiles(dir string, files map[string]string) ([]string, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var changed []string
	for _, name := range names {
		wrote, err := WriteFileIfChanged(filepath.Join(dir, name), []byte(files[name]))
		if err != nil {
			return changed, fmt.Errorf("writing %s: %w", name, err)
		}
		if wrote {
			changed = append(changed, name)
		}
	}
	return changed, nil
}
