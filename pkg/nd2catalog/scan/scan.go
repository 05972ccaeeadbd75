// Package scan enumerates ND2 files in an experiment folder tree.
package scan

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ND2Suffix is the suffix of the files handled by this module.
const ND2Suffix = ".nd2"

// ListFiles walks root recursively and returns the path of every file whose
// name ends with suffix. The comparison is literal and case-sensitive.
// Paths are sorted to keep the output stable across file systems.
func ListFiles(root, suffix string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), suffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// ListND2 returns every ".nd2" file below root.
func ListND2(root string) ([]string, error) {
	return ListFiles(root, ND2Suffix)
}
