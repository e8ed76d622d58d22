package file

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
)

// DumpFilePaths returns every file at or beneath paths whose base name
// matches pattern (anchored at the start of the name). Directories are
// walked recursively. The result is sorted and free of duplicates.
//
// A path that does not exist is an error wrapping os.ErrNotExist.
func DumpFilePaths(pattern *regexp.Regexp, paths ...string) ([]string, error) {
	var found []string
	keep := func(p string) {
		if loc := pattern.FindStringIndex(filepath.Base(p)); loc != nil && loc[0] == 0 {
			found = append(found, filepath.Clean(p))
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("dump path %s: %w", root, err)
		}
		if !info.IsDir() {
			keep(root)
			continue
		}
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				keep(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	slices.Sort(found)
	return slices.Compact(found), nil
}
