package jobs

import (
	"fmt"
	"os"
	"path/filepath"

	"LocalMR/internal/types"
)

// CollectFiles expands paths into regular files, walking directories
// recursively.
func CollectFiles(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files or directories provided")
	}

	var files []string

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}

		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk directory %s: %w", path, err)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files found in the given paths")
	}

	return files, nil
}

// ReadInputs loads every file under paths as a (path, contents) pair.
func ReadInputs(paths []string) ([]types.InputPair[string, string], error) {
	files, err := CollectFiles(paths)
	if err != nil {
		return nil, err
	}

	inputs := make([]types.InputPair[string, string], 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
		inputs = append(inputs, types.InputPair[string, string]{Key: f, Value: string(data)})
	}

	return inputs, nil
}
