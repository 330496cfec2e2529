package utils

import (
	"fmt"
	"os"
	"strings"
)

//InSlice returns true if given string appears in given slice
func InSlice(lookingFor string, slice []string) bool {
	for _, s := range slice {
		if s == lookingFor {
			return true
		}
	}

	return false
}

//ListDir returns a list of files/ directories in given path
func ListDir(path string) ([]string, error) {
	names := make([]string, 0)
	if files, err := os.ReadDir(path); err != nil {
		return nil, fmt.Errorf("ListDir: Error, got '%v'", err)
	} else {
		for _, f := range files {
			names = append(names, f.Name())
		}
	}

	return names, nil
}

//TrimExt returns given file name without its extension ("a.b.mp4" -> "a.b")
func TrimExt(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return name
}
