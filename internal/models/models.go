// Package models manages local model assets: inventory, download from HTTPS
// or SFTP sources, and serving files over HTTP.
package models

import (
	"os"
	"sort"
	"strings"
)

// SanitizeName flattens a model name like "org/model" into a directory name.
func SanitizeName(name string) string {
	return strings.ReplaceAll(name, "/", "--")
}

// Installed lists installed model directories under dir, sorted. A missing
// directory is an empty inventory, not an error.
func Installed(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}
