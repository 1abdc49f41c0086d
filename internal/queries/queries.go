// Package queries loads and edits the query list file: one query per
// line, blank lines and #-comments ignored.
package queries

import (
	"fmt"
	"os"
	"strings"
)

// Load reads the query file and returns the configured queries in order.
// A missing file is a configuration failure and aborts the run.
func Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query list: %w", err)
	}
	return parse(string(data)), nil
}

func parse(data string) []string {
	var out []string
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Add appends a query as a new line at the end of the file.
func Add(path, query string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening query list: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, query); err != nil {
		return fmt.Errorf("appending query: %w", err)
	}
	return nil
}

// Remove deletes the first line matching the query, preserving comments
// and blank lines. Returns false when no line matched.
func Remove(path, query string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading query list: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	removed := false
	var kept []string
	for _, line := range lines {
		if !removed && strings.TrimSpace(line) == query {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	if !removed {
		return false, nil
	}

	if err := os.WriteFile(path, []byte(strings.Join(kept, "\n")), 0o644); err != nil {
		return false, fmt.Errorf("writing query list: %w", err)
	}
	return true, nil
}
