package utils

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"strings"
)

// EnvEntry is a single KEY=VALUE assignment read from an env file
type EnvEntry struct {
	Key   string
	Value string
}

// ParseEnvFile parses shell-style environment assignments: one KEY=VALUE per
// line, optional `export ` prefix, `#` comment lines and blank lines skipped,
// values optionally wrapped in single or double quotes. Entries are returned
// in file order; duplicate keys are preserved so later assignments win when
// flattened with EnvMap.
func ParseEnvFile(r io.Reader) ([]EnvEntry, error) {
	var entries []EnvEntry

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("line %d: not a KEY=VALUE assignment", lineNo)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("line %d: empty key", lineNo)
		}

		entries = append(entries, EnvEntry{Key: key, Value: unquote(strings.TrimSpace(value))})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	return entries, nil
}

// EnvMap flattens entries into a lookup map with later assignments taking
// precedence over earlier ones
func EnvMap(entries []EnvEntry) map[string]string {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.Key] = e.Value
	}
	return m
}

// MergeEnv merges multiple lookup maps with later maps having higher precedence
func MergeEnv(mm ...map[string]string) map[string]string {
	merged := map[string]string{}
	for _, m := range mm {
		maps.Copy(merged, m)
	}
	return merged
}

func unquote(value string) string {
	if len(value) < 2 {
		return value
	}
	if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
		return value[1 : len(value)-1]
	}
	return value
}
