package migration

import (
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
)

var fileNamePattern = regexp.MustCompile(`^(\d{3})_([a-z0-9_]+)\.sql$`)

// Scan reads every migration file from the provided filesystem root and
// returns them ordered by version.
func Scan(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration set: %w", err)
	}

	migrations := make([]Migration, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		parsed, err := parseFile(fsys, entry.Name())
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, parsed)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	for i, m := range migrations {
		if want := fmt.Sprintf("%03d", i+1); m.Version != want {
			return nil, fmt.Errorf("%w: expected %s, found %s", ErrVersionGap, want, m.Version)
		}
	}

	return migrations, nil
}

func parseFile(fsys fs.FS, name string) (Migration, error) {
	matches := fileNamePattern.FindStringSubmatch(name)
	if matches == nil {
		return Migration{}, fmt.Errorf("%w: %s", ErrInvalidFileName, name)
	}

	content, err := fs.ReadFile(fsys, name)
	if err != nil {
		return Migration{}, fmt.Errorf("failed to read migration %s: %w", name, err)
	}
	sql := strings.TrimSpace(string(content))
	if sql == "" {
		return Migration{}, fmt.Errorf("%w: %s is empty", ErrInvalidFileName, name)
	}

	return Migration{
		Version:     matches[1],
		Description: strings.ReplaceAll(matches[2], "_", " "),
		SQL:         sql,
		FileName:    name,
	}, nil
}

// SplitStatements breaks a migration script into individual SQL statements,
// dropping comment-only and empty fragments. Statement bodies must not
// contain literal semicolons.
func SplitStatements(script string) []string {
	parts := strings.Split(script, ";")
	statements := make([]string, 0, len(parts))
	for _, part := range parts {
		if stmt := stripComments(part); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

func stripComments(fragment string) string {
	lines := strings.Split(fragment, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
