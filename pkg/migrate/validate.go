package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var migrationNamePattern = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks that every migration file follows the timestamped naming
// convention and that no version appears twice.
func ValidateDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	seen := map[string]string{}
	var problems []string

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		match := migrationNamePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			problems = append(problems, fmt.Sprintf("%s: bad migration name", entry.Name()))
			continue
		}
		version := match[1]
		if other, dup := seen[version]; dup {
			problems = append(problems, fmt.Sprintf("%s: version collides with %s", entry.Name(), other))
			continue
		}
		seen[version] = entry.Name()
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("invalid migrations in %s:\n  %s", filepath.Clean(dir), strings.Join(problems, "\n  "))
	}
	return nil
}
