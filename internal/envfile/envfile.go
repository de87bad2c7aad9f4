package envfile

import (
	"fmt"
	"sort"

	"github.com/joho/godotenv"

	"github.com/envscout/envscout/internal/discovery"
)

// Comparison is the outcome of checking discovered variables against the
// keys declared in env files.
type Comparison struct {
	// Missing are variables used in code but absent from every env file.
	Missing []string `json:"missing"`
	// Unused are env-file keys never read by the scanned code.
	Unused []string `json:"unused"`
}

// Load reads one or more KEY=VALUE env files and returns the union of their
// keys. Later files never shadow anything here; only key presence matters.
func Load(paths ...string) (map[string]bool, error) {
	keys := make(map[string]bool)
	for _, path := range paths {
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("read env file %s: %w", path, err)
		}
		for key := range values {
			keys[key] = true
		}
	}
	return keys, nil
}

// Compare matches the discovery report's variable names against env-file
// keys. Both result lists are sorted for stable output.
func Compare(result *discovery.Result, keys map[string]bool) Comparison {
	used := make(map[string]bool, len(result.EnvVars))

	var comparison Comparison
	for _, v := range result.EnvVars {
		used[v.Name] = true
		if !keys[v.Name] {
			comparison.Missing = append(comparison.Missing, v.Name)
		}
	}
	for key := range keys {
		if !used[key] {
			comparison.Unused = append(comparison.Unused, key)
		}
	}

	sort.Strings(comparison.Missing)
	sort.Strings(comparison.Unused)
	return comparison
}
