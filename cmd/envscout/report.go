package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/envscout/envscout/internal/discovery"
	"github.com/envscout/envscout/internal/envfile"
)

// renderJSON mirrors the discovery result structure verbatim.
func renderJSON(w io.Writer, result *discovery.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// renderText prints the human-readable report: detected frameworks, the
// aggregated variables with their locations and defaults, then warnings.
// Paths are shown relative to the scan root.
func renderText(w io.Writer, root string, result *discovery.Result, frameworks []discovery.DetectedFramework) {
	if len(frameworks) > 0 {
		var parts []string
		for _, fw := range frameworks {
			parts = append(parts, fmt.Sprintf("%s (%s)", fw.Name, fw.Confidence))
		}
		fmt.Fprintf(w, "Detected frameworks: %s\n\n", strings.Join(parts, ", "))
	}

	fmt.Fprintf(w, "Found %d environment variable(s) across %d file(s)\n", len(result.EnvVars), result.FilesScanned)

	for _, v := range result.EnvVars {
		fmt.Fprintf(w, "\n  %s  %s (%s)\n", v.Name, v.Type, v.Confidence)
		for _, loc := range v.Locations {
			fmt.Fprintf(w, "    %s:%d", relPath(root, loc.File), loc.Line)
			if loc.DefaultValue != "" {
				fmt.Fprintf(w, "  default: %s", loc.DefaultValue)
			}
			fmt.Fprintln(w)
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings:\n")
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "  %s:%d  %s: %s\n", relPath(root, warning.File), warning.Line, warning.Kind, warning.Message)
		}
	}
}

func renderComparison(w io.Writer, comparison envfile.Comparison) {
	if len(comparison.Missing) == 0 && len(comparison.Unused) == 0 {
		fmt.Fprintln(w, "Env files and code agree")
		return
	}
	if len(comparison.Missing) > 0 {
		fmt.Fprintln(w, "Used in code but missing from env files:")
		for _, name := range comparison.Missing {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
	if len(comparison.Unused) > 0 {
		fmt.Fprintln(w, "Declared in env files but never read:")
		for _, name := range comparison.Unused {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
}

func renderComparisonJSON(w io.Writer, comparison envfile.Comparison) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(comparison)
}

func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}
