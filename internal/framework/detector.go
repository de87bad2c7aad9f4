package framework

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/envscout/envscout/internal/discovery"
)

// signature ties a framework to the manifest evidence that identifies it.
type signature struct {
	name       string
	language   string
	configPath string
	// deps are exact dependency names looked up in structured manifests
	// (package.json, pyproject.toml, Pipfile).
	deps []string
	// substrings are matched against free-form manifests such as
	// requirements.txt, pom.xml, build.gradle, and Gemfile.
	substrings map[string][]string
	// markers are files whose mere presence suggests the framework.
	markers []string
}

var signatures = []signature{
	{
		name:       "nestjs",
		language:   "typescript",
		configPath: "definitions/nestjs.yaml",
		deps:       []string{"@nestjs/core", "@nestjs/config"},
		markers:    []string{"nest-cli.json"},
	},
	{
		name:       "nextjs",
		language:   "javascript",
		configPath: "definitions/nextjs.yaml",
		deps:       []string{"next"},
		markers:    []string{"next.config.js", "next.config.mjs", "next.config.ts"},
	},
	{
		name:       "vite",
		language:   "javascript",
		configPath: "definitions/vite.yaml",
		deps:       []string{"vite"},
		markers:    []string{"vite.config.js", "vite.config.ts"},
	},
	{
		name:       "django",
		language:   "python",
		configPath: "definitions/django.yaml",
		deps:       []string{"django", "Django", "django-environ"},
		substrings: map[string][]string{
			"requirements.txt": {"django", "Django"},
		},
		markers: []string{"manage.py"},
	},
	{
		name:       "pydantic-settings",
		language:   "python",
		configPath: "definitions/pydantic-settings.yaml",
		deps:       []string{"pydantic-settings", "pydantic_settings"},
		substrings: map[string][]string{
			"requirements.txt": {"pydantic-settings", "pydantic_settings"},
		},
	},
	{
		name:       "spring-boot",
		language:   "java",
		configPath: "definitions/spring-boot.yaml",
		substrings: map[string][]string{
			"pom.xml":          {"spring-boot"},
			"build.gradle":     {"org.springframework.boot"},
			"build.gradle.kts": {"org.springframework.boot"},
		},
	},
	{
		name:       "rails",
		language:   "ruby",
		configPath: "definitions/rails.yaml",
		substrings: map[string][]string{
			"Gemfile": {"'rails'", `"rails"`},
		},
		markers: []string{"config/application.rb"},
	},
}

// Detect inspects a project root's manifest files and reports which known
// frameworks it uses. Dependency evidence yields high confidence, a marker
// file alone yields medium. A framework is reported at most once; stronger
// evidence seen first is never downgraded.
func Detect(root string) []discovery.DetectedFramework {
	manifests := readManifests(root)

	var found []discovery.DetectedFramework
	seen := make(map[string]bool)
	for _, sig := range signatures {
		conf, ok := sig.match(root, manifests)
		if !ok || seen[sig.name] {
			continue
		}
		seen[sig.name] = true
		found = append(found, discovery.DetectedFramework{
			Name:       sig.name,
			Language:   sig.language,
			ConfigPath: sig.configPath,
			Confidence: conf,
		})
	}
	return found
}

func (s signature) match(root string, manifests *manifestSet) (discovery.Confidence, bool) {
	for _, dep := range s.deps {
		if manifests.hasDependency(dep) {
			return discovery.ConfidenceHigh, true
		}
	}
	for file, needles := range s.substrings {
		content, ok := manifests.raw[file]
		if !ok {
			continue
		}
		for _, needle := range needles {
			if strings.Contains(content, needle) {
				return discovery.ConfidenceHigh, true
			}
		}
	}
	for _, marker := range s.markers {
		if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
			return discovery.ConfidenceMedium, true
		}
	}
	return "", false
}

// manifestSet holds parsed dependency names plus raw manifest contents for
// substring checks.
type manifestSet struct {
	deps map[string]bool
	raw  map[string]string
}

func readManifests(root string) *manifestSet {
	set := &manifestSet{
		deps: make(map[string]bool),
		raw:  make(map[string]string),
	}

	for _, name := range []string{"requirements.txt", "pom.xml", "build.gradle", "build.gradle.kts", "Gemfile"} {
		if data, err := os.ReadFile(filepath.Join(root, name)); err == nil {
			set.raw[name] = string(data)
		}
	}

	set.readPackageJSON(filepath.Join(root, "package.json"))
	set.readPyproject(filepath.Join(root, "pyproject.toml"))
	set.readPipfile(filepath.Join(root, "Pipfile"))
	return set
}

func (s *manifestSet) hasDependency(name string) bool {
	return s.deps[name]
}

func (s *manifestSet) readPackageJSON(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var manifest struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return
	}
	for dep := range manifest.Dependencies {
		s.deps[dep] = true
	}
	for dep := range manifest.DevDependencies {
		s.deps[dep] = true
	}
}

func (s *manifestSet) readPyproject(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var manifest struct {
		Project struct {
			Dependencies []string `toml:"dependencies"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Dependencies map[string]toml.Primitive `toml:"dependencies"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if _, err := toml.Decode(string(data), &manifest); err != nil {
		return
	}
	for _, spec := range manifest.Project.Dependencies {
		s.deps[requirementName(spec)] = true
	}
	for dep := range manifest.Tool.Poetry.Dependencies {
		s.deps[dep] = true
	}
}

func (s *manifestSet) readPipfile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var manifest struct {
		Packages    map[string]toml.Primitive `toml:"packages"`
		DevPackages map[string]toml.Primitive `toml:"dev-packages"`
	}
	if _, err := toml.Decode(string(data), &manifest); err != nil {
		return
	}
	for dep := range manifest.Packages {
		s.deps[dep] = true
	}
	for dep := range manifest.DevPackages {
		s.deps[dep] = true
	}
}

// requirementName strips a PEP 508 requirement spec down to its package name.
func requirementName(spec string) string {
	name := strings.TrimSpace(spec)
	for i, r := range name {
		switch r {
		case '=', '<', '>', '!', '~', '[', ';', ' ':
			return name[:i]
		}
	}
	return name
}
