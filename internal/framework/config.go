package framework

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/envscout/envscout/internal/discovery"
)

//go:embed definitions/*.yaml
var definitions embed.FS

// Config is a loaded declarative framework definition.
type Config struct {
	Name        string
	Language    string
	Version     string
	Description string
	Detection   Detection
	Queries     []Query
	// ByLanguageType maps a language-specific value-type name to a config
	// type; it is read from by_js_type, by_python_type, by_java_type, or
	// by_ruby_type depending on Language. The rules are validated at load but
	// query execution does not yet consult them; framework-sourced usages
	// report as plain strings until static discovery refines them.
	ByLanguageType map[string]discovery.ConfigType
	ByNamePattern  []NameRule
}

// Detection describes how a framework is recognized in a project.
type Detection struct {
	Files    []string `yaml:"files"`
	Patterns []string `yaml:"patterns"`
}

// Query is one structural pattern to run against matching files.
type Query struct {
	Name        string
	Description string
	Pattern     string
	KeyCapture  string
	Confidence  discovery.Confidence
}

// NameRule maps a variable-name regex to a config type.
type NameRule struct {
	Pattern    *regexp.Regexp
	Type       discovery.ConfigType
	Confidence discovery.Confidence
	Note       string
}

type rawConfig struct {
	Name        string       `yaml:"name"`
	Language    string       `yaml:"language"`
	Version     string       `yaml:"version"`
	Description string       `yaml:"description"`
	Detection   Detection    `yaml:"detection"`
	Queries     []rawQuery   `yaml:"queries"`
	Inference   rawInference `yaml:"type_inference"`
}

type rawQuery struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Pattern     string `yaml:"pattern"`
	KeyCapture  string `yaml:"key_capture"`
	Confidence  string `yaml:"confidence"`
}

type rawInference struct {
	ByJSType      map[string]string `yaml:"by_js_type"`
	ByPythonType  map[string]string `yaml:"by_python_type"`
	ByJavaType    map[string]string `yaml:"by_java_type"`
	ByRubyType    map[string]string `yaml:"by_ruby_type"`
	ByNamePattern []rawNameRule     `yaml:"by_name_pattern"`
}

type rawNameRule struct {
	Pattern    string `yaml:"pattern"`
	Type       string `yaml:"type"`
	Confidence string `yaml:"confidence"`
	Note       string `yaml:"note"`
}

// ParseConfig decodes a framework definition. Any missing required field,
// wrong value kind, or unknown literal fails the whole document; there is no
// partial success.
func ParseConfig(data []byte) (*Config, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var raw rawConfig
	if err := decoder.Decode(&raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode framework definition: %w", err)
	}

	switch {
	case raw.Name == "":
		return nil, fmt.Errorf("framework definition missing name")
	case raw.Language == "":
		return nil, fmt.Errorf("framework %s: missing language", raw.Name)
	case raw.Version == "":
		return nil, fmt.Errorf("framework %s: missing version", raw.Name)
	case raw.Description == "":
		return nil, fmt.Errorf("framework %s: missing description", raw.Name)
	case len(raw.Detection.Files) == 0:
		return nil, fmt.Errorf("framework %s: missing detection.files", raw.Name)
	case len(raw.Queries) == 0:
		return nil, fmt.Errorf("framework %s: missing queries", raw.Name)
	}

	cfg := &Config{
		Name:        raw.Name,
		Language:    raw.Language,
		Version:     raw.Version,
		Description: raw.Description,
		Detection:   raw.Detection,
	}

	for i, q := range raw.Queries {
		if q.Name == "" || q.Pattern == "" || q.KeyCapture == "" {
			return nil, fmt.Errorf("framework %s: query %d missing name, pattern, or key_capture", raw.Name, i)
		}
		conf, err := discovery.ParseConfidence(q.Confidence)
		if err != nil {
			return nil, fmt.Errorf("framework %s: query %s: %w", raw.Name, q.Name, err)
		}
		cfg.Queries = append(cfg.Queries, Query{
			Name:        q.Name,
			Description: q.Description,
			Pattern:     q.Pattern,
			KeyCapture:  q.KeyCapture,
			Confidence:  conf,
		})
	}

	// The language decides which by_*_type key applies; an absent key is an
	// empty map, not an error.
	var byType map[string]string
	switch raw.Language {
	case "javascript", "typescript":
		byType = raw.Inference.ByJSType
	case "python":
		byType = raw.Inference.ByPythonType
	case "java":
		byType = raw.Inference.ByJavaType
	case "ruby":
		byType = raw.Inference.ByRubyType
	}
	cfg.ByLanguageType = make(map[string]discovery.ConfigType, len(byType))
	for langType, typ := range byType {
		parsed, err := discovery.ParseConfigType(typ)
		if err != nil {
			return nil, fmt.Errorf("framework %s: type for %q: %w", raw.Name, langType, err)
		}
		cfg.ByLanguageType[langType] = parsed
	}

	for _, rule := range raw.Inference.ByNamePattern {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("framework %s: name pattern %q: %w", raw.Name, rule.Pattern, err)
		}
		typ, err := discovery.ParseConfigType(rule.Type)
		if err != nil {
			return nil, fmt.Errorf("framework %s: name pattern %q: %w", raw.Name, rule.Pattern, err)
		}
		parsed := NameRule{Pattern: re, Type: typ, Note: rule.Note}
		if rule.Confidence != "" {
			conf, err := discovery.ParseConfidence(rule.Confidence)
			if err != nil {
				return nil, fmt.Errorf("framework %s: name pattern %q: %w", raw.Name, rule.Pattern, err)
			}
			parsed.Confidence = conf
		}
		cfg.ByNamePattern = append(cfg.ByNamePattern, parsed)
	}

	return cfg, nil
}

// LoadDefinition loads and parses one embedded framework definition by its
// config path (e.g. "definitions/nestjs.yaml").
func LoadDefinition(path string) (*Config, error) {
	data, err := definitions.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read framework definition %s: %w", path, err)
	}
	return ParseConfig(data)
}
