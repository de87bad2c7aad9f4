package discovery

import "fmt"

// ConfigType is the inferred configuration type of an environment variable.
type ConfigType string

const (
	TypeString           ConfigType = "string"
	TypeInteger          ConfigType = "integer"
	TypeBoolean          ConfigType = "boolean"
	TypeURL              ConfigType = "url"
	TypeConnectionString ConfigType = "connection_string"
	TypeSecret           ConfigType = "secret"
	TypeEmail            ConfigType = "email"
)

// ParseConfigType converts a type literal from a framework definition.
func ParseConfigType(s string) (ConfigType, error) {
	switch ConfigType(s) {
	case TypeString, TypeInteger, TypeBoolean, TypeURL, TypeConnectionString, TypeSecret, TypeEmail:
		return ConfigType(s), nil
	default:
		return "", fmt.Errorf("unknown config type %q", s)
	}
}

// Confidence expresses how certain a heuristic is about an inferred type
// or a framework detection.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank returns the merge rank of a confidence level. Lower rank wins when
// duplicate findings for the same variable are merged.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 0
	case ConfidenceMedium:
		return 1
	default:
		return 2
	}
}

// ParseConfidence converts a confidence literal from a framework definition.
func ParseConfidence(s string) (Confidence, error) {
	switch s {
	case "high":
		return ConfidenceHigh, nil
	case "medium":
		return ConfidenceMedium, nil
	case "low":
		return ConfidenceLow, nil
	default:
		return "", fmt.Errorf("unknown confidence %q", s)
	}
}

// WarningKind classifies an unresolved access site.
type WarningKind string

const (
	WarnDynamicAccess  WarningKind = "dynamic_access"
	WarnComputedKey    WarningKind = "computed_key"
	WarnUnknownPattern WarningKind = "unknown_pattern"
)

// EnvVarUsage is one observed access site of an environment variable.
type EnvVarUsage struct {
	Name         string     `json:"name"`
	Type         ConfigType `json:"type"`
	Confidence   Confidence `json:"confidence"`
	File         string     `json:"file"`
	Line         int        `json:"line"`
	Context      string     `json:"context,omitempty"`
	DefaultValue string     `json:"default_value,omitempty"`
}

// Warning is one access site the engine could not resolve to a variable name.
type Warning struct {
	File    string      `json:"file"`
	Line    int         `json:"line"`
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// ParseResult is the output of parsing one file.
type ParseResult struct {
	Usages   []EnvVarUsage
	Warnings []Warning
}

// Location is one occurrence of a variable inside the aggregated report.
type Location struct {
	File         string `json:"file"`
	Line         int    `json:"line"`
	Context      string `json:"context,omitempty"`
	DefaultValue string `json:"default_value,omitempty"`
}

// AggregatedEnvVar is the canonical unit of the final report: one entry per
// distinct variable name, carrying the highest-confidence type seen across
// all usages and every occurrence.
type AggregatedEnvVar struct {
	Name          string     `json:"name"`
	Type          ConfigType `json:"type"`
	Confidence    Confidence `json:"confidence"`
	Locations     []Location `json:"locations"`
	DefaultValues []string   `json:"default_values,omitempty"`
}

// Result is the top-level discovery report.
type Result struct {
	EnvVars      []AggregatedEnvVar `json:"env_vars"`
	Warnings     []Warning          `json:"warnings"`
	FilesScanned int                `json:"files_scanned"`
}

// DetectedFramework is one framework identified from a project's manifests.
type DetectedFramework struct {
	Name       string     `json:"name"`
	Language   string     `json:"language"`
	ConfigPath string     `json:"config_path"`
	Confidence Confidence `json:"confidence"`
}
