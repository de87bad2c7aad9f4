package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/envscout/envscout/internal/discovery"
	"github.com/envscout/envscout/internal/framework"
)

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func runEngine(t *testing.T, opts Options, root string) (*discovery.Result, []discovery.DetectedFramework) {
	t.Helper()
	result, frameworks, err := New(opts).Run(root)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return result, frameworks
}

func findVar(result *discovery.Result, name string) (discovery.AggregatedEnvVar, bool) {
	for _, v := range result.EnvVars {
		if v.Name == name {
			return v, true
		}
	}
	return discovery.AggregatedEnvVar{}, false
}

func TestRun_SingleStaticAccess(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.js", "const port = process.env.PORT;\n")

	result, _ := runEngine(t, DefaultOptions(), root)
	if result.FilesScanned != 1 {
		t.Errorf("Expected 1 file scanned, got %d", result.FilesScanned)
	}
	if len(result.EnvVars) != 1 {
		t.Fatalf("Expected 1 variable, got %+v", result.EnvVars)
	}
	v := result.EnvVars[0]
	if v.Name != "PORT" || len(v.Locations) != 1 {
		t.Errorf("Expected PORT with 1 location, got %+v", v)
	}
}

func TestRun_SameVariableAcrossFiles(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 3; i++ {
		writeFile(t, root, fmt.Sprintf("file%d.js", i), "const url = process.env.DATABASE_URL;\n")
	}

	result, _ := runEngine(t, DefaultOptions(), root)
	if result.FilesScanned != 3 {
		t.Errorf("Expected 3 files scanned, got %d", result.FilesScanned)
	}
	if len(result.EnvVars) != 1 {
		t.Fatalf("Expected 1 variable, got %+v", result.EnvVars)
	}
	v := result.EnvVars[0]
	if len(v.Locations) != 3 {
		t.Errorf("Expected 3 locations, got %+v", v.Locations)
	}
	if v.Type != discovery.TypeConnectionString || v.Confidence != discovery.ConfidenceMedium {
		t.Errorf("Expected connection_string/medium, got %s/%s", v.Type, v.Confidence)
	}
}

func TestRun_ConfidenceMonotonicityAcrossLanguages(t *testing.T) {
	root := t.TempDir()
	// A name-keyword guess in one file, a high-confidence conversion in
	// another; the conversion wins regardless of file order.
	writeFile(t, root, "a.js", "const w = process.env.WORKERS;\n")
	writeFile(t, root, "b.py", "import os\nworkers = int(os.getenv('WORKERS'))\n")

	result, _ := runEngine(t, DefaultOptions(), root)
	v, ok := findVar(result, "WORKERS")
	if !ok {
		t.Fatalf("Expected WORKERS, got %+v", result.EnvVars)
	}
	if v.Type != discovery.TypeInteger || v.Confidence != discovery.ConfidenceHigh {
		t.Errorf("Expected integer/high to win the merge, got %s/%s", v.Type, v.Confidence)
	}
	if len(v.Locations) != 2 {
		t.Errorf("Expected 2 locations, got %+v", v.Locations)
	}
}

func TestRun_ParseIntScenario(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.js", "const port = parseInt(process.env.PORT);\n")

	result, _ := runEngine(t, DefaultOptions(), root)
	v, ok := findVar(result, "PORT")
	if !ok {
		t.Fatalf("Expected PORT, got %+v", result.EnvVars)
	}
	if v.Type != discovery.TypeInteger || v.Confidence != discovery.ConfidenceHigh {
		t.Errorf("Expected integer/high, got %s/%s", v.Type, v.Confidence)
	}
}

func TestRun_RubyInterpolatedKey(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "config.rb", "key = ENV[\"#{prefix}_KEY\"]\nport = ENV['PORT']\n")

	result, _ := runEngine(t, DefaultOptions(), root)
	if _, ok := findVar(result, "PORT"); !ok {
		t.Errorf("Expected the sibling static access to survive, got %+v", result.EnvVars)
	}
	if len(result.EnvVars) != 1 {
		t.Errorf("Expected only PORT, got %+v", result.EnvVars)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Kind != discovery.WarnDynamicAccess {
		t.Errorf("Expected one dynamic_access warning, got %+v", result.Warnings)
	}
}

func TestRun_IgnoredDirectoriesNeverScanned(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.js", "const a = process.env.APP_NAME;\n")
	writeFile(t, root, "node_modules/pkg/index.js", "const b = process.env.HIDDEN_VAR;\n")
	writeFile(t, root, "dist/bundle.js", "const c = process.env.BUNDLED_VAR;\n")

	result, _ := runEngine(t, DefaultOptions(), root)
	if result.FilesScanned != 1 {
		t.Errorf("Expected 1 file scanned, got %d", result.FilesScanned)
	}
	for _, name := range []string{"HIDDEN_VAR", "BUNDLED_VAR"} {
		if _, ok := findVar(result, name); ok {
			t.Errorf("Expected %s to be excluded", name)
		}
	}
}

func TestRun_OversizedFileSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.js", "const a = process.env.BIG_VAR;\n// padding\n")
	writeFile(t, root, "small.js", "const b = process.env.SMALL_VAR;\n")

	opts := DefaultOptions()
	opts.MaxFileSize = 35

	result, _ := runEngine(t, opts, root)
	if _, ok := findVar(result, "BIG_VAR"); ok {
		t.Errorf("Expected the oversized file to be skipped, got %+v", result.EnvVars)
	}
	if _, ok := findVar(result, "SMALL_VAR"); !ok {
		t.Errorf("Expected SMALL_VAR, got %+v", result.EnvVars)
	}
	if result.FilesScanned != 1 {
		t.Errorf("Expected 1 file scanned, got %d", result.FilesScanned)
	}
}

func TestRun_FrameworkQueriesApplied(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"dependencies": {"@nestjs/config": "^3.0.0"}}`)
	writeFile(t, root, "app.service.ts", "const timeout = this.configService.get('REQUEST_TIMEOUT');\n")

	result, frameworks := runEngine(t, DefaultOptions(), root)
	if len(frameworks) != 1 || frameworks[0].Name != "nestjs" {
		t.Fatalf("Expected nestjs detection, got %+v", frameworks)
	}
	v, ok := findVar(result, "REQUEST_TIMEOUT")
	if !ok {
		t.Fatalf("Expected REQUEST_TIMEOUT from framework queries, got %+v", result.EnvVars)
	}
	// Framework-sourced usages report as strings with the query's confidence.
	if v.Type != discovery.TypeString || v.Confidence != discovery.ConfidenceHigh {
		t.Errorf("Expected string/high, got %s/%s", v.Type, v.Confidence)
	}
}

func TestRun_JavaScriptFrameworkAppliesToTypeScript(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"dependencies": {"vite": "^5.0.0"}}`)
	writeFile(t, root, "src/env.ts", "export const api = import.meta.env.VITE_API_URL;\n")

	result, _ := runEngine(t, DefaultOptions(), root)
	if _, ok := findVar(result, "VITE_API_URL"); !ok {
		t.Errorf("Expected VITE_API_URL via the javascript-targeted framework, got %+v", result.EnvVars)
	}
}

func TestRun_DisableFrameworks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "package.json", `{"dependencies": {"@nestjs/config": "^3.0.0"}}`)
	writeFile(t, root, "app.service.ts", "const timeout = this.configService.get('REQUEST_TIMEOUT');\n")

	opts := DefaultOptions()
	opts.DisableFrameworks = true

	result, frameworks := runEngine(t, opts, root)
	if len(frameworks) != 0 {
		t.Errorf("Expected no frameworks, got %+v", frameworks)
	}
	if _, ok := findVar(result, "REQUEST_TIMEOUT"); ok {
		t.Errorf("Expected no framework-sourced usages, got %+v", result.EnvVars)
	}
}

func TestRun_BrokenFrameworkSkippedStaticSurvives(t *testing.T) {
	original := loadDefinition
	loadDefinition = func(path string) (*framework.Config, error) {
		cfg, err := framework.LoadDefinition(path)
		if err != nil {
			return nil, err
		}
		cfg.Queries[0].Pattern = "(nonexistent_node) @key"
		return cfg, nil
	}
	defer func() { loadDefinition = original }()

	root := t.TempDir()
	writeFile(t, root, "package.json", `{"dependencies": {"next": "14.0.0"}}`)
	writeFile(t, root, "app.js", "const port = parseInt(process.env.PORT);\n")

	result, frameworks := runEngine(t, DefaultOptions(), root)
	if len(frameworks) != 0 {
		t.Errorf("Expected the broken framework to be skipped, got %+v", frameworks)
	}
	v, ok := findVar(result, "PORT")
	if !ok {
		t.Fatalf("Expected static discovery to survive, got %+v", result.EnvVars)
	}
	if v.Type != discovery.TypeInteger {
		t.Errorf("Expected integer, got %s", v.Type)
	}
}

func TestRun_MissingRoot(t *testing.T) {
	result, _, err := New(DefaultOptions()).Run(filepath.Join(t.TempDir(), "nope"))
	// A vanished root scans as empty rather than failing.
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.FilesScanned != 0 || len(result.EnvVars) != 0 {
		t.Errorf("Expected an empty result, got %+v", result)
	}
}
