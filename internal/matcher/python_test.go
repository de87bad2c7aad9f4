package matcher

import (
	"testing"

	"github.com/envscout/envscout/internal/discovery"
)

func TestPython_StaticPatterns(t *testing.T) {
	m, err := NewPython()
	if err != nil {
		t.Fatalf("NewPython failed: %v", err)
	}

	tests := []struct {
		name        string
		source      string
		wantName    string
		wantType    discovery.ConfigType
		wantConf    discovery.Confidence
		wantDefault string
	}{
		{
			name:     "environ subscript",
			source:   `token = os.environ["API_TOKEN"]`,
			wantName: "API_TOKEN",
			wantType: discovery.TypeSecret,
			wantConf: discovery.ConfidenceMedium,
		},
		{
			name:     "getenv with int conversion",
			source:   `workers = int(os.getenv("WORKER_POOL"))`,
			wantName: "WORKER_POOL",
			wantType: discovery.TypeInteger,
			wantConf: discovery.ConfidenceHigh,
		},
		{
			name:        "getenv with default argument",
			source:      `host = os.getenv("HOST", "localhost")`,
			wantName:    "HOST",
			wantType:    discovery.TypeURL,
			wantConf:    discovery.ConfidenceMedium,
			wantDefault: "localhost",
		},
		{
			name:        "environ.get with default argument",
			source:      `region = os.environ.get("REGION", "eu-west-1")`,
			wantName:    "REGION",
			wantType:    discovery.TypeString,
			wantConf:    discovery.ConfidenceLow,
			wantDefault: "eu-west-1",
		},
		{
			name:        "or fallback",
			source:      `name = os.environ["SERVICE_NAME"] or "api"`,
			wantName:    "SERVICE_NAME",
			wantType:    discovery.TypeString,
			wantConf:    discovery.ConfidenceLow,
			wantDefault: "api",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := discover(t, m, "settings.py", tt.source)
			if len(result.Usages) != 1 {
				t.Fatalf("Expected 1 usage, got %d (warnings: %v)", len(result.Usages), result.Warnings)
			}
			usage := result.Usages[0]
			if usage.Name != tt.wantName {
				t.Errorf("Expected name %q, got %q", tt.wantName, usage.Name)
			}
			if usage.Type != tt.wantType || usage.Confidence != tt.wantConf {
				t.Errorf("Expected %s/%s, got %s/%s", tt.wantType, tt.wantConf, usage.Type, usage.Confidence)
			}
			if usage.DefaultValue != tt.wantDefault {
				t.Errorf("Expected default %q, got %q", tt.wantDefault, usage.DefaultValue)
			}
		})
	}
}

func TestPython_SameLineDuplicateKeepsDefault(t *testing.T) {
	m, err := NewPython()
	if err != nil {
		t.Fatalf("NewPython failed: %v", err)
	}

	// The body occurrence carries no default; the condition occurrence on the
	// same line does, and must survive the per-line dedupe.
	source := `mode = os.environ["MODE"] if os.environ["MODE"] else "dev"`
	result := discover(t, m, "settings.py", source)

	if len(result.Usages) != 1 {
		t.Fatalf("Expected 1 usage, got %d", len(result.Usages))
	}
	if result.Usages[0].DefaultValue != "dev" {
		t.Errorf("Expected default %q, got %q", "dev", result.Usages[0].DefaultValue)
	}
}

func TestPython_RejectsLookalikes(t *testing.T) {
	m, err := NewPython()
	if err != nil {
		t.Fatalf("NewPython failed: %v", err)
	}

	sources := []string{
		`value = cfg.environ["PORT"]`,
		`value = settings.getenv("PORT")`,
		`value = os.path["PORT"]`,
	}
	for _, source := range sources {
		result := discover(t, m, "app.py", source)
		if len(result.Usages) != 0 {
			t.Errorf("Expected no usages for %q, got %v", source, result.Usages)
		}
	}
}

func TestPython_DynamicAndComputedKeys(t *testing.T) {
	m, err := NewPython()
	if err != nil {
		t.Fatalf("NewPython failed: %v", err)
	}

	tests := []struct {
		name     string
		source   string
		wantKind discovery.WarningKind
	}{
		{
			name:     "identifier subscript",
			source:   `value = os.environ[key]`,
			wantKind: discovery.WarnDynamicAccess,
		},
		{
			name:     "identifier getenv argument",
			source:   `value = os.getenv(key)`,
			wantKind: discovery.WarnDynamicAccess,
		},
		{
			name:     "concatenated subscript",
			source:   `value = os.environ["APP_" + suffix]`,
			wantKind: discovery.WarnComputedKey,
		},
		{
			name:     "f-string subscript",
			source:   `value = os.environ[f"{prefix}_KEY"]`,
			wantKind: discovery.WarnComputedKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := discover(t, m, "app.py", tt.source)
			if len(result.Usages) != 0 {
				t.Errorf("Expected no usages, got %v", result.Usages)
			}
			if len(result.Warnings) != 1 {
				t.Fatalf("Expected 1 warning, got %d", len(result.Warnings))
			}
			if result.Warnings[0].Kind != tt.wantKind {
				t.Errorf("Expected kind %s, got %s", tt.wantKind, result.Warnings[0].Kind)
			}
		})
	}
}
