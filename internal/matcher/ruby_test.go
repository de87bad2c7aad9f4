package matcher

import (
	"testing"

	"github.com/envscout/envscout/internal/discovery"
)

func TestRuby_StaticPatterns(t *testing.T) {
	m, err := NewRuby()
	if err != nil {
		t.Fatalf("NewRuby failed: %v", err)
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
			name:     "element reference",
			source:   `port = ENV['PORT'].to_i`,
			wantName: "PORT",
			wantType: discovery.TypeInteger,
			wantConf: discovery.ConfidenceHigh,
		},
		{
			name:        "fetch with default",
			source:      `db = ENV.fetch('DATABASE_URL', 'postgres://localhost/dev')`,
			wantName:    "DATABASE_URL",
			wantType:    discovery.TypeConnectionString,
			wantConf:    discovery.ConfidenceMedium,
			wantDefault: "postgres://localhost/dev",
		},
		{
			name:        "or fallback",
			source:      `host = ENV['SMTP_HOST'] || 'localhost'`,
			wantName:    "SMTP_HOST",
			wantType:    discovery.TypeURL,
			wantConf:    discovery.ConfidenceMedium,
			wantDefault: "localhost",
		},
		{
			name:     "double quoted key",
			source:   `secret = ENV["SECRET_KEY_BASE"]`,
			wantName: "SECRET_KEY_BASE",
			wantType: discovery.TypeSecret,
			wantConf: discovery.ConfidenceMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := discover(t, m, "config.rb", tt.source)
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

func TestRuby_RejectsLookalikes(t *testing.T) {
	m, err := NewRuby()
	if err != nil {
		t.Fatalf("NewRuby failed: %v", err)
	}

	sources := []string{
		`value = CONFIG['PORT']`,
		`value = Settings.fetch('PORT')`,
	}
	for _, source := range sources {
		result := discover(t, m, "app.rb", source)
		if len(result.Usages) != 0 {
			t.Errorf("Expected no usages for %q, got %v", source, result.Usages)
		}
	}
}

func TestRuby_InterpolatedKeyWarnsOncePerLine(t *testing.T) {
	m, err := NewRuby()
	if err != nil {
		t.Fatalf("NewRuby failed: %v", err)
	}

	source := "value = ENV[\"#{prefix}_#{name}_KEY\"]\n" +
		"port = ENV['PORT']\n"
	result := discover(t, m, "app.rb", source)

	if len(result.Warnings) != 1 {
		t.Fatalf("Expected exactly 1 warning, got %d: %v", len(result.Warnings), result.Warnings)
	}
	if result.Warnings[0].Kind != discovery.WarnDynamicAccess {
		t.Errorf("Expected dynamic_access, got %s", result.Warnings[0].Kind)
	}
	if result.Warnings[0].Line != 1 {
		t.Errorf("Expected warning on line 1, got %d", result.Warnings[0].Line)
	}

	// The sibling static access still yields a usage.
	if len(result.Usages) != 1 || result.Usages[0].Name != "PORT" {
		t.Fatalf("Expected a PORT usage alongside the warning, got %v", result.Usages)
	}
	if result.Usages[0].Line != 2 {
		t.Errorf("Expected PORT on line 2, got %d", result.Usages[0].Line)
	}
}

func TestRuby_DynamicAndComputedKeys(t *testing.T) {
	m, err := NewRuby()
	if err != nil {
		t.Fatalf("NewRuby failed: %v", err)
	}

	tests := []struct {
		name     string
		source   string
		wantKind discovery.WarningKind
	}{
		{
			name:     "identifier index",
			source:   `value = ENV[key]`,
			wantKind: discovery.WarnDynamicAccess,
		},
		{
			name:     "concatenated key",
			source:   `value = ENV['APP_' + suffix]`,
			wantKind: discovery.WarnComputedKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := discover(t, m, "app.rb", tt.source)
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
