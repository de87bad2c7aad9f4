package matcher

import (
	"strings"

	"github.com/envscout/envscout/internal/discovery"
)

// conversion maps a textual conversion marker (a call like parseInt or a
// declared type) to the concrete type it implies.
type conversion struct {
	token string
	typ   discovery.ConfigType
}

// Keyword lists for name-based inference. Checked in a fixed precedence
// order so that DATABASE_URL hits the connection-string group before the
// generic URL group and SUPPORT_EMAIL hits email before PORT.
var (
	connectionKeywords = []string{
		"DATABASE_URL", "DB_URL", "MONGO_URI", "MONGODB_URI", "REDIS_URL",
		"POSTGRES_URL", "MYSQL_URL", "AMQP_URL", "CONNECTION_STRING", "DSN",
	}
	urlKeywords = []string{
		"URL", "URI", "HOST", "ENDPOINT", "ADDR",
	}
	secretKeywords = []string{
		"SECRET", "API_KEY", "APIKEY", "TOKEN", "PASSWORD", "PASSWD",
		"PRIVATE_KEY", "CREDENTIAL", "SIGNING_KEY",
	}
	emailKeywords = []string{
		"EMAIL", "MAIL_FROM", "MAIL_TO",
	}
	integerKeywords = []string{
		"PORT", "TIMEOUT", "MAX", "MIN", "COUNT", "LIMIT", "SIZE",
		"RETRIES", "WORKERS", "THREADS", "INTERVAL", "TTL",
	}
	booleanKeywords = []string{
		"DEBUG", "ENABLED", "ENABLE", "DISABLED", "DISABLE", "VERBOSE", "FLAG",
	}
	booleanPrefixes = []string{"IS_", "USE_", "HAS_"}
)

// Literal true/false comparisons found in line context imply a boolean read.
var booleanComparisons = []string{
	`== "true"`, `== 'true'`, `=== "true"`, `=== 'true'`,
	`== "false"`, `== 'false'`, `=== "false"`, `=== 'false'`,
	`.equals("true")`, `.equalsIgnoreCase("true")`,
}

// inferType runs the three-stage type inference policy: explicit conversion
// markers in the line context (high), boolean literal comparisons (medium),
// then curated name keywords (medium), falling back to string (low).
func inferType(name, context string, conversions []conversion) (discovery.ConfigType, discovery.Confidence) {
	for _, conv := range conversions {
		if strings.Contains(context, conv.token) {
			return conv.typ, discovery.ConfidenceHigh
		}
	}

	for _, cmp := range booleanComparisons {
		if strings.Contains(context, cmp) {
			return discovery.TypeBoolean, discovery.ConfidenceMedium
		}
	}

	if typ, ok := inferFromName(name); ok {
		return typ, discovery.ConfidenceMedium
	}

	return discovery.TypeString, discovery.ConfidenceLow
}

// inferFromName matches the variable name against the keyword groups in
// precedence order.
func inferFromName(name string) (discovery.ConfigType, bool) {
	upper := strings.ToUpper(name)

	groups := []struct {
		keywords []string
		typ      discovery.ConfigType
	}{
		{connectionKeywords, discovery.TypeConnectionString},
		{urlKeywords, discovery.TypeURL},
		{secretKeywords, discovery.TypeSecret},
		{emailKeywords, discovery.TypeEmail},
		{integerKeywords, discovery.TypeInteger},
		{booleanKeywords, discovery.TypeBoolean},
	}
	for _, group := range groups {
		for _, keyword := range group.keywords {
			if strings.Contains(upper, keyword) {
				return group.typ, true
			}
		}
	}

	for _, prefix := range booleanPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return discovery.TypeBoolean, true
		}
	}

	return "", false
}
