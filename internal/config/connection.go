// Package config holds the database credential bundle, its sources and the
// .env rendering shared by the initializer.
package config

import (
	"os"
	"strings"
)

// Environment keys written to and read from .env.
const (
	EnvAPIEndpoint      = "ASTRA_DB_API_ENDPOINT"
	EnvApplicationToken = "ASTRA_DB_APPLICATION_TOKEN"
	EnvDatabaseID       = "ASTRA_DB_ID"
	EnvRegion           = "ASTRA_DB_REGION"
	EnvKeyspace         = "ASTRA_DB_KEYSPACE"
	EnvOpenAIKey        = "OPENAI_API_KEY"
	EnvConfigFile       = "ASTRA_DB_CONFIG_FILE"
)

// Variant selects which credential shape a Connection carries.
type Variant int

const (
	// Current is the API endpoint + application token shape.
	Current Variant = iota
	// Legacy is the database id + region + keyspace + token shape.
	Legacy
)

func (v Variant) String() string {
	if v == Legacy {
		return "legacy"
	}
	return "current"
}

// Connection is the credential bundle needed to reach the hosted database.
// ApplicationToken is shared by both variants.
type Connection struct {
	Variant          Variant
	APIEndpoint      string
	ApplicationToken string
	DatabaseID       string
	Region           string
	Keyspace         string
}

// LookupFunc has the signature of os.LookupEnv so tests can inject a map.
type LookupFunc func(key string) (string, bool)

// OSLookup reads the process environment.
var OSLookup LookupFunc = os.LookupEnv

// MapLookup adapts a map to a LookupFunc.
func MapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

// Get returns the trimmed value of key, or "" if unset.
func (f LookupFunc) Get(key string) string {
	if f == nil {
		return ""
	}
	v, _ := f(key)
	return strings.TrimSpace(v)
}

// Validate checks that every field required by the variant is set.
// Fields are checked in .env order and the first gap is reported.
func (c Connection) Validate(source string) error {
	for _, f := range c.fields() {
		if f.value == "" {
			return &MissingFieldError{Source: source, Field: f.name}
		}
	}
	return nil
}

type field struct {
	name   string // name used in config files and error messages
	envKey string
	value  string
}

func (c Connection) fields() []field {
	if c.Variant == Legacy {
		return []field{
			{"databaseId", EnvDatabaseID, c.DatabaseID},
			{"region", EnvRegion, c.Region},
			{"keyspace", EnvKeyspace, c.Keyspace},
			{"token", EnvApplicationToken, c.ApplicationToken},
		}
	}
	return []field{
		{"apiEndpoint", EnvAPIEndpoint, c.APIEndpoint},
		{"applicationToken", EnvApplicationToken, c.ApplicationToken},
	}
}

// FromEnv returns the first complete credential set found in the
// environment, preferring Current over Legacy.
func FromEnv(lookup LookupFunc) (Connection, bool) {
	current := Connection{
		Variant:          Current,
		APIEndpoint:      lookup.Get(EnvAPIEndpoint),
		ApplicationToken: lookup.Get(EnvApplicationToken),
	}
	if current.Validate("environment") == nil {
		return current, true
	}

	legacy := Connection{
		Variant:          Legacy,
		DatabaseID:       lookup.Get(EnvDatabaseID),
		Region:           lookup.Get(EnvRegion),
		Keyspace:         lookup.Get(EnvKeyspace),
		ApplicationToken: lookup.Get(EnvApplicationToken),
	}
	if legacy.Validate("environment") == nil {
		return legacy, true
	}

	return Connection{}, false
}

// RenderEnv produces the .env content: KEY=VALUE lines in fixed order joined
// by "\n" with no trailing newline. The OpenAI line is appended only when
// openAIKey is non-empty.
func RenderEnv(conn Connection, openAIKey string) string {
	fields := conn.fields()
	lines := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		lines = append(lines, f.envKey+"="+f.value)
	}
	if openAIKey != "" {
		lines = append(lines, EnvOpenAIKey+"="+openAIKey)
	}
	return strings.Join(lines, "\n")
}
