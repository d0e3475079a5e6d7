package main

import (
	"fmt"
	"os"
	"strings"
)

// Connection holds the database credentials read from .env. Either
// APIEndpoint or DatabaseID+Region+Keyspace locates the database.
type Connection struct {
	APIEndpoint      string
	ApplicationToken string
	DatabaseID       string
	Region           string
	Keyspace         string
}

// Config is everything the demo reads from the environment.
type Config struct {
	Connection   Connection
	OpenAIAPIKey string
}

// LoadConfig reads the configuration from the environment. The API endpoint
// wins when both credential shapes are present.
func LoadConfig(getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	conn := Connection{
		APIEndpoint:      get("ASTRA_DB_API_ENDPOINT"),
		ApplicationToken: get("ASTRA_DB_APPLICATION_TOKEN"),
	}

	required := []struct{ key, value string }{
		{"ASTRA_DB_API_ENDPOINT", conn.APIEndpoint},
		{"ASTRA_DB_APPLICATION_TOKEN", conn.ApplicationToken},
	}
	if conn.APIEndpoint == "" && get("ASTRA_DB_ID") != "" {
		conn.DatabaseID = get("ASTRA_DB_ID")
		conn.Region = get("ASTRA_DB_REGION")
		conn.Keyspace = get("ASTRA_DB_KEYSPACE")
		required = []struct{ key, value string }{
			{"ASTRA_DB_ID", conn.DatabaseID},
			{"ASTRA_DB_REGION", conn.Region},
			{"ASTRA_DB_KEYSPACE", conn.Keyspace},
			{"ASTRA_DB_APPLICATION_TOKEN", conn.ApplicationToken},
		}
	}

	for _, r := range required {
		if r.value == "" {
			return nil, fmt.Errorf("%s environment variable not set", r.key)
		}
	}

	return &Config{Connection: conn, OpenAIAPIKey: get("OPENAI_API_KEY")}, nil
}

// Legacy reports whether the connection uses the id/region/keyspace shape.
func (c Connection) Legacy() bool {
	return c.APIEndpoint == "" && c.DatabaseID != ""
}

// URI returns the gRPC endpoint of the vector database. Legacy credentials
// name a managed cluster and are expanded to
// https://<id>.<region>.cloud.qdrant.io:6334, where region includes the
// cloud provider (for example us-east4-0.gcp).
func (c Connection) URI() string {
	if c.Legacy() {
		return fmt.Sprintf("https://%s.%s.%s:%d", c.DatabaseID, c.Region, cloudDomain, defaultGRPCPort)
	}
	return c.APIEndpoint
}

// CollectionName namespaces the movies collection by keyspace for legacy
// credentials.
func (c Connection) CollectionName() string {
	if c.Legacy() {
		return c.Keyspace + "_movies"
	}
	return "movies"
}

// redact keeps the first 13 characters of a secret, enough to recognize
// the token prefix.
func redact(secret string) string {
	if len(secret) <= 13 {
		return secret
	}
	return secret[:13] + "..."
}
