package agentconfig

import (
	"bytes"
	"encoding/json"

	"github.com/ShayCichocki/hive/internal/errdefs"
)

// Decode parses raw bytes into a typed config. Bytes that are not JSON
// at all fail with INVALID_JSON; well-formed JSON that does not match
// the schema (unknown fields, wrong types, missing required fields)
// fails with SCHEMA_INVALID.
func Decode(data []byte) (*AgentConfig, error) {
	if !json.Valid(data) {
		return nil, errdefs.InvalidJSON("config is not valid JSON")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var cfg AgentConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, errdefs.Wrap(errdefs.KindSchemaInvalid, err, "config does not match schema")
	}

	if err := schemaCheck(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// schemaCheck enforces the required fields a permissive decode cannot.
func schemaCheck(cfg *AgentConfig) error {
	if cfg.Version != SchemaVersion {
		return errdefs.SchemaInvalid("unsupported config version %q, want %q", cfg.Version, SchemaVersion)
	}
	if cfg.Identity.ID == "" {
		return errdefs.SchemaInvalid("config is missing identity.id")
	}
	if cfg.Identity.Role == "" {
		return errdefs.SchemaInvalid("config is missing identity.role")
	}
	return nil
}

// Encode renders the config as the pretty-printed JSON written to disk.
func Encode(cfg *AgentConfig) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, errdefs.Wrap(errdefs.KindSchemaInvalid, err, "encode config")
	}
	return append(data, '\n'), nil
}
