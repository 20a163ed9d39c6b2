package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// secretPaths are dot-notation paths whose values are masked wherever the
// config is displayed.
var secretPaths = map[string]bool{
	"service.apiKey": true,
}

// settablePaths is the config schema as seen by `config set`. Optional fields
// carry omitempty and may be absent from the marshaled form, so path validity
// cannot be derived from the current file.
var settablePaths = map[string]bool{
	"general.logLevel":       true,
	"general.logFile":        true,
	"service.baseUrl":        true,
	"service.apiKey":         true,
	"service.timeoutSeconds": true,
	"voice.enabled":          true,
	"voice.profileDir":       true,
	"voice.profile":          true,
	"session.idleMinutes":    true,
	"history.enabled":        true,
	"history.dbPath":         true,
	"metrics.enabled":        true,
	"metrics.addr":           true,
}

// asMap round-trips the config through JSON into a generic map so paths can
// be traversed without reflection.
func asMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromMap(m map[string]any, cfg *Config) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

// GetByPath retrieves a config value by dot-notation path (e.g. "service.baseUrl").
func GetByPath(cfg *Config, path string) (any, error) {
	m, err := asMap(cfg)
	if err != nil {
		return nil, err
	}

	var current any = m
	for _, key := range strings.Split(path, ".") {
		section, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot traverse into %T at %s", current, key)
		}
		current, ok = section[key]
		if !ok {
			// Optional fields are omitted from the marshaled form when
			// empty; known ones read as the empty string.
			if settablePaths[path] {
				return "", nil
			}
			return nil, fmt.Errorf("key not found: %s", path)
		}
	}
	if secretPaths[path] {
		if s, ok := current.(string); ok {
			return maskString(s), nil
		}
	}
	return current, nil
}

// SetByPath sets a config value by dot-notation path. Only paths in the
// schema are accepted; a typo never silently grows the file.
func SetByPath(cfg *Config, path string, value any) error {
	if !settablePaths[path] {
		return fmt.Errorf("unknown config path: %s", path)
	}

	m, err := asMap(cfg)
	if err != nil {
		return err
	}

	parts := strings.Split(path, ".")
	parent := m
	for _, key := range parts[:len(parts)-1] {
		child, ok := parent[key].(map[string]any)
		if !ok {
			child = make(map[string]any)
			parent[key] = child
		}
		parent = child
	}
	parent[parts[len(parts)-1]] = parseValue(value)

	return fromMap(m, cfg)
}

// parseValue converts string input to the type the field most likely wants.
func parseValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// Sanitize returns a copy of the config with sensitive values masked.
func Sanitize(cfg *Config) *Config {
	var out Config
	m, err := asMap(cfg)
	if err != nil || fromMap(m, &out) != nil {
		return cfg
	}
	if out.Service.APIKey != "" {
		out.Service.APIKey = maskString(out.Service.APIKey)
	}
	return &out
}

// maskString shows first 4 and last 4 chars, masks the rest.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// ListPaths returns all settable config paths with their current values,
// secrets masked.
func ListPaths(cfg *Config) map[string]any {
	m, err := asMap(Sanitize(cfg))
	if err != nil {
		return nil
	}
	result := make(map[string]any)
	var walk func(prefix string, section map[string]any)
	walk = func(prefix string, section map[string]any) {
		for k, v := range section {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			if child, ok := v.(map[string]any); ok {
				walk(path, child)
				continue
			}
			result[path] = v
		}
	}
	walk("", m)
	return result
}
