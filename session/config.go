package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/invopop/jsonschema"
)

// Config is the session configuration recognized in initializationOptions.
// Keys not listed here make the whole payload invalid.
type Config struct {
	PublishDecorations bool            `json:"publishDecorations" jsonschema:"description=Push syntax highlighting decorations to the client"`
	ExcludeGlobs       []string        `json:"excludeGlobs" jsonschema:"description=Glob patterns of paths excluded from the workspace"`
	UseClientWatching  bool            `json:"useClientWatching" jsonschema:"description=Ask the client to watch files instead of watching them in the server"`
	LRUCapacity        *int            `json:"lruCapacity" jsonschema:"description=Capacity of the analysis LRU caches; null keeps the engine default"`
	WithSysroot        bool            `json:"withSysroot" jsonschema:"description=Load the toolchain sources alongside the workspace,default=true"`
	FeatureFlags       map[string]bool `json:"featureFlags" jsonschema:"description=Named feature toggles passed to the engine"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		ExcludeGlobs: []string{},
		WithSysroot:  true,
		FeatureFlags: map[string]bool{},
	}
}

// ErrNoConfig is returned by DecodeConfig when the client sent no
// initialization options, or sent null.
var ErrNoConfig = errors.New("no initialization options")

// DecodeConfig decodes raw on top of DefaultConfig. Absent data, unknown
// keys, type mismatches and trailing data are errors.
func DecodeConfig(raw json.RawMessage) (Config, error) {
	if isAbsent(raw) {
		return DefaultConfig(), ErrNoConfig
	}
	cfg := DefaultConfig()
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return DefaultConfig(), err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return DefaultConfig(), fmt.Errorf("unexpected data after config object")
	}
	if cfg.ExcludeGlobs == nil {
		cfg.ExcludeGlobs = []string{}
	}
	if cfg.FeatureFlags == nil {
		cfg.FeatureFlags = map[string]bool{}
	}
	return cfg, nil
}

// isAbsent reports whether the client sent no initialization options.
func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// ConfigSchema returns the JSON Schema of Config.
func ConfigSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{DoNotReference: true}
	return r.Reflect(&Config{})
}
