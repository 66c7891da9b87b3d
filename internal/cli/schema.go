package cli

import (
	"encoding/json"

	"github.com/ggoodman/lsp-server-go/session"
)

// Represents the 'lsp-server config-schema' command.
type ConfigSchemaCmd struct {
	Compact bool `help:"Print the schema on a single line."`
}

// Executes the config-schema command.
func (c *ConfigSchemaCmd) Run(s *Streams) error {
	enc := json.NewEncoder(s.Stdout)
	if !c.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(session.ConfigSchema())
}
