package cli

import (
	"fmt"

	"github.com/ggoodman/lsp-server-go/internal"
)

// Represents the 'lsp-server version' command.
type VersionCmd struct{}

// Executes the version command.
func (c *VersionCmd) Run(s *Streams) error {
	_, err := fmt.Fprintln(s.Stdout, internal.VersionString())
	return err
}
