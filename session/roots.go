package session

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ggoodman/lsp-server-go/lsp"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// ResolveRoots returns the workspace roots for p. The result is never empty.
func ResolveRoots(cwd string, p lsp.InitializeParams) []string {
	if roots := folderPaths(p.WorkspaceFolders); len(roots) > 0 {
		return roots
	}
	if root, ok := rootPath(p); ok {
		return []string{root}
	}
	return []string{cwd}
}

func folderPaths(folders []protocol.WorkspaceFolder) []string {
	var out []string
	for _, f := range folders {
		if path, err := fileURIToPath(string(f.URI)); err == nil {
			out = append(out, path)
		}
	}
	return out
}

func rootPath(p lsp.InitializeParams) (string, bool) {
	if p.RootURI != "" {
		if path, err := fileURIToPath(p.RootURI); err == nil {
			return path, true
		}
	}
	if p.RootPath != "" {
		return p.RootPath, true
	}
	return "", false
}

// fileURIToPath converts a file:// URI to a local path. URIs naming a host
// other than localhost do not denote a local path.
func fileURIToPath(raw string) (path string, err error) {
	u, err := uri.Parse(raw)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(string(u), "file:") {
		return "", fmt.Errorf("not a file URI: %s", raw)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if host := parsed.Hostname(); host != "" && !strings.EqualFold(host, "localhost") {
		return "", fmt.Errorf("file URI with remote host %q: %s", host, raw)
	}
	// Filename panics on URIs it cannot map; treat that as unusable.
	defer func() {
		if r := recover(); r != nil {
			path, err = "", fmt.Errorf("unusable file URI %s: %v", raw, r)
		}
	}()
	return u.Filename(), nil
}
