// Package registry loads a node's peer list: a file of whitespace-separated
// peer URLs with an optional leading "*" bridge marker (spec.md §4.E).
package registry

import (
	"fmt"
	"os"
	"strings"
)

// Registry is immutable after Load — there is no hot reload.
type Registry struct {
	peers  []string
	bridge bool
}

// Load reads path and parses its contents into a Registry. An empty file
// yields an empty peer list and bridge=false.
func Load(path string) (*Registry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load peer registry %s: %w", path, err)
	}

	tokens := strings.Fields(string(content))

	bridge := false
	if len(tokens) > 0 && tokens[0] == "*" {
		bridge = true
		tokens = tokens[1:]
	}

	return &Registry{peers: tokens, bridge: bridge}, nil
}

// Peers returns the configured peer base URLs, in declaration order.
func (r *Registry) Peers() []string {
	out := make([]string, len(r.peers))
	copy(out, r.peers)
	return out
}

// Bridge reports whether the leading "*" marker was present: this node
// tags its own outgoing fan-out requests as bridge requests.
func (r *Registry) Bridge() bool {
	return r.bridge
}
