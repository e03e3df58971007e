// Package classify resolves a file's document class: an external MIME probe
// feeds an ordered pattern registry whose first match wins.
package classify

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var builtinRegistryFS embed.FS

// Classes is the closed set of class tags the registry may assign.
var Classes = map[string]bool{
	"html": true, "text": true, "word": true, "excel": true,
	"powerpoint": true, "visio": true, "pdf": true, "lnk": true,
	"executable": true, "image": true, "audio": true, "video": true,
	"thumbsdb": true, "archive": true, "package": true, "bytecode": true,
	"winevent": true, "message": true, "sqlite": true, "pcap": true,
	"raw": true, "unknown": true,
}

// Entry describes how one class of documents is handled.
type Entry struct {
	// Class is the tag recorded in the output.
	Class string `yaml:"class"`
	// Patterns are lowercase substrings matched against the probed MIME.
	Patterns []string `yaml:"mime"`
	// Timeout names the deadline category: default, image or audio.
	Timeout string `yaml:"timeout,omitempty"`
	// Scratch marks extractors that may emit nested files.
	Scratch bool `yaml:"scratch,omitempty"`
	// Fanout caps nested files per expansion; 0 means the configured
	// OCR cap for sparse-only entries and unbounded otherwise.
	Fanout int `yaml:"fanout,omitempty"`
	// SparseOnly defers expansion until the primary text extraction
	// came back under the sparse-text threshold.
	SparseOnly bool `yaml:"sparse_only,omitempty"`
}

// Unknown is the fallback entry returned when no pattern matches.
var Unknown = Entry{Class: "unknown", Timeout: "default"}

type registryFile struct {
	Entries []Entry `yaml:"entries"`
}

// Registry is the declarative ordered dispatch table.
type Registry struct {
	entries []Entry
}

// LoadBuiltin parses the embedded registry.
func LoadBuiltin() (*Registry, error) {
	data, err := builtinRegistryFS.ReadFile("registry.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded registry: %w", err)
	}
	return Load(data)
}

// Load parses a registry from YAML bytes and validates it: every class must
// be in the closed set and no class may appear twice.
func Load(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing registry: %w", err)
	}
	if len(file.Entries) == 0 {
		return nil, fmt.Errorf("registry has no entries")
	}

	seen := make(map[string]bool)
	for i := range file.Entries {
		e := &file.Entries[i]
		if !Classes[e.Class] {
			return nil, fmt.Errorf("unknown class tag: %s", e.Class)
		}
		if seen[e.Class] {
			return nil, fmt.Errorf("duplicate class tag: %s", e.Class)
		}
		seen[e.Class] = true
		if len(e.Patterns) == 0 {
			return nil, fmt.Errorf("class %s has no patterns", e.Class)
		}
		if e.Timeout == "" {
			e.Timeout = "default"
		}
		for j, p := range e.Patterns {
			e.Patterns[j] = strings.ToLower(p)
		}
	}

	return &Registry{entries: file.Entries}, nil
}

// Resolve returns the first entry whose pattern set matches the MIME type,
// or Unknown if none does. Declaration order is the ambiguity tie-break.
func (r *Registry) Resolve(mime string) Entry {
	mime = strings.ToLower(mime)
	for _, e := range r.entries {
		for _, p := range e.Patterns {
			if strings.Contains(mime, p) {
				return e
			}
		}
	}
	return Unknown
}

// Entries returns the registry in declaration order.
func (r *Registry) Entries() []Entry { return r.entries }
