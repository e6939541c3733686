// Package schemas resolves the schema references of an aggregated catalog
// to concrete files and produces the schema catalog artifact: one entry of
// (subject, domain, path, content hash) per reference, for provenance and
// downstream change detection.
package schemas

import (
	"bytes"
	"encoding/json"

	"github.com/samasrinivas/kafkautomation/errors"
)

// Entry records one resolved schema file.
type Entry struct {
	Subject string `json:"subject"`
	Domain  string `json:"domain"`
	Path    string `json:"file_path"`
	SHA256  string `json:"sha256"`
}

// Catalog is the environment-level schema catalog artifact.
type Catalog struct {
	Environment string  `json:"environment"`
	Schemas     []Entry `json:"schemas"`
}

// Encode renders the schema catalog as its JSON artifact. Entry order is
// fixed by Collect, so identical catalogs encode to identical bytes.
func Encode(cat *Catalog) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cat); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "encoding schema catalog")
	}
	return buf.Bytes(), nil
}

// Decode parses a schemas-catalog.json artifact.
func Decode(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, errors.Wrap(err, errors.CodeMalformedDeclaration, "parsing schema catalog artifact")
	}
	return &cat, nil
}

// Subjects returns subject → owning domain for conflict detection.
func (c *Catalog) Subjects() map[string]string {
	out := make(map[string]string, len(c.Schemas))
	for _, e := range c.Schemas {
		out[e.Subject] = e.Domain
	}
	return out
}
