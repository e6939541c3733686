// Package declaration discovers and parses per-domain Kafka resource
// declarations. Every domain owns one kafka-request.yaml per environment
// under domains/<domain>/<environment>/; the reader loads all of them for
// one environment in deterministic (lexical domain) order.
package declaration

import (
	"bytes"
	"io"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samasrinivas/kafkautomation/catalog"
	"github.com/samasrinivas/kafkautomation/errors"
)

const (
	// DomainsDir is the repository directory holding one subdirectory per domain.
	DomainsDir = "domains"

	// RequestFileName is the per-environment declaration file name.
	RequestFileName = "kafka-request.yaml"

	// SchemasDirName is the per-environment schema directory name.
	SchemasDirName = "schemas"

	defaultPartitions        = 3
	defaultReplicationFactor = 3
)

// RequestPath returns the declaration file path for a domain/environment pair.
func RequestPath(domain, environment string) string {
	return path.Join(DomainsDir, domain, environment, RequestFileName)
}

// SchemasDir returns the schema directory path for a domain/environment pair.
func SchemasDir(domain, environment string) string {
	return path.Join(DomainsDir, domain, environment, SchemasDirName)
}

// Parse decodes one declaration file. Unknown fields are rejected so a
// typoed key fails loudly instead of silently dropping a resource.
// Omitted partition and replication counts default to 3; an omitted schema
// subject defaults to the schema file's basename without extension.
func Parse(data []byte, domain, environment string) (catalog.Declaration, error) {
	var decl catalog.Declaration

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&decl); err != nil && err != io.EOF {
		return catalog.Declaration{}, errors.Wrapf(err, errors.CodeMalformedDeclaration,
			"domain %q environment %q: declaration does not match the expected shape",
			domain, environment)
	}

	decl.Domain = domain
	decl.Environment = environment

	if err := applyDefaultsAndValidate(&decl); err != nil {
		return catalog.Declaration{}, err
	}
	return decl, nil
}

func applyDefaultsAndValidate(decl *catalog.Declaration) error {
	for i := range decl.Topics {
		t := &decl.Topics[i]
		if t.Name == "" {
			return errors.Newf(errors.CodeMalformedDeclaration,
				"domain %q: topic %d has no name", decl.Domain, i)
		}
		if t.Partitions == 0 {
			t.Partitions = defaultPartitions
		}
		if t.ReplicationFactor == 0 {
			t.ReplicationFactor = defaultReplicationFactor
		}
		if t.Partitions < 0 || t.ReplicationFactor < 0 {
			return errors.Newf(errors.CodeMalformedDeclaration,
				"domain %q: topic %q has a non-positive partition or replication count",
				decl.Domain, t.Name)
		}
	}

	for i := range decl.Schemas {
		s := &decl.Schemas[i]
		if s.SchemaFile == "" {
			return errors.Newf(errors.CodeMalformedDeclaration,
				"domain %q: schema %d has no schema_file", decl.Domain, i)
		}
		if s.Subject == "" {
			base := path.Base(s.SchemaFile)
			s.Subject = strings.TrimSuffix(base, path.Ext(base))
		}
	}

	for i, a := range decl.AccessConfigs {
		if a.Name == "" {
			return errors.Newf(errors.CodeMalformedDeclaration,
				"domain %q: access entry %d has no name", decl.Domain, i)
		}
		if a.Role == "" {
			return errors.Newf(errors.CodeMalformedDeclaration,
				"domain %q: access entry %q has no role", decl.Domain, a.Name)
		}
	}
	return nil
}
