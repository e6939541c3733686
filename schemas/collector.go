package schemas

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path"
	"sort"
	"strings"

	"github.com/samasrinivas/kafkautomation/catalog"
	"github.com/samasrinivas/kafkautomation/declaration"
	"github.com/samasrinivas/kafkautomation/errors"
	"github.com/samasrinivas/kafkautomation/fs"
)

// Collector resolves schema references against the repository checkout.
type Collector struct {
	fs fs.Filesystem
}

// NewCollector creates a Collector over the given filesystem, rooted at
// the repository checkout containing the domains/ directory.
func NewCollector(filesystem fs.Filesystem) *Collector {
	return &Collector{fs: filesystem}
}

// Collect resolves every schema reference in the catalog to a file under
// the owning domain's environment schema directory.
//
// A reference may not escape that directory: anything whose cleaned path
// leaves domains/<domain>/<env>/schemas fails with PATH_VIOLATION, so a
// domain cannot point at another domain's files or arbitrary repository
// locations. A missing file fails with SCHEMA_NOT_FOUND carrying the
// subject and the expected path. Schema content must be well-formed JSON
// (Avro schemas are JSON documents). Each resolved file's sha256 is
// recorded for change detection. Output is sorted by (domain, subject).
func (c *Collector) Collect(ctx context.Context, cat *catalog.Catalog) (*Catalog, error) {
	out := &Catalog{
		Environment: cat.Environment,
		Schemas:     []Entry{},
	}

	for _, ref := range cat.Schemas {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "schema collection cancelled")
		}

		resolved, err := resolve(ref, cat.Environment)
		if err != nil {
			return nil, err
		}

		exists, err := c.fs.Exists(resolved)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeIO,
				"checking schema file for subject %q", ref.Subject)
		}
		if !exists {
			return nil, errors.Newf(errors.CodeSchemaNotFound,
				"schema file for subject %q not found", ref.Subject).
				WithContext("subject", ref.Subject).
				WithContext("domain", ref.Domain).
				WithContext("expected_path", resolved)
		}

		data, err := c.fs.ReadFile(resolved)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeIO,
				"reading schema file %q", resolved)
		}
		if !json.Valid(data) {
			return nil, errors.Newf(errors.CodeMalformedDeclaration,
				"schema file %q for subject %q is not valid JSON", resolved, ref.Subject).
				WithContext("domain", ref.Domain)
		}

		sum := sha256.Sum256(data)
		out.Schemas = append(out.Schemas, Entry{
			Subject: ref.Subject,
			Domain:  ref.Domain,
			Path:    resolved,
			SHA256:  hex.EncodeToString(sum[:]),
		})
	}

	sort.SliceStable(out.Schemas, func(i, j int) bool {
		if out.Schemas[i].Domain != out.Schemas[j].Domain {
			return out.Schemas[i].Domain < out.Schemas[j].Domain
		}
		return out.Schemas[i].Subject < out.Schemas[j].Subject
	})
	return out, nil
}

// resolve joins the reference onto the owning domain's schema directory
// and rejects any path that escapes it.
func resolve(ref catalog.SchemaEntry, environment string) (string, error) {
	dir := declaration.SchemasDir(ref.Domain, environment)

	if path.IsAbs(ref.SchemaFile) {
		return "", pathViolation(ref, dir)
	}
	joined := path.Join(dir, ref.SchemaFile)
	if joined != dir && !strings.HasPrefix(joined, dir+"/") {
		return "", pathViolation(ref, dir)
	}
	return joined, nil
}

func pathViolation(ref catalog.SchemaEntry, dir string) error {
	return errors.Newf(errors.CodePathViolation,
		"schema file %q for subject %q escapes the domain schema directory %q",
		ref.SchemaFile, ref.Subject, dir).
		WithContext("domain", ref.Domain)
}
