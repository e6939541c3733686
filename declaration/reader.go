package declaration

import (
	"context"
	"fmt"
	"sort"

	"github.com/samasrinivas/kafkautomation/catalog"
	"github.com/samasrinivas/kafkautomation/errors"
	"github.com/samasrinivas/kafkautomation/fs"
)

// Problem records a single domain's read or parse failure. Problems are
// collected per domain so one broken file does not mask its siblings.
type Problem struct {
	Domain string
	Path   string
	Err    error
}

func (p Problem) String() string {
	return fmt.Sprintf("domain %q (%s): %v", p.Domain, p.Path, p.Err)
}

// Reader discovers and loads domain declarations from a repository checkout.
type Reader struct {
	fs fs.Filesystem
}

// NewReader creates a Reader over the given filesystem, which must be
// rooted at the repository checkout containing the domains/ directory.
func NewReader(filesystem fs.Filesystem) *Reader {
	return &Reader{fs: filesystem}
}

// Scan loads every domain's declaration for one environment.
//
// Domains without a declaration for the environment are skipped. Read and
// parse failures become Problems and do not abort the scan; the returned
// error is reserved for failures that invalidate the whole scan (a missing
// domains/ directory or a cancelled context). Declarations come back
// sorted by domain id, which downstream determinism depends on.
func (r *Reader) Scan(ctx context.Context, environment string) ([]catalog.Declaration, []Problem, error) {
	entries, err := r.fs.ReadDir(DomainsDir)
	if err != nil {
		return nil, nil, errors.Wrapf(err, errors.CodeIO,
			"reading %s directory", DomainsDir)
	}

	domains := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			domains = append(domains, entry.Name())
		}
	}
	sort.Strings(domains)

	var (
		decls    []catalog.Declaration
		problems []Problem
	)
	for _, domain := range domains {
		if err := ctx.Err(); err != nil {
			return nil, nil, errors.Wrap(err, errors.CodeInternal, "scan cancelled")
		}

		reqPath := RequestPath(domain, environment)
		exists, err := r.fs.Exists(reqPath)
		if err != nil {
			problems = append(problems, Problem{Domain: domain, Path: reqPath,
				Err: errors.Wrap(err, errors.CodeIO, "checking declaration file")})
			continue
		}
		if !exists {
			continue
		}

		data, err := r.fs.ReadFile(reqPath)
		if err != nil {
			problems = append(problems, Problem{Domain: domain, Path: reqPath,
				Err: errors.Wrap(err, errors.CodeIO, "reading declaration file")})
			continue
		}

		decl, err := Parse(data, domain, environment)
		if err != nil {
			problems = append(problems, Problem{Domain: domain, Path: reqPath, Err: err})
			continue
		}
		decls = append(decls, decl)
	}

	return decls, problems, nil
}
