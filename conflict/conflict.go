// Package conflict detects cross-domain resource name collisions between a
// freshly aggregated catalog and the last deployed baseline. A collision is
// any (kind, name) pair claimed by more than one domain, whether both
// claims are new in this run or one of them is already deployed.
package conflict

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samasrinivas/kafkautomation/catalog"
	"github.com/samasrinivas/kafkautomation/errors"
)

// Kind classifies the resource namespace a conflict occurred in.
type Kind string

const (
	KindTopic          Kind = "topic"
	KindSchemaSubject  Kind = "schema subject"
	KindServiceAccount Kind = "service account"
)

// Conflict is one resource name claimed by more than one domain.
type Conflict struct {
	Kind    Kind
	Name    string
	Domains []string
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s %q is claimed by multiple domains: %s",
		c.Kind, c.Name, strings.Join(c.Domains, ", "))
}

// Validate compares the fresh catalog against the deployed baseline and
// returns every conflict, never just the first, so one validation pass
// surfaces everything an author has to fix. A nil baseline means nothing
// has been deployed yet. The result is sorted by (kind, name); an empty
// result means the catalog is deployable. Validate is read-only and is run
// twice per deployment: advisory at review time, authoritative at apply
// time after the lock is held.
func Validate(fresh, baseline *catalog.Catalog) []Conflict {
	var conflicts []Conflict
	conflicts = append(conflicts, validateKind(KindTopic, topicOwners(fresh), topicOwners(baseline))...)
	conflicts = append(conflicts, validateKind(KindSchemaSubject, subjectOwners(fresh), subjectOwners(baseline))...)
	conflicts = append(conflicts, validateKind(KindServiceAccount, accountOwners(fresh), accountOwners(baseline))...)

	sort.SliceStable(conflicts, func(i, j int) bool {
		if conflicts[i].Kind != conflicts[j].Kind {
			return conflicts[i].Kind < conflicts[j].Kind
		}
		return conflicts[i].Name < conflicts[j].Name
	})
	return conflicts
}

// AsError converts a non-empty conflict set into a NAMING_CONFLICT error
// listing every collision. Returns nil for an empty set.
func AsError(conflicts []Conflict) error {
	if len(conflicts) == 0 {
		return nil
	}
	msgs := make([]string, len(conflicts))
	for i, c := range conflicts {
		msgs[i] = c.String()
	}
	return errors.Newf(errors.CodeNamingConflict,
		"%d naming conflict(s): %s", len(conflicts), strings.Join(msgs, "; "))
}

// ownership maps resource name → set of claiming domains.
type ownership map[string]map[string]struct{}

func (o ownership) claim(name, domain string) {
	if name == "" {
		return
	}
	if o[name] == nil {
		o[name] = make(map[string]struct{})
	}
	o[name][domain] = struct{}{}
}

func validateKind(kind Kind, fresh, deployed ownership) []Conflict {
	// Baseline owners only matter for names the fresh catalog claims; a
	// name that exists solely in the baseline cannot conflict with anything
	// in this run.
	for name, owners := range fresh {
		for domain := range deployed[name] {
			owners[domain] = struct{}{}
		}
	}

	var conflicts []Conflict
	for name, owners := range fresh {
		if len(owners) < 2 {
			continue
		}
		domains := make([]string, 0, len(owners))
		for domain := range owners {
			domains = append(domains, domain)
		}
		sort.Strings(domains)
		conflicts = append(conflicts, Conflict{Kind: kind, Name: name, Domains: domains})
	}
	return conflicts
}

func topicOwners(cat *catalog.Catalog) ownership {
	owners := make(ownership)
	if cat == nil {
		return owners
	}
	for _, t := range cat.Topics {
		owners.claim(t.Name, t.Domain)
	}
	return owners
}

func subjectOwners(cat *catalog.Catalog) ownership {
	owners := make(ownership)
	if cat == nil {
		return owners
	}
	for _, s := range cat.Schemas {
		owners.claim(s.Subject, s.Domain)
	}
	return owners
}

func accountOwners(cat *catalog.Catalog) ownership {
	owners := make(ownership)
	if cat == nil {
		return owners
	}
	for _, a := range cat.AccessConfigs {
		owners.claim(a.Name, a.Domain)
	}
	return owners
}
