package catalog

import (
	"sort"

	"github.com/samasrinivas/kafkautomation/errors"
)

// Aggregate merges the declarations of every domain targeting one
// environment into a single catalog.
//
// The result is independent of input order: declarations are sorted by
// domain id and every entry list is stably sorted by (domain, name).
// Colliding resource names are kept side by side with their domain tags so
// the conflict validator can name every owner.
//
// Each AccessConfig fans out into one ACLBinding per referenced topic.
// A reference to a topic absent from the environment's aggregated topic set
// fails with UNKNOWN_TOPIC_REFERENCE naming the entry and the topic.
func Aggregate(environment string, decls []Declaration) (*Catalog, error) {
	ordered := make([]Declaration, len(decls))
	copy(ordered, decls)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Domain < ordered[j].Domain
	})

	cat := &Catalog{
		FormatVersion: FormatVersion,
		Environment:   environment,
		Domains:       []string{},
		Topics:        []TopicEntry{},
		Schemas:       []SchemaEntry{},
		AccessConfigs: []AccessEntry{},
		ACLBindings:   []ACLBinding{},
	}

	seenDomains := make(map[string]struct{})
	for _, d := range ordered {
		if _, ok := seenDomains[d.Domain]; !ok {
			seenDomains[d.Domain] = struct{}{}
			cat.Domains = append(cat.Domains, d.Domain)
		}
		for _, t := range d.Topics {
			cat.Topics = append(cat.Topics, TopicEntry{Topic: t, Domain: d.Domain})
		}
		for _, s := range d.Schemas {
			cat.Schemas = append(cat.Schemas, SchemaEntry{SchemaRef: s, Domain: d.Domain})
		}
		for _, a := range d.AccessConfigs {
			cat.AccessConfigs = append(cat.AccessConfigs, AccessEntry{AccessConfig: a, Domain: d.Domain})
		}
	}

	sort.SliceStable(cat.Topics, func(i, j int) bool {
		if cat.Topics[i].Domain != cat.Topics[j].Domain {
			return cat.Topics[i].Domain < cat.Topics[j].Domain
		}
		return cat.Topics[i].Name < cat.Topics[j].Name
	})
	sort.SliceStable(cat.Schemas, func(i, j int) bool {
		if cat.Schemas[i].Domain != cat.Schemas[j].Domain {
			return cat.Schemas[i].Domain < cat.Schemas[j].Domain
		}
		return cat.Schemas[i].Subject < cat.Schemas[j].Subject
	})
	sort.SliceStable(cat.AccessConfigs, func(i, j int) bool {
		if cat.AccessConfigs[i].Domain != cat.AccessConfigs[j].Domain {
			return cat.AccessConfigs[i].Domain < cat.AccessConfigs[j].Domain
		}
		return cat.AccessConfigs[i].Name < cat.AccessConfigs[j].Name
	})

	if err := expandBindings(cat); err != nil {
		return nil, err
	}
	return cat, nil
}

// expandBindings fans every access entry out into one ACL binding per
// referenced topic, validating each reference against the aggregated
// topic set.
func expandBindings(cat *Catalog) error {
	topics := cat.TopicNames()

	for _, a := range cat.AccessConfigs {
		refs := make([]string, len(a.Topics))
		copy(refs, a.Topics)
		sort.Strings(refs)

		for _, topic := range refs {
			if _, ok := topics[topic]; !ok {
				return errors.Newf(errors.CodeUnknownTopicReference,
					"access entry %q references topic %q which is not declared in environment %q",
					a.Name, topic, cat.Environment).
					WithContext("access_entry", a.Name).
					WithContext("topic", topic).
					WithContext("domain", a.Domain)
			}
			cat.ACLBindings = append(cat.ACLBindings, ACLBinding{
				Account: a.Name,
				Topic:   topic,
				Role:    a.Role,
				Domain:  a.Domain,
			})
		}
	}

	sort.SliceStable(cat.ACLBindings, func(i, j int) bool {
		bi, bj := cat.ACLBindings[i], cat.ACLBindings[j]
		if bi.Domain != bj.Domain {
			return bi.Domain < bj.Domain
		}
		if bi.Account != bj.Account {
			return bi.Account < bj.Account
		}
		return bi.Topic < bj.Topic
	})
	return nil
}
