// Package catalog defines the resource model for domain Kafka declarations
// and builds the per-environment aggregated catalog. Aggregation is a pure
// transform: the same declarations always produce byte-identical output,
// regardless of the order they were discovered in.
package catalog

// Topic is a Kafka topic declared by a single domain.
type Topic struct {
	Name              string            `yaml:"name" json:"name"`
	Partitions        int               `yaml:"partitions" json:"partitions"`
	ReplicationFactor int               `yaml:"replication_factor" json:"replication_factor"`
	Config            map[string]string `yaml:"config,omitempty" json:"config,omitempty"`
}

// SchemaRef references an Avro schema file relative to the owning domain's
// environment schema directory.
type SchemaRef struct {
	Subject    string `yaml:"subject" json:"subject"`
	SchemaFile string `yaml:"schema_file" json:"schema_file"`
}

// AccessConfig declares one logical service account and the topics it needs
// access to. It expands into one service account plus one ACL binding per
// listed topic.
type AccessConfig struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Role        string   `yaml:"role" json:"role"`
	Topics      []string `yaml:"topics" json:"topics"`
}

// Declaration is one domain's resource request for one environment,
// loaded from its kafka-request.yaml. Immutable once loaded.
type Declaration struct {
	Domain      string `yaml:"-"`
	Environment string `yaml:"-"`

	ServiceName   string         `yaml:"service_name"`
	Description   string         `yaml:"description"`
	Topics        []Topic        `yaml:"topics"`
	Schemas       []SchemaRef    `yaml:"schemas"`
	AccessConfigs []AccessConfig `yaml:"access_config"`
}

// TopicEntry is a topic inside an aggregated catalog, tagged with the
// domain that declared it.
type TopicEntry struct {
	Topic  `yaml:",inline"`
	Domain string `yaml:"domain"`
}

// SchemaEntry is a schema reference inside an aggregated catalog, tagged
// with the domain that declared it.
type SchemaEntry struct {
	SchemaRef `yaml:",inline"`
	Domain    string `yaml:"domain"`
}

// AccessEntry is an access configuration inside an aggregated catalog,
// tagged with the domain that declared it.
type AccessEntry struct {
	AccessConfig `yaml:",inline"`
	Domain       string `yaml:"domain"`
}

// ACLBinding is the fan-out of one AccessConfig topic reference: one
// binding per (account, topic) pair.
type ACLBinding struct {
	Account string `yaml:"account"`
	Topic   string `yaml:"topic"`
	Role    string `yaml:"role"`
	Domain  string `yaml:"domain"`
}

// Catalog is the aggregated, domain-tagged snapshot of every declaration
// for one environment. Colliding names are preserved, not merged; conflict
// detection is a separate read-only pass so that every colliding owner can
// be reported.
type Catalog struct {
	FormatVersion string         `yaml:"format_version"`
	Environment   string         `yaml:"environment"`
	Domains       []string       `yaml:"domains"`
	Topics        []TopicEntry   `yaml:"topics"`
	Schemas       []SchemaEntry  `yaml:"schemas"`
	AccessConfigs []AccessEntry  `yaml:"access_config"`
	ACLBindings   []ACLBinding   `yaml:"acl_bindings"`
}

// TopicNames returns the set of topic names present in the catalog.
func (c *Catalog) TopicNames() map[string]struct{} {
	names := make(map[string]struct{}, len(c.Topics))
	for _, t := range c.Topics {
		names[t.Name] = struct{}{}
	}
	return names
}
