// Package tfvars turns a validated catalog into the flat variable
// structure the provisioning tool consumes. The transform is pure and
// total: an identical catalog and identical parameters always produce
// byte-identical output, so re-running an apply never generates a spurious
// diff downstream.
package tfvars

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/samasrinivas/kafkautomation/catalog"
	"github.com/samasrinivas/kafkautomation/errors"
	"github.com/samasrinivas/kafkautomation/schemas"
)

// Params are the environment-scoped connection parameters supplied by the
// execution context. They never come from the catalog itself.
type Params struct {
	OrganizationID string
	EnvironmentID  string
	ClusterID      string
	Endpoint       string

	// Schema registry parameters, required only when the catalog
	// declares schemas.
	SchemaRegistryID     string
	SchemaRegistryKey    string
	SchemaRegistrySecret string
}

// ParamsFromEnv builds Params from an environment lookup, typically
// os.LookupEnv.
func ParamsFromEnv(lookup func(string) (string, bool)) Params {
	get := func(name string) string {
		v, _ := lookup(name)
		return v
	}
	return Params{
		OrganizationID:       get("ORGANIZATION_ID"),
		EnvironmentID:        get("ENVIRONMENT_ID"),
		ClusterID:            get("CLUSTER_ID"),
		Endpoint:             get("KAFKA_ENDPOINT"),
		SchemaRegistryID:     get("SCHEMA_REGISTRY_ID"),
		SchemaRegistryKey:    get("SCHEMA_REGISTRY_KEY"),
		SchemaRegistrySecret: get("SCHEMA_REGISTRY_SECRET"),
	}
}

// TopicVars is the provisioning input for one topic.
type TopicVars struct {
	Partitions        int               `json:"partitions"`
	ReplicationFactor int               `json:"replication_factor"`
	Config            map[string]string `json:"config"`
}

// SchemaVars is the provisioning input for one schema subject.
type SchemaVars struct {
	Subject    string `json:"subject"`
	SchemaFile string `json:"schema_file"`
}

// AccountVars is the provisioning input for one service account.
type AccountVars struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Role        string `json:"role"`
}

// ACLVars is the provisioning input for one ACL grant.
type ACLVars struct {
	Principal  string `json:"principal"`
	Role       string `json:"role"`
	CRNPattern string `json:"crn_pattern"`
}

// Variables is the full provisioning input artifact. Map keys are stable
// resource identifiers; encoding/json emits map keys sorted, which the
// determinism guarantee relies on.
type Variables struct {
	Topics          map[string]TopicVars   `json:"topics"`
	Schemas         map[string]SchemaVars  `json:"schemas"`
	ServiceAccounts map[string]AccountVars `json:"service_accounts"`
	ACLs            map[string]ACLVars     `json:"acls"`
}

// Emit produces the provisioning variables for a catalog that has passed
// conflict validation. The schema catalog supplies resolved file paths;
// a subject without one fails with UNRESOLVED_SCHEMA_PATH, and an ACL
// binding against a topic missing from the catalog fails with
// UNRESOLVED_TOPIC_REFERENCE. Both indicate a catalog that skipped
// aggregation or validation, not an author error.
func Emit(cat *catalog.Catalog, sc *schemas.Catalog, p Params) ([]byte, error) {
	if err := p.validate(len(cat.Schemas) > 0); err != nil {
		return nil, err
	}

	vars := Variables{
		Topics:          make(map[string]TopicVars, len(cat.Topics)),
		Schemas:         make(map[string]SchemaVars, len(cat.Schemas)),
		ServiceAccounts: make(map[string]AccountVars, len(cat.AccessConfigs)),
		ACLs:            make(map[string]ACLVars, len(cat.ACLBindings)),
	}

	for _, t := range cat.Topics {
		cfg := t.Config
		if cfg == nil {
			cfg = map[string]string{}
		}
		vars.Topics[t.Name] = TopicVars{
			Partitions:        t.Partitions,
			ReplicationFactor: t.ReplicationFactor,
			Config:            cfg,
		}
	}

	resolved := map[string]string{}
	if sc != nil {
		for _, e := range sc.Schemas {
			resolved[e.Subject] = e.Path
		}
	}
	for _, s := range cat.Schemas {
		path, ok := resolved[s.Subject]
		if !ok {
			return nil, errors.Newf(errors.CodeUnresolvedSchemaPath,
				"schema subject %q has no resolved file path", s.Subject).
				WithContext("domain", s.Domain)
		}
		vars.Schemas[s.Subject] = SchemaVars{Subject: s.Subject, SchemaFile: path}
	}

	for _, a := range cat.AccessConfigs {
		vars.ServiceAccounts[a.Name] = AccountVars{
			Name:        a.Name,
			Description: a.Description,
			Role:        a.Role,
		}
	}

	topics := cat.TopicNames()
	for _, b := range cat.ACLBindings {
		if _, ok := topics[b.Topic]; !ok {
			return nil, errors.Newf(errors.CodeUnresolvedTopicReference,
				"acl binding for account %q references topic %q which is not in the catalog",
				b.Account, b.Topic).
				WithContext("domain", b.Domain)
		}
		vars.ACLs[b.Account+"#"+b.Topic] = ACLVars{
			Principal:  fmt.Sprintf("User:%s-%s", b.Account, cat.Environment),
			Role:       b.Role,
			CRNPattern: crnPattern(p, b.Topic),
		}
	}

	return encode(&vars)
}

func (p Params) validate(needsSchemaRegistry bool) error {
	required := []struct {
		name  string
		value string
	}{
		{"organization id", p.OrganizationID},
		{"environment id", p.EnvironmentID},
		{"cluster id", p.ClusterID},
		{"endpoint", p.Endpoint},
	}
	if needsSchemaRegistry {
		required = append(required,
			struct{ name, value string }{"schema registry id", p.SchemaRegistryID},
			struct{ name, value string }{"schema registry key", p.SchemaRegistryKey},
			struct{ name, value string }{"schema registry secret", p.SchemaRegistrySecret},
		)
	}

	for _, r := range required {
		if r.value == "" {
			return errors.Newf(errors.CodeMissingRequiredParameter,
				"required parameter %q is not set", r.name)
		}
	}
	return nil
}

func crnPattern(p Params, topic string) string {
	return fmt.Sprintf(
		"crn://confluent.cloud/organization=%s/environment=%s/cloud-cluster=%s/topic=%s",
		p.OrganizationID, p.EnvironmentID, p.ClusterID, topic)
}

func encode(vars *Variables) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(vars); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "encoding provisioning variables")
	}
	return buf.Bytes(), nil
}
