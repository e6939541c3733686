package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samasrinivas/kafkautomation/catalog"
	"github.com/samasrinivas/kafkautomation/errors"
)

func topicCat(env string, claims ...[2]string) *catalog.Catalog {
	cat := &catalog.Catalog{Environment: env}
	for _, c := range claims {
		cat.Topics = append(cat.Topics, catalog.TopicEntry{
			Topic:  catalog.Topic{Name: c[1], Partitions: 3, ReplicationFactor: 3},
			Domain: c[0],
		})
	}
	return cat
}

func TestValidateTwoDomainsSameTopic(t *testing.T) {
	fresh := topicCat("dev",
		[2]string{"orders", "orders-events"},
		[2]string{"fulfillment", "orders-events"},
	)

	conflicts := Validate(fresh, nil)
	require.Len(t, conflicts, 1)
	assert.Equal(t, KindTopic, conflicts[0].Kind)
	assert.Equal(t, "orders-events", conflicts[0].Name)
	assert.Equal(t, []string{"fulfillment", "orders"}, conflicts[0].Domains)
}

func TestValidateAgainstBaseline(t *testing.T) {
	fresh := topicCat("dev", [2]string{"fulfillment", "orders-events"})
	baseline := topicCat("dev", [2]string{"orders", "orders-events"})

	conflicts := Validate(fresh, baseline)
	require.Len(t, conflicts, 1)
	assert.Equal(t, []string{"fulfillment", "orders"}, conflicts[0].Domains)
}

func TestValidateSameDomainRedeployIsClean(t *testing.T) {
	// A domain redeploying its own topic must not conflict with itself.
	fresh := topicCat("dev", [2]string{"orders", "orders-events"})
	baseline := topicCat("dev", [2]string{"orders", "orders-events"})

	assert.Empty(t, Validate(fresh, baseline))
}

func TestValidateBaselineOnlyNamesIgnored(t *testing.T) {
	// A topic that exists only in the baseline cannot conflict.
	fresh := topicCat("dev", [2]string{"orders", "orders-events"})
	baseline := topicCat("dev",
		[2]string{"payments", "payments-events"},
	)

	assert.Empty(t, Validate(fresh, baseline))
}

func TestValidateReportsAllKinds(t *testing.T) {
	fresh := &catalog.Catalog{
		Environment: "dev",
		Topics: []catalog.TopicEntry{
			{Topic: catalog.Topic{Name: "shared-topic"}, Domain: "a"},
			{Topic: catalog.Topic{Name: "shared-topic"}, Domain: "b"},
		},
		Schemas: []catalog.SchemaEntry{
			{SchemaRef: catalog.SchemaRef{Subject: "shared-subject"}, Domain: "a"},
			{SchemaRef: catalog.SchemaRef{Subject: "shared-subject"}, Domain: "c"},
		},
		AccessConfigs: []catalog.AccessEntry{
			{AccessConfig: catalog.AccessConfig{Name: "shared-account", Role: "DeveloperRead"}, Domain: "b"},
			{AccessConfig: catalog.AccessConfig{Name: "shared-account", Role: "DeveloperWrite"}, Domain: "c"},
		},
	}

	conflicts := Validate(fresh, nil)
	require.Len(t, conflicts, 3)

	// Sorted by kind, then name.
	assert.Equal(t, KindSchemaSubject, conflicts[0].Kind)
	assert.Equal(t, KindServiceAccount, conflicts[1].Kind)
	assert.Equal(t, KindTopic, conflicts[2].Kind)
}

func TestAsError(t *testing.T) {
	assert.NoError(t, AsError(nil))

	err := AsError([]Conflict{{Kind: KindTopic, Name: "orders-events", Domains: []string{"a", "b"}}})
	require.Error(t, err)
	assert.Equal(t, errors.CodeNamingConflict, errors.Code(err))
	assert.Contains(t, err.Error(), `topic "orders-events" is claimed by multiple domains: a, b`)
}
