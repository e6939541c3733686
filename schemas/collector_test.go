package schemas

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samasrinivas/kafkautomation/catalog"
	"github.com/samasrinivas/kafkautomation/errors"
	"github.com/samasrinivas/kafkautomation/fs/billy"
)

const ordersValueSchema = `{
  "type": "record",
  "name": "OrderEvent",
  "fields": [{"name": "order_id", "type": "string"}]
}`

func devCatalog(refs ...catalog.SchemaEntry) *catalog.Catalog {
	return &catalog.Catalog{Environment: "dev", Schemas: refs}
}

func TestCollectResolvesAndHashes(t *testing.T) {
	memfs := billy.NewMemory()
	require.NoError(t, memfs.WriteFile(
		"domains/orders/dev/schemas/orders-events-value.avsc", []byte(ordersValueSchema), 0o644))

	cat := devCatalog(catalog.SchemaEntry{
		SchemaRef: catalog.SchemaRef{Subject: "orders-events-value", SchemaFile: "orders-events-value.avsc"},
		Domain:    "orders",
	})

	sc, err := NewCollector(memfs).Collect(context.Background(), cat)
	require.NoError(t, err)

	require.Len(t, sc.Schemas, 1)
	entry := sc.Schemas[0]
	assert.Equal(t, "orders-events-value", entry.Subject)
	assert.Equal(t, "orders", entry.Domain)
	assert.Equal(t, "domains/orders/dev/schemas/orders-events-value.avsc", entry.Path)
	assert.Len(t, entry.SHA256, 64)
}

func TestCollectMissingFile(t *testing.T) {
	cat := devCatalog(catalog.SchemaEntry{
		SchemaRef: catalog.SchemaRef{Subject: "orders-events-value", SchemaFile: "orders-events-value.avsc"},
		Domain:    "orders",
	})

	_, err := NewCollector(billy.NewMemory()).Collect(context.Background(), cat)
	require.Error(t, err)
	assert.Equal(t, errors.CodeSchemaNotFound, errors.Code(err))
	assert.Contains(t, err.Error(), "orders-events-value")
	assert.Contains(t, err.Error(), "domains/orders/dev/schemas/orders-events-value.avsc")
}

func TestCollectRejectsEscapingPaths(t *testing.T) {
	memfs := billy.NewMemory()
	require.NoError(t, memfs.WriteFile(
		"domains/payments/dev/schemas/secret.avsc", []byte("{}"), 0o644))

	tests := []string{
		"../../../payments/dev/schemas/secret.avsc",
		"../../prod/schemas/other.avsc",
		"/etc/passwd",
	}
	for _, file := range tests {
		t.Run(file, func(t *testing.T) {
			cat := devCatalog(catalog.SchemaEntry{
				SchemaRef: catalog.SchemaRef{Subject: "s", SchemaFile: file},
				Domain:    "orders",
			})
			_, err := NewCollector(memfs).Collect(context.Background(), cat)
			require.Error(t, err)
			assert.Equal(t, errors.CodePathViolation, errors.Code(err))
		})
	}
}

func TestCollectAllowsSubdirectories(t *testing.T) {
	memfs := billy.NewMemory()
	require.NoError(t, memfs.WriteFile(
		"domains/orders/dev/schemas/v2/orders-events-value.avsc", []byte("{}"), 0o644))

	cat := devCatalog(catalog.SchemaEntry{
		SchemaRef: catalog.SchemaRef{Subject: "orders-events-value", SchemaFile: "v2/orders-events-value.avsc"},
		Domain:    "orders",
	})

	sc, err := NewCollector(memfs).Collect(context.Background(), cat)
	require.NoError(t, err)
	require.Len(t, sc.Schemas, 1)
	assert.Equal(t, "domains/orders/dev/schemas/v2/orders-events-value.avsc", sc.Schemas[0].Path)
}

func TestCollectRejectsNonJSONContent(t *testing.T) {
	memfs := billy.NewMemory()
	require.NoError(t, memfs.WriteFile(
		"domains/orders/dev/schemas/bad.avsc", []byte("not json at all"), 0o644))

	cat := devCatalog(catalog.SchemaEntry{
		SchemaRef: catalog.SchemaRef{Subject: "bad", SchemaFile: "bad.avsc"},
		Domain:    "orders",
	})

	_, err := NewCollector(memfs).Collect(context.Background(), cat)
	require.Error(t, err)
	assert.Equal(t, errors.CodeMalformedDeclaration, errors.Code(err))
}

func TestCollectOutputOrderIsStable(t *testing.T) {
	memfs := billy.NewMemory()
	require.NoError(t, memfs.WriteFile("domains/b/dev/schemas/s2.avsc", []byte("{}"), 0o644))
	require.NoError(t, memfs.WriteFile("domains/a/dev/schemas/s1.avsc", []byte("{}"), 0o644))

	cat := devCatalog(
		catalog.SchemaEntry{SchemaRef: catalog.SchemaRef{Subject: "s2", SchemaFile: "s2.avsc"}, Domain: "b"},
		catalog.SchemaEntry{SchemaRef: catalog.SchemaRef{Subject: "s1", SchemaFile: "s1.avsc"}, Domain: "a"},
	)

	sc, err := NewCollector(memfs).Collect(context.Background(), cat)
	require.NoError(t, err)

	first, err := Encode(sc)
	require.NoError(t, err)

	// Same references in a different order produce byte-identical output.
	cat.Schemas[0], cat.Schemas[1] = cat.Schemas[1], cat.Schemas[0]
	sc2, err := NewCollector(memfs).Collect(context.Background(), cat)
	require.NoError(t, err)
	second, err := Encode(sc2)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, "a", sc.Schemas[0].Domain)
}
