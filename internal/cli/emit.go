package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/samasrinivas/kafkautomation/catalog"
	"github.com/samasrinivas/kafkautomation/errors"
	"github.com/samasrinivas/kafkautomation/schemas"
	"github.com/samasrinivas/kafkautomation/tfvars"
)

func emitCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "emit <catalog-path> <output-path>",
		Short: "Emit provisioning variables from an aggregated catalog",
		Long: "Emit reads an aggregated catalog artifact, resolves its schema catalog " +
			"from the sibling schemas-catalog.json, and writes the provisioning " +
			"variables file. Connection parameters come from the environment " +
			"(ORGANIZATION_ID, ENVIRONMENT_ID, CLUSTER_ID, KAFKA_ENDPOINT, and the " +
			"SCHEMA_REGISTRY_* set when schemas are present).",
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrapf(err, errors.CodeIO, "reading catalog %q", args[0])
			}
			cat, err := catalog.Decode(data)
			if err != nil {
				return err
			}

			sc, err := readSchemaCatalog(filepath.Join(filepath.Dir(args[0]), "schemas-catalog.json"))
			if err != nil {
				return err
			}

			variables, err := tfvars.Emit(cat, sc, tfvars.ParamsFromEnv(os.LookupEnv))
			if err != nil {
				return err
			}

			if err := os.WriteFile(args[1], variables, 0o644); err != nil {
				return errors.Wrapf(err, errors.CodeIO, "writing variables %q", args[1])
			}
			fmt.Printf("wrote %s\n", args[1])
			return nil
		},
	}
	return c
}

// readSchemaCatalog tolerates a missing file: a catalog without schemas
// has no schema catalog to resolve against.
func readSchemaCatalog(path string) (*schemas.Catalog, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &schemas.Catalog{}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "reading schema catalog %q", path)
	}
	return schemas.Decode(data)
}
