package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samasrinivas/kafkautomation/pipeline"
)

func aggregateCmd(opts *rootOptions) *cobra.Command {
	var env string

	c := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate domain declarations into the environment catalogs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			p, err := a.pipeline(nil)
			if err != nil {
				return err
			}

			result, err := p.Aggregate(cmd.Context(), env)
			if err != nil {
				reportProblems(result)
				return err
			}

			fmt.Printf("aggregated %d domain(s): %d topic(s), %d schema(s), %d acl binding(s)\n",
				len(result.Catalog.Domains), len(result.Catalog.Topics),
				len(result.Catalog.Schemas), len(result.Catalog.ACLBindings))
			fmt.Printf("wrote %s and %s\n",
				pipeline.CatalogKey(env), pipeline.SchemaCatalogKey(env))
			return nil
		},
	}

	envFlag(c, &env)
	return c
}

func reportProblems(result *pipeline.Result) {
	if result == nil {
		return
	}
	for _, pr := range result.Problems {
		fmt.Println(pr.String())
	}
}
