package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samasrinivas/kafkautomation/pipeline"
)

func planCmd(opts *rootOptions) *cobra.Command {
	var env string

	c := &cobra.Command{
		Use:   "plan",
		Short: "Aggregate, validate, and write review artifacts without deploying",
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

			result, err := p.Plan(cmd.Context(), env)
			if err != nil {
				reportProblems(result)
				if result != nil {
					for _, conflict := range result.Conflicts {
						fmt.Println(conflict.String())
					}
				}
				return err
			}

			fmt.Printf("plan for %q: %d domain(s), %d topic(s), %d schema(s), no conflicts\n",
				env, len(result.Catalog.Domains), len(result.Catalog.Topics),
				len(result.Catalog.Schemas))
			fmt.Printf("review artifacts written to %s\n", pipeline.CatalogKey(env))
			return nil
		},
	}

	envFlag(c, &env)
	return c
}
