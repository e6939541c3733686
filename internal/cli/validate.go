package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func validateCmd(opts *rootOptions) *cobra.Command {
	var env string

	c := &cobra.Command{
		Use:   "validate",
		Short: "Check the aggregated catalogs against the deployed baseline",
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

			result, err := p.Validate(cmd.Context(), env)
			if err != nil {
				reportProblems(result)
				if result != nil {
					for _, conflict := range result.Conflicts {
						fmt.Println(conflict.String())
					}
				}
				return err
			}

			fmt.Printf("no conflicts across %d domain(s)\n", len(result.Catalog.Domains))
			return nil
		},
	}

	envFlag(c, &env)
	return c
}
