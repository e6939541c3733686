package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func applyCmd(opts *rootOptions) *cobra.Command {
	var env string
	var holder string

	c := &cobra.Command{
		Use:   "apply",
		Short: "Deploy an environment under the deployment lock",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if holder == "" {
				holder = a.cfg.Holder
			}

			applier := newExecApplier(a.fs, a.cfg.Checkout, a.cfg.Apply.Command, a.log)
			p, err := a.pipeline(applier)
			if err != nil {
				return err
			}

			result, err := p.Apply(cmd.Context(), env, holder)
			if err != nil {
				reportProblems(result)
				if result != nil {
					for _, conflict := range result.Conflicts {
						fmt.Println(conflict.String())
					}
				}
				return err
			}

			fmt.Printf("deployed %q: %d topic(s), %d schema(s), %d acl binding(s)\n",
				env, len(result.Catalog.Topics), len(result.Catalog.Schemas),
				len(result.Catalog.ACLBindings))
			return nil
		},
	}

	envFlag(c, &env)
	c.Flags().StringVar(&holder, "holder", "", "lock holder identity (default: configured holder)")
	return c
}
