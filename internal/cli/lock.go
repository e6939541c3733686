package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/samasrinivas/kafkautomation/lock"
)

func lockCmd(opts *rootOptions) *cobra.Command {
	c := &cobra.Command{
		Use:   "lock",
		Short: "Inspect or release the per-environment deployment lock",
	}
	c.AddCommand(lockStatusCmd(opts), lockReleaseCmd(opts))
	return c
}

func lockStatusCmd(opts *rootOptions) *cobra.Command {
	var env string

	c := &cobra.Command{
		Use:   "status",
		Short: "Show the lock holder for an environment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			record, err := lock.NewManager(a.store).Holder(cmd.Context(), env)
			if err != nil {
				return err
			}
			if record == nil {
				fmt.Printf("environment %q is unlocked\n", env)
				return nil
			}
			fmt.Printf("environment %q is locked by %s since %s (%s ago)\n",
				env, record.Holder,
				record.AcquiredAt.Format(time.RFC3339),
				time.Since(record.AcquiredAt).Round(time.Second))
			return nil
		},
	}

	envFlag(c, &env)
	return c
}

// lockReleaseCmd force-releases a lock left behind by a failed run. The
// operator is responsible for making sure no deployment is in flight.
func lockReleaseCmd(opts *rootOptions) *cobra.Command {
	var env string

	c := &cobra.Command{
		Use:   "release",
		Short: "Force-release the lock for an environment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			manager := lock.NewManager(a.store)
			record, err := manager.Holder(cmd.Context(), env)
			if err != nil {
				return err
			}
			if record == nil {
				fmt.Printf("environment %q is already unlocked\n", env)
				return nil
			}

			if err := manager.Release(cmd.Context(), env); err != nil {
				return err
			}
			fmt.Printf("released lock on %q (was held by %s)\n", env, record.Holder)
			return nil
		},
	}

	envFlag(c, &env)
	return c
}
