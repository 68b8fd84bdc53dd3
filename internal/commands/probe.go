package commands

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/port-experimental/dispatch-cli/internal/output"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// registerProbe registers the probe command.
func registerProbe() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Fire concurrent authenticated requests and report renewals",
		Long: `Fire concurrent authenticated requests against the API and report how
many token renewals they caused. Requests that find the token stale share
one renewal, so a healthy session reports at most one.`,
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}

			rt, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.requireSession(); err != nil {
				return err
			}

			var failures atomic.Int64
			start := time.Now()

			g, ctx := errgroup.WithContext(cmd.Context())
			for i := 0; i < count; i++ {
				g.Go(func() error {
					if _, err := rt.client.GetProfile(ctx); err != nil {
						failures.Add(1)
						output.VerbosePrintf("request %d failed: %v\n", i, err)
					}
					return nil
				})
			}
			_ = g.Wait()

			output.Printf("Requests:  %d\n", count)
			output.Printf("Failed:    %d\n", failures.Load())
			output.Printf("Renewals:  %d\n", rt.renewals.Load())
			output.Printf("Elapsed:   %s\n", time.Since(start).Truncate(time.Millisecond))

			if failures.Load() > 0 {
				return fmt.Errorf("%d of %d probe requests failed", failures.Load(), count)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 10, "Number of concurrent requests")

	return cmd
}

// RegisterProbe registers the probe command.
func RegisterProbe(rootCmd *cobra.Command) {
	rootCmd.AddCommand(registerProbe())
}
