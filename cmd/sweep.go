// -- cmd/sweep.go --
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hireloop/easyapply/internal/observability"
	"github.com/hireloop/easyapply/internal/resume"
	"github.com/hireloop/easyapply/internal/snapshot"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Clean up aged debug snapshots and surplus tailored resumes.",
	Long: `Sweep applies the retention policies offline: debug snapshots older than
debug.max_age are deleted, and tailored resume artifacts beyond
resume.keep_recent are pruned. Both sweeps run in parallel.`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()
	cfg := *loadedCfg

	g, _ := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		removed := snapshot.NewWriter(cfg.Debug, logger).SweepOld()
		logger.Info("Snapshot sweep done.", zap.Int("removed", removed))
		return nil
	})
	g.Go(func() error {
		pruned := resume.NewPipeline(cfg.Resume, nil, nil, logger).Prune()
		logger.Info("Resume artifact sweep done.", zap.Int("pruned_triples", pruned))
		return nil
	})

	return g.Wait()
}
