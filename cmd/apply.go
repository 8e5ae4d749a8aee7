// -- cmd/apply.go --
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/hireloop/easyapply/api/schemas"
	"github.com/hireloop/easyapply/internal/answerer"
	"github.com/hireloop/easyapply/internal/browser/session"
	"github.com/hireloop/easyapply/internal/easyapply"
	"github.com/hireloop/easyapply/internal/easyapply/answers"
	"github.com/hireloop/easyapply/internal/langdetect"
	"github.com/hireloop/easyapply/internal/observability"
	"github.com/hireloop/easyapply/internal/resume"
	"github.com/hireloop/easyapply/internal/snapshot"
	"github.com/hireloop/easyapply/internal/status"
)

var (
	jobsFile    string
	answersFile string
	profileFile string
	applyDryRun bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply to every job in a jobs file.",
	Long: `Apply reads a YAML list of job postings and runs the quick-apply flow for
each: navigate, tailor the resume in the background, fill the multi-page
form and submit. Answers generated along the way are persisted to the
answers file for reuse.`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVarP(&jobsFile, "jobs", "j", "", "YAML file with the jobs to apply to (required)")
	applyCmd.Flags().StringVarP(&answersFile, "answers", "a", "answers.yaml", "YAML file for saved answers")
	applyCmd.Flags().StringVarP(&profileFile, "profile", "p", "", "free-text candidate profile handed to the answer generator")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "walk the forms but close instead of submitting")
	applyCmd.Flags().Int("max-pages", 10, "override the configured form page cap")
	applyCmd.Flags().Int("max-retries", 2, "override the configured per-page validation retries")
	applyCmd.MarkFlagRequired("jobs")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()
	cfg := *loadedCfg
	if applyDryRun {
		cfg.Apply.DryRun = true
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs, err := loadJobs(jobsFile)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("jobs file %s contains no jobs", jobsFile)
	}

	store, err := answers.OpenStore(answersFile)
	if err != nil {
		return err
	}
	cache := answers.NewCache(store.Saved(), store.Record)
	logger.Info("Answer store loaded.", zap.String("file", answersFile), zap.Int("saved", cache.Len()))

	var profile string
	if profileFile != "" {
		raw, err := os.ReadFile(profileFile)
		if err != nil {
			return fmt.Errorf("reading profile: %w", err)
		}
		profile = string(raw)
	}

	gemini, err := answerer.NewGemini(ctx, cfg.LLM, profile, logger)
	if err != nil {
		return err
	}

	sink := status.NewSink(logger)
	if cfg.Metrics.Enabled {
		go func() {
			if err := sink.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.Warn("Metrics listener failed.", zap.Error(err))
			}
		}()
	}

	opts := easyapply.Options{
		Sink:     sink,
		Detector: langdetect.New(),
	}
	if cfg.Debug.Enabled {
		opts.Snapshots = snapshot.NewWriter(cfg.Debug, logger)
	}
	if cfg.Resume.BaseConfigPath != "" && !cfg.Apply.UseConstantResume {
		opts.Tailor = resume.NewPipeline(cfg.Resume, gemini, resume.NewChromeRenderer(logger), logger)
	}

	manager := session.NewManager(ctx, cfg.Browser, logger)
	defer manager.Shutdown()
	sess, err := manager.NewSession()
	if err != nil {
		return fmt.Errorf("opening browser session: %w", err)
	}
	defer sess.Close()

	applier := easyapply.NewApplier(sess, gemini, cache, cfg, logger, opts)

	// Pace the batch so the run looks like a person working through a list,
	// not a crawler.
	var limiter *rate.Limiter
	if cfg.Apply.JobsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Apply.JobsPerMinute/60.0), 1)
	}

	applied, failed, skipped := 0, 0, 0
	for i := range jobs {
		job := &jobs[i]
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				logger.Info("Run interrupted.", zap.Error(err))
				break
			}
		} else if ctx.Err() != nil {
			break
		}

		result := applier.Apply(ctx, job)
		switch {
		case result.AlreadyApplied, result.LanguageSkipped:
			skipped++
		case result.Success:
			applied++
		default:
			failed++
			if !cfg.Apply.SkipOnError {
				logger.Error("Stopping after failure.", zap.String("job_id", job.ID), zap.String("error", result.Error))
				return fmt.Errorf("job %s failed: %s", job.ID, result.Error)
			}
		}
	}

	logger.Info("Batch finished.",
		zap.Int("applied", applied),
		zap.Int("failed", failed),
		zap.Int("skipped", skipped),
		zap.Int("total", len(jobs)))
	return nil
}

func loadJobs(path string) ([]schemas.Job, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading jobs file: %w", err)
	}
	var jobs []schemas.Job
	if err := yaml.Unmarshal(raw, &jobs); err != nil {
		return nil, fmt.Errorf("parsing jobs file %s: %w", path, err)
	}
	for i, job := range jobs {
		if job.Link == "" {
			return nil, fmt.Errorf("jobs file %s: job %d has no link", path, i)
		}
	}
	return jobs, nil
}
