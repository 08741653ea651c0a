// Command arxiv-digest runs the daily digest pipeline: fetch new arXiv
// papers, summarize them in Chinese via an LLM, archive the day's digest and
// regenerate the static site.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/joeypan/arxiv-digest/internal/archive"
	"github.com/joeypan/arxiv-digest/internal/config"
	"github.com/joeypan/arxiv-digest/internal/fetcher"
	"github.com/joeypan/arxiv-digest/internal/notifier"
	"github.com/joeypan/arxiv-digest/internal/runner"
	"github.com/joeypan/arxiv-digest/internal/site"
	"github.com/joeypan/arxiv-digest/internal/summarizer"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		dateStr    string
		dryRun     bool
		daemon     bool
	)

	cmd := &cobra.Command{
		Use:           "arxiv-digest",
		Short:         "Fetch, summarize and publish a daily arXiv paper digest",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			date := time.Now()
			if dateStr != "" {
				date, err = time.Parse(archive.DateFormat, dateStr)
				if err != nil {
					return fmt.Errorf("invalid --date %q (want YYYY-MM-DD): %w", dateStr, err)
				}
			}

			r := buildRunner(cfg, dryRun)

			if daemon {
				return runDaemon(cfg, r)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if err := r.Run(ctx, date); err != nil {
				return fmt.Errorf("pipeline failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	cmd.Flags().StringVar(&dateStr, "date", "", "digest date override (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "fetch and summarize but skip all writes")
	cmd.Flags().BoolVar(&daemon, "daemon", false, "stay resident and run on the configured cron schedule")

	return cmd
}

func buildRunner(cfg *config.Config, dryRun bool) *runner.Runner {
	f := fetcher.NewArxivFetcher(cfg.ArxivURL)
	s := summarizer.NewDeepSeekSummarizer(
		cfg.LLM.BaseURL,
		cfg.LLM.APIKey,
		cfg.LLM.Model,
		cfg.LLM.MaxTokens,
		*cfg.LLM.Temperature,
		cfg.LLM.Timeout(),
	)
	s.Profile = cfg.Preference.Profile
	store := archive.NewStore(cfg.DataDir)
	gen := site.NewGenerator(cfg.OutputDir, cfg.Site.Title, cfg.Site.Description)

	var n notifier.Notifier
	if key := os.Getenv("SERVERCHAN_KEY"); key != "" {
		n = notifier.NewServerChanNotifier(key, cfg.Site.BaseURL)
	} else {
		log.Println("SERVERCHAN_KEY not set, notifications disabled")
	}

	r := runner.New(cfg, f, s, store, gen, n)
	r.RequestPause = 500 * time.Millisecond
	r.DryRun = dryRun
	r.Scorer = s
	return r
}

// runDaemon blocks, running the pipeline on the configured cron schedule
// until SIGINT or SIGTERM.
func runDaemon(cfg *config.Config, r *runner.Runner) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := cron.New()
	_, err := c.AddFunc(cfg.Schedule, func() {
		log.Println("Cron triggered, running digest...")
		if err := r.Run(ctx, time.Now()); err != nil {
			log.Printf("Scheduled run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to set up cron schedule %q: %w", cfg.Schedule, err)
	}
	c.Start()
	log.Printf("Scheduled digest with cron expression: %s", cfg.Schedule)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("Received signal %v, shutting down...", sig)

	cancel()
	<-c.Stop().Done()
	log.Println("Shutdown complete")
	return nil
}
