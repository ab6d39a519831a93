package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang-covid-sentiment/internal/entity"
	"golang-covid-sentiment/internal/pipeline/app"
	"golang-covid-sentiment/internal/pipeline/config"
	"golang-covid-sentiment/internal/pipeline/delivery/cli"
	"golang-covid-sentiment/internal/pipeline/delivery/consumer"
	"golang-covid-sentiment/internal/pipeline/dto"
	"golang-covid-sentiment/internal/pipeline/service"
	"golang-covid-sentiment/pkg/common"
	"golang-covid-sentiment/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	linksPath  string
	topics     bool
)

func bootstrap(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if linksPath != "" {
		cfg.Pipeline.LinksPath = linksPath
	}

	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return app.New(ctx, cfg, appLogger)
}

func runSteps(steps ...entity.RunStep) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		defer func() { _ = a.Logger.Sync() }()

		run, err := a.Runs.Run(ctx, dto.RunRequest{Trigger: common.RunTriggerManual, Steps: steps})
		if run != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Run %s %s\n", run.RunID, run.Status)
		}
		return err
	}
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl the links file and feed searches into the dataset table",
	RunE:  runSteps(entity.RunStepCrawl),
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score the dataset table and write the analyzed table",
	RunE:  runSteps(entity.RunStepAnalyze),
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Crawl then analyze",
	RunE:  runSteps(entity.DefaultRunSteps...),
}

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Browse analyzed articles and draw polarity charts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		articles, err := a.Explore.LoadArticles(ctx, a.Config.Pipeline.AnalyzedPath)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !topics {
			return cli.NewMenu(a.Explore, articles, a.Config.Pipeline.ChartDir, cmd.InOrStdin(), out, a.Logger).Run(ctx)
		}
		for _, topic := range common.DefaultTopics {
			path, matches, err := a.Explore.WriteChart(a.Config.Pipeline.ChartDir, articles, topic)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %d articles -> %s\n", service.ChartTitle(topic), len(matches), path)
		}
		return nil
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume queued runs and enqueue scheduled runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		appLogger := a.Logger

		if a.Processor == nil && !a.Config.Schedule.Enabled {
			return fmt.Errorf("nothing to do: enable redis or schedule")
		}

		var redisConsumer *consumer.RedisConsumer
		if a.Processor != nil {
			redisConsumer = consumer.NewRedisConsumer(a.Processor, appLogger)
			if err := redisConsumer.Start(ctx); err != nil {
				return err
			}
		}

		if a.Config.Schedule.Enabled {
			scheduler, err := service.NewSchedulerService(a.Queue, a.Runs, a.Config.Schedule.Cron, appLogger)
			if err != nil {
				return err
			}
			go func() {
				_ = scheduler.Start(ctx)
			}()
		}

		appLogger.Info("Pipeline worker started. Waiting for runs...")
		<-ctx.Done()

		appLogger.Info("Shutting down pipeline worker...")
		if redisConsumer != nil {
			redisConsumer.Stop()
		}
		appLogger.Info("Pipeline worker stopped.")
		return nil
	},
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "pipeline",
		Short:         "COVID-19 policy news sentiment pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config-pipeline.yaml", "Path to the configuration file")
	crawlCmd.Flags().StringVar(&linksPath, "links", "", "Newline-delimited links file, overrides pipeline.links_path")
	runCmd.Flags().StringVar(&linksPath, "links", "", "Newline-delimited links file, overrides pipeline.links_path")
	exploreCmd.Flags().BoolVar(&topics, "topics", false, "Write one chart per preset policy topic instead of opening the menu")

	rootCmd.AddCommand(crawlCmd, analyzeCmd, runCmd, exploreCmd, workerCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Error executing pipeline CLI: %s", err)
		os.Exit(1)
	}
}
