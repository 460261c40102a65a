package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tanq16/trickle/internal/config"
	"github.com/tanq16/trickle/internal/downloaders"
	tricklehttp "github.com/tanq16/trickle/internal/downloaders/http"
	"github.com/tanq16/trickle/internal/downloaders/s3"
	"github.com/tanq16/trickle/internal/output"
	"github.com/tanq16/trickle/internal/scheduler"
	"github.com/tanq16/trickle/internal/utils"
)

var configPath string

var TrickleVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "trickle",
	Short:   "Trickle downloads a list of URLs in parallel within a bandwidth budget",
	Version: TrickleVersion,
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			output.PrintError(err.Error())
			os.Exit(1)
		}
		utils.InitLogger(cfg.Debug)

		tasks, err := utils.ReadDownloadList(cfg.SourceFile)
		if err != nil {
			output.PrintError(fmt.Sprintf("Failed to read URL list: %v", err))
			os.Exit(1)
		}
		router := newRouter(cfg)
		tasks = supportedTasks(router, tasks)
		if len(tasks) == 0 {
			output.PrintError("No downloadable URLs in " + cfg.SourceFile)
			os.Exit(1)
		}

		mgr := scheduler.NewManager(router, scheduler.Options{
			MaxRetries: cfg.Retries,
			RetryDelay: cfg.RetryDelay,
			OnFileDone: output.PrintFileStats,
			OnComplete: output.PrintCompletion,
		})
		output.PrintStartBanner(mgr.RunID(), len(tasks), cfg.Threads, cfg.BandwidthBPS)
		if err := mgr.Start(tasks, cfg.OutputDir, cfg.Threads, cfg.BandwidthBPS); err != nil {
			output.PrintError(fmt.Sprintf("Failed to start download: %v", err))
			os.Exit(1)
		}
		<-mgr.Done()
	},
}

func newRouter(cfg *config.Config) *downloaders.Router {
	router := downloaders.NewRouter()
	router.Register(tricklehttp.NewFetcher(utils.HTTPClientConfig{
		ConnectTimeout:  cfg.ConnectTimeout,
		ResponseTimeout: cfg.ResponseTimeout,
		UserAgent:       cfg.UserAgent,
	}), "http", "https")
	router.Register(s3.NewFetcher(cfg.S3Profile, cfg.S3Endpoint, cfg.ConnectTimeout), "s3")
	return router
}

func supportedTasks(router *downloaders.Router, tasks []utils.DownloadTask) []utils.DownloadTask {
	kept := tasks[:0]
	for _, task := range tasks {
		if !router.Supports(task.URI.Scheme) {
			output.PrintWarning(fmt.Sprintf("Skipping %s, scheme %q is not one of %v", task, task.URI.Scheme, router.Schemes()))
			continue
		}
		kept = append(kept, task)
	}
	return kept
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.Flags().StringP("source", "f", "", "File with one URL per line (or a YAML list)")
	rootCmd.Flags().StringP("bandwidth", "b", "", "Overall bandwidth limit, bytes/s or sizes like 512KiB (default unlimited)")
	rootCmd.Flags().IntP("threads", "t", 1, "Number of parallel downloads")
	rootCmd.Flags().StringP("output", "o", utils.DefaultOutputDir, "Destination directory")
	rootCmd.Flags().StringP("user-agent", "a", utils.ToolUserAgent, "User agent")

	// flags without shorthand
	rootCmd.Flags().Duration("connect-timeout", utils.DefaultConnectTimeout, "Connection timeout (eg. 5s, 1m)")
	rootCmd.Flags().Duration("response-timeout", 0, "Max wait for response headers, 0 waits indefinitely")
	rootCmd.Flags().Int("retries", utils.DefaultMaxRetries, "Attempts per file before it is abandoned")
	rootCmd.Flags().Duration("retry-delay", utils.DefaultRetryDelay, "Pause between attempts")
	rootCmd.Flags().String("s3-profile", "", "AWS profile for s3:// URLs")
	rootCmd.Flags().String("s3-endpoint", "", "Endpoint of an S3-compatible store (path-style)")
	rootCmd.Flags().Bool("debug", false, "Enable debug logging")

	rootCmd.AddCommand(newCleanCmd())
}
