package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"s3drain/internal/runner"
	"s3drain/internal/s3client"
	"s3drain/pkg/utils"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download all objects from all non-ignored buckets",
	Long: `Download every object from every bucket into the configured target
directory, mirroring the bucket/key hierarchy.

Transfers are resumable: a partial local file is continued from its
current length instead of being re-fetched, and interrupted transfers
are retried with exponential backoff. When delete_after_download is
enabled, each object is removed remotely only after its local copy is
verified complete.`,
	Example: `  # Drain all buckets per config.yaml
  s3drain download --confirm

  # See what would be transferred without writing anything
  s3drain download --dry-run --confirm

  # Bound the whole run to one hour
  s3drain download --confirm --timeout 3600`,
	Run: func(cmd *cobra.Command, args []string) {
		runDownloadAll(cmd)
	},
}

func runDownloadAll(cmd *cobra.Command) {
	confirm, _ := cmd.Flags().GetBool("confirm")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if !confirm {
		fmt.Printf("Download operation summary:\n")
		fmt.Printf("Target path: %s\n", cfg.Drain.TargetPath)
		fmt.Printf("Delete after download: %t\n", cfg.Drain.DeleteAfterDownload)
		fmt.Printf("Workers: %d\n", cfg.Drain.Workers)
		if dryRun {
			fmt.Printf("Dry run: no files will be written or deleted\n")
		}

		fmt.Print("Continue with download? (y/N): ")
		var response string
		_, err := fmt.Scanln(&response)
		if err != nil {
			utils.PrintError(err, "download")
			return
		}
		if !slices.Contains([]string{"y", "yes"}, strings.ToLower(response)) {
			fmt.Println("Download cancelled.")
			return
		}
	}

	client, err := s3client.New(cfg)
	if err != nil {
		utils.PrintError(err, "download")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	timeout, _ := cmd.Flags().GetInt("timeout")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}

	r := runner.New(client, runnerOptions(dryRun), newLogger(cmd))

	result, err := r.Run(ctx)
	if err != nil {
		utils.PrintError(err, "download")
		return
	}

	if err := utils.PrintJSON(result); err != nil {
		utils.PrintError(err, "download")
		return
	}

	if isVerbose(cmd) {
		cmd.Printf("Processed %d bucket(s), downloaded %s\n",
			result.BucketsProcessed, result.TotalBytesHuman)
	}
}

func runnerOptions(dryRun bool) runner.Options {
	return runner.Options{
		Rules:               cfg.Drain.IgnorePattern,
		TargetPath:          cfg.Drain.TargetPath,
		DeleteAfterDownload: cfg.Drain.DeleteAfterDownload,
		DryRun:              dryRun,
		Workers:             cfg.Drain.Workers,
		MaxAttempts:         cfg.Drain.Retry.MaxAttempts,
		InitialBackoff:      cfg.Drain.Retry.InitialBackoff,
	}
}

func init() {
	downloadCmd.Flags().Bool("confirm", false, "Skip confirmation prompt")
	downloadCmd.Flags().Bool("dry-run", false, "List what would be transferred without writing or deleting")
	downloadCmd.Flags().Int("timeout", 0, "Timeout in seconds for the whole run (0 = no timeout)")
}
