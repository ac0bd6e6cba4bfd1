package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"s3drain/internal/runner"
	"s3drain/internal/s3client"
	"s3drain/pkg/utils"
)

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "List all buckets with their filter decision",
	Long: `List every bucket visible to the configured credentials, showing the
object count, total size and whether the bucket would be ignored by the
configured ignore patterns (and which rule matched).`,
	Example: `  # List buckets and filter decisions
  s3drain buckets

  # With a non-default config file
  s3drain buckets --config /etc/s3drain/config.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		runBuckets(cmd)
	},
}

func runBuckets(cmd *cobra.Command) {
	client, err := s3client.New(cfg)
	if err != nil {
		utils.PrintError(err, "buckets")
		return
	}

	timeout, _ := cmd.Flags().GetInt("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	r := runner.New(client, runnerOptions(false), newLogger(cmd))

	listings, err := r.Buckets(ctx)
	if err != nil {
		utils.PrintError(err, "buckets")
		return
	}

	if err := utils.PrintJSON(listings); err != nil {
		utils.PrintError(err, "buckets")
		return
	}
}

func init() {
	bucketsCmd.Flags().Int("timeout", 300, "Timeout in seconds for the operation")
}
