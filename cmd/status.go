package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"s3drain/internal/runner"
	"s3drain/internal/s3client"
	"s3drain/pkg/utils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show local resume state versus remote objects",
	Long: `Compare the local target directory against the remote buckets and
report each object as missing, partial or complete. The state is derived
entirely from local file lengths, the same resume markers the download
command uses. Nothing is transferred or deleted.`,
	Example: `  # Check how much of a previous run survives locally
  s3drain status`,
	Run: func(cmd *cobra.Command, args []string) {
		runStatus(cmd)
	},
}

func runStatus(cmd *cobra.Command) {
	client, err := s3client.New(cfg)
	if err != nil {
		utils.PrintError(err, "status")
		return
	}

	timeout, _ := cmd.Flags().GetInt("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	r := runner.New(client, runnerOptions(false), newLogger(cmd))

	result, err := r.Status(ctx)
	if err != nil {
		utils.PrintError(err, "status")
		return
	}

	if err := utils.PrintJSON(result); err != nil {
		utils.PrintError(err, "status")
		return
	}
}

func init() {
	statusCmd.Flags().Int("timeout", 300, "Timeout in seconds for the operation")
}
