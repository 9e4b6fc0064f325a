package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neerajsharma26/resumerank/pkg/api/client"
)

// exitCode maps an error from the API client to the CLI exit codes
// spec.md §6 defines for this control surface.
func exitCode(err error) int {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ExitCode()
	}
	return 5
}

func runAndExit(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitCode(err))
	return nil
}

var createBatchCmd = &cobra.Command{
	Use:   "create-batch [files...]",
	Short: "Create a batch of resume documents to analyze against a job description",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, _ := cmd.Flags().GetString("owner-id")
		jobDescriptionFile, _ := cmd.Flags().GetString("job-description-file")
		idempotencyKey, _ := cmd.Flags().GetString("idempotency-key")

		jobDescription, err := os.ReadFile(jobDescriptionFile)
		if err != nil {
			return fmt.Errorf("read job description: %w", err)
		}

		var files []client.File
		for _, path := range args {
			contents, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			files = append(files, client.File{Filename: path, Bytes: contents})
		}

		c := apiClient(cmd)
		batch, err := c.CreateBatch(context.Background(), ownerID, string(jobDescription), idempotencyKey, files)
		if err != nil {
			return runAndExit(cmd, err)
		}
		fmt.Printf("batch created: %s (total=%d skipped_duplicates=%d)\n", batch.BatchID, batch.Total, batch.SkippedDuplicates)
		return nil
	},
}

var controlBatchCmd = &cobra.Command{
	Use:   "control-batch BATCH_ID {pause|resume|cancel}",
	Short: "Pause, resume, or cancel a batch",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, _ := cmd.Flags().GetString("owner-id")
		c := apiClient(cmd)
		batch, err := c.ControlBatch(context.Background(), ownerID, args[0], args[1])
		if err != nil {
			return runAndExit(cmd, err)
		}
		fmt.Printf("batch %s status: %s\n", batch.BatchID, batch.Status)
		return nil
	},
}

var getBatchCmd = &cobra.Command{
	Use:   "get-batch BATCH_ID",
	Short: "Print a batch's current snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, _ := cmd.Flags().GetString("owner-id")
		c := apiClient(cmd)
		batch, err := c.GetBatch(context.Background(), ownerID, args[0])
		if err != nil {
			return runAndExit(cmd, err)
		}
		fmt.Printf("%-20s %s\n", "batch_id:", batch.BatchID)
		fmt.Printf("%-20s %s\n", "status:", batch.Status)
		fmt.Printf("%-20s %d\n", "total:", batch.Total)
		fmt.Printf("%-20s %d\n", "completed:", batch.Completed)
		fmt.Printf("%-20s %d\n", "failed:", batch.Failed)
		fmt.Printf("%-20s %d\n", "cancelled_count:", batch.CancelledCount)
		fmt.Printf("%-20s %d\n", "skipped_duplicates:", batch.SkippedDuplicates)
		return nil
	},
}

var listItemsCmd = &cobra.Command{
	Use:   "list-items BATCH_ID",
	Short: "List the items in a batch, optionally filtered by status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, _ := cmd.Flags().GetString("owner-id")
		status, _ := cmd.Flags().GetString("status")
		c := apiClient(cmd)
		items, err := c.ListItems(context.Background(), ownerID, args[0], status)
		if err != nil {
			return runAndExit(cmd, err)
		}
		if len(items) == 0 {
			fmt.Println("no items")
			return nil
		}
		fmt.Printf("%-36s %-30s %-10s %-10s %s\n", "ITEM_ID", "FILENAME", "STATUS", "RETRIES", "ERROR")
		for _, it := range items {
			fmt.Printf("%-36s %-30s %-10s %d/%-8d %s\n", it.ItemID, it.Filename, it.Status, it.RetryCount, it.MaxRetries, it.ErrorCode)
		}
		return nil
	},
}

var teardownBatchCmd = &cobra.Command{
	Use:   "teardown-batch BATCH_ID",
	Short: "Permanently delete a batch's items, record, and uploaded documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, _ := cmd.Flags().GetString("owner-id")
		c := apiClient(cmd)
		if err := c.TeardownBatch(context.Background(), ownerID, args[0]); err != nil {
			return runAndExit(cmd, err)
		}
		fmt.Printf("batch %s torn down\n", args[0])
		return nil
	},
}

func init() {
	createBatchCmd.Flags().String("job-description-file", "", "Path to a text file containing the job description")
	createBatchCmd.MarkFlagRequired("job-description-file")
	createBatchCmd.Flags().String("idempotency-key", "", "Optional idempotency key to dedupe repeated create calls")

	listItemsCmd.Flags().String("status", "", "Filter items by status (pending, running, complete, failed, cancelled)")
}
