package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"employee-timesheet/internal/storage"
)

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Review access requests",
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List access requests, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		pendingOnly, _ := cmd.Flags().GetBool("pending")

		requests, err := provider.ListAccessRequests(ctx, pendingOnly)
		if err != nil {
			fail("Failed to list access requests: %v", err)
		}
		if len(requests) == 0 {
			fmt.Println("No access requests found.")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tRECEIVED\tNAME\tEMAIL\tREVIEWED\tMESSAGE")
		for _, r := range requests {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				r.ID,
				r.CreatedAt.Format("2006-01-02 15:04:05"),
				r.Name,
				r.Email,
				yesNo(r.IsReviewed),
				r.Message,
			)
		}
		w.Flush()
	},
}

var requestsReviewCmd = &cobra.Command{
	Use:   "review <id>",
	Short: "Mark an access request as reviewed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			fail("Invalid ID: %v", err)
		}

		if err := provider.MarkAccessRequestReviewed(ctx, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				fail("Access request %d not found", id)
			}
			fail("Failed to update access request: %v", err)
		}
		fmt.Printf("Access request %d marked as reviewed.\n", id)
	},
}

func init() {
	rootCmd.AddCommand(requestsCmd)
	requestsListCmd.Flags().Bool("pending", false, "only show requests not yet reviewed")
	requestsCmd.AddCommand(requestsListCmd, requestsReviewCmd)
}
