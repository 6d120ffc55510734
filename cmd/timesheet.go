package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"employee-timesheet/internal/timesheet"
)

// cliCaller acts with administrator rights: whoever runs the CLI owns the database.
var cliCaller = timesheet.Caller{Admin: true}

func newTimesheetService() *timesheet.Service {
	return timesheet.NewService(provider, timesheet.Settings{
		DefaultTargetHours: cfg.Timesheet.TargetHours(),
		StrictHours:        cfg.Timesheet.StrictHours,
	})
}

var timesheetCmd = &cobra.Command{
	Use:   "timesheet",
	Short: "Inspect, export and delete timesheets",
}

// windowFlags resolves --start and --end the way the web pages do.
func windowFlags(cmd *cobra.Command) timesheet.Window {
	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	window, err := timesheet.ResolveWindow(timesheet.Today(cfg.Timesheet.Location()), start, end, 0)
	if err != nil {
		fail("Invalid date range: %v", err)
	}
	return window
}

var timesheetShowCmd = &cobra.Command{
	Use:   "show <username>",
	Short: "Show the hours of a user, the current week by default",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		user := lookupUser(ctx, args[0])
		window := windowFlags(cmd)

		view, err := newTimesheetService().WeekView(ctx, cliCaller, user.ID, window, timesheet.Today(cfg.Timesheet.Location()))
		if err != nil {
			fail("Failed to read timesheet: %v", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tDAY\tHOURS\tCOMMENT")
		for _, d := range view.Days {
			comment := ""
			if d.Entry != nil {
				comment = d.Entry.Comment
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Key(), d.DayOfWeek(), d.Hours.StringFixed(2), comment)
		}
		fmt.Fprintf(w, "\t\t%s\tTOTAL\n", view.Total.StringFixed(2))
		w.Flush()
	},
}

var timesheetExportCmd = &cobra.Command{
	Use:   "export <username>",
	Short: "Export the timesheet of a user as CSV or XLSX",
	Long:  `Export every entry of a user, or only --start..--end when both are given.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		user := lookupUser(ctx, args[0])
		format, _ := cmd.Flags().GetString("format")
		out, _ := cmd.Flags().GetString("out")

		var window *timesheet.Window
		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")
		if start != "" && end != "" {
			w := windowFlags(cmd)
			window = &w
		}

		format = strings.ToLower(format)
		if err := checkExportFormat(format); err != nil {
			fail("%v", err)
		}

		rows, err := newTimesheetService().Export(ctx, cliCaller, user.ID, window)
		if err != nil {
			fail("Failed to export timesheet: %v", err)
		}

		if out == "" {
			out = timesheet.ExportFilename(user.Username, window, format)
		}
		if err := writeExport(out, format, rows, cfg.Export.Encoding); err != nil {
			fail("Failed to write export: %v", err)
		}
		if out != "-" {
			fmt.Fprintf(os.Stderr, "Wrote %d entries to %s\n", len(rows), out)
		}
	},
}

func checkExportFormat(format string) error {
	if format != "csv" && format != "xlsx" {
		return fmt.Errorf("unsupported format %q, use csv or xlsx", format)
	}
	return nil
}

func encodeExport(w io.Writer, format string, rows []timesheet.ExportRow, encoding string) error {
	if format == "xlsx" {
		return timesheet.WriteXLSX(w, rows)
	}
	return timesheet.WriteCSV(w, rows, encoding)
}

// writeExport writes rows to the file out, or stdout for "-". The file is
// created only for a supported format and removed again when writing fails.
func writeExport(out, format string, rows []timesheet.ExportRow, encoding string) error {
	if err := checkExportFormat(format); err != nil {
		return err
	}
	if out == "-" {
		return encodeExport(os.Stdout, format, rows, encoding)
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	err = encodeExport(f, format, rows, encoding)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out)
	}
	return err
}

var timesheetDeleteCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete every timesheet entry of a user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		user := lookupUser(ctx, args[0])

		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			fmt.Fprintf(os.Stderr, "Delete all timesheet entries of %s? Type the username to confirm: ", user.Username)
			line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if strings.TrimSpace(line) != user.Username {
				fail("Aborted")
			}
		}

		n, err := newTimesheetService().DeleteTimesheet(ctx, cliCaller, user.ID)
		if err != nil {
			fail("Failed to delete timesheet: %v", err)
		}
		if n == 0 {
			fmt.Printf("No timesheet entries found for %s.\n", user.Username)
			return
		}
		fmt.Printf("Deleted %d timesheet entries for %s.\n", n, user.Username)
	},
}

func init() {
	rootCmd.AddCommand(timesheetCmd)

	for _, c := range []*cobra.Command{timesheetShowCmd, timesheetExportCmd} {
		c.Flags().String("start", "", "first date, YYYY-MM-DD")
		c.Flags().String("end", "", "last date, YYYY-MM-DD")
	}
	timesheetExportCmd.Flags().String("format", "csv", "csv or xlsx")
	timesheetExportCmd.Flags().StringP("out", "o", "", "output file, - for stdout (default <username>_timesheet_<range>.<format>)")
	timesheetDeleteCmd.Flags().Bool("yes", false, "do not ask for confirmation")

	timesheetCmd.AddCommand(timesheetShowCmd, timesheetExportCmd, timesheetDeleteCmd)
}
