package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"fixmate_backend/internal/bootstrap"
	"fixmate_backend/internal/exports"

	"github.com/spf13/cobra"
)

var exportFlags struct {
	from string
	to   string
	out  string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write reports to files",
}

var exportJobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Write a jobs report to an .xlsx or .csv file",
	Args:  cobra.NoArgs,
	RunE: withSession(func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
		from, to, err := exports.ParsePeriod(exportFlags.from, exportFlags.to)
		if err != nil {
			return err
		}

		svc, err := bootstrap.Build(ctx, s.cfg, s.pool, s.log)
		if err != nil {
			return err
		}
		defer svc.Close()

		jobs, err := svc.Jobs.Service().Export(ctx, from, to)
		if err != nil {
			return err
		}
		report := exports.Report{From: from, To: to, Jobs: jobs}

		out := exportFlags.out
		if out == "" {
			out = "jobs_" + report.PeriodLabel() + ".xlsx"
		}
		if err := writeReport(out, report); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d jobs to %s\n", len(jobs), out)
		return nil
	}),
}

func writeReport(path string, report exports.Report) error {
	if strings.HasSuffix(strings.ToLower(path), ".csv") {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := exports.WriteCSV(f, report); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}

	data, err := exports.Workbook(report)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func init() {
	exportCmd.AddCommand(exportJobsCmd)
	exportJobsCmd.Flags().StringVar(&exportFlags.from, "from", "", "first day to include (YYYY-MM-DD)")
	exportJobsCmd.Flags().StringVar(&exportFlags.to, "to", "", "last day to include (YYYY-MM-DD)")
	exportJobsCmd.Flags().StringVarP(&exportFlags.out, "out", "o", "", "output file (.xlsx or .csv)")
}
