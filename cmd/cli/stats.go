package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/keshon/autoreply/internal/command"
)

func reportCmd(a *app) *cobra.Command {
	var toStdout bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate a pattern match report",
		Long:  `Write a timestamped text report of all pattern statistics into the data directory.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := a.ledger()
			if err != nil {
				return err
			}
			if toStdout {
				_, err := fmt.Fprint(cmd.OutOrStdout(), l.RenderReport())
				return err
			}
			path, err := l.GenerateReport()
			if err != nil {
				return fmt.Errorf("failed to generate report: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}

	cmd.Flags().BoolVar(&toStdout, "stdout", false, "print the report instead of writing a file")
	return cmd
}

func exportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export raw pattern statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := a.ledger()
			if err != nil {
				return err
			}
			path, err := l.ExportRaw()
			if err != nil {
				return fmt.Errorf("failed to export stats: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}

func topCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "List the most matched patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := a.ledger()
			if err != nil {
				return err
			}

			top := l.TopPatterns(limit)
			if len(top) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No pattern statistics available yet.")
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "RANK\tPATTERN\tCOUNT\tLAST MATCHED")
			_, _ = fmt.Fprintln(w, "────\t───────\t─────\t────────────")
			for i, r := range top {
				last := "never"
				if !r.LastMatchedAt.IsZero() {
					last = r.LastMatchedAt.Local().Format(time.DateTime)
				}
				_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", i+1, r.Pattern, r.Count, last)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", command.DefaultTopLimit, "number of patterns to show")
	return cmd
}
