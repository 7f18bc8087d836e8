package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/keshon/autoreply/internal/matcher"
	"github.com/keshon/autoreply/internal/message"
	"github.com/keshon/autoreply/internal/pattern"
)

// errInvalidPatterns makes validate exit non-zero.
var errInvalidPatterns = errors.New("pattern documents contain errors")

// cliBotID stands in for the bot identity when testing mentions offline.
const cliBotID = "0"

func validateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the pattern documents and report rejected entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, report, err := pattern.LoadDir(a.cfg.PatternsDir, a.loadOptions())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Files: %d (unreadable: %d)\n", report.Files, report.FileErrors)
			_, _ = fmt.Fprintf(out, "Loaded: %d  Invalid: %d  Duplicates: %d  Patterns: %d\n",
				report.Loaded, report.Invalid, report.Duplicates, store.Size())

			if len(report.Rejections) > 0 {
				_, _ = fmt.Fprintln(out)
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "SOURCE\tKEY\tERROR")
				_, _ = fmt.Fprintln(w, "──────\t───\t─────")
				for _, r := range report.Rejections {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%v\n", r.Source, r.Key, r.Err)
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}

			if report.Invalid > 0 || report.FileErrors > 0 {
				return errInvalidPatterns
			}
			return nil
		},
	}
}

func testCmd(a *app) *cobra.Command {
	var mention bool

	cmd := &cobra.Command{
		Use:   "test <message>",
		Short: "Show which pattern would answer a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := pattern.LoadDir(a.cfg.PatternsDir, a.loadOptions())
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			ev := message.Event{Text: text}
			if mention {
				ev.Text = "<@" + cliBotID + "> " + text
				ev.MentionedUserIDs = []string{cliBotID}
			}
			msg := message.Build(ev, cliBotID)

			sel := matcher.New(a.cfg.Policy(), a.log)
			policy := sel.Policy()
			class := msg.Classification()

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Subject:   %q\n", msg.Subject())
			_, _ = fmt.Fprintf(out, "Class:     %s (threshold %.2f)\n", class, policy.Threshold(class))

			if policy.TooShort(msg.Subject()) {
				_, err := fmt.Fprintf(out, "Result:    too short (minimum %d characters)\n", policy.MinLength)
				return err
			}

			res, ok := sel.Select(msg, store)
			if !ok {
				_, err := fmt.Fprintln(out, "Result:    no match")
				return err
			}
			_, _ = fmt.Fprintf(out, "Pattern:   %s\n", res.Pattern)
			_, _ = fmt.Fprintf(out, "Matched:   %q\n", res.Matched)
			_, _ = fmt.Fprintf(out, "Confidence: %.4f\n", res.Confidence)
			_, err = fmt.Fprintf(out, "Response:  %s\n", res.Response)
			return err
		},
	}

	cmd.Flags().BoolVarP(&mention, "mention", "m", false, "treat the message as mentioning the bot")
	return cmd
}

func (a *app) loadOptions() pattern.LoadOptions {
	return pattern.LoadOptions{MatchTimeout: a.cfg.MatchTimeout, Logger: a.log}
}
