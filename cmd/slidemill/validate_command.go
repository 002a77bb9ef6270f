package main

import (
	"errors"

	"github.com/spf13/cobra"

	"slidemill/internal/metadata"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check metadata.json against the captions file and the image folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.openProject(false)
			if err != nil {
				return err
			}
			defer p.close()

			if !cmd.Flags().Changed("strict") {
				strict = p.cfg.Validation.Strict
			}
			pr := newPrinter(cmd.OutOrStdout())
			if p.generated {
				pr.status(severityInfo, "Generated %s with %d images", p.store.Path(), len(p.md.Images))
			}
			report := p.validate(strict)
			return printReport(pr, report)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
	return cmd
}

// printReport lists every issue and returns an error when the report is invalid.
func printReport(pr printer, report metadata.Report) error {
	rows := make([][]string, 0, len(report.Errors)+len(report.Warnings))
	for _, issue := range report.Errors {
		rows = append(rows, []string{severityError.label(), issue.Kind.String(), issue.Message})
	}
	for _, issue := range report.Warnings {
		rows = append(rows, []string{severityWarn.label(), issue.Kind.String(), issue.Message})
	}
	if len(rows) > 0 {
		pr.println(renderTable([]string{"Severity", "Kind", "Message"}, rows))
	}
	if !report.Valid {
		pr.status(severityError, "Metadata invalid: %d errors, %d warnings", len(report.Errors), len(report.Warnings))
		return errors.New("metadata validation failed")
	}
	if len(report.Warnings) > 0 {
		pr.status(severityWarn, "Metadata valid with %d warnings", len(report.Warnings))
		return nil
	}
	pr.status(severityOK, "Metadata valid")
	return nil
}
