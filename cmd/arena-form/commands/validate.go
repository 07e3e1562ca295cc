package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pogona-hunter/arena-form/internal/validation"
)

var validateJSON bool

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <document>",
	Short: "Check an experiment document before it is run",
	Long: `Check an experiment document against the option catalog of the config.

Errors are values the arena cannot run with: numbers that do not parse,
a num_blocks that disagrees with the block list, unknown block types and
options, bugs blocks without bugs. Warnings are keys the form ignores.

The command exits with a non-zero status when any error is found.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "print issues as JSON")
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	path := args[0]
	doc, _, err := s.readDocument(path)
	if err != nil {
		return err
	}

	issues := s.validator().ValidateExperiment(doc)
	errorCount := 0
	for _, issue := range issues {
		if issue.Severity == validation.SeverityError {
			errorCount++
		}
	}
	s.audit.LogValidation(path, errorCount, len(issues)-errorCount)
	s.log.Debugw("document validated", "document", path, "errors", errorCount, "warnings", len(issues)-errorCount)

	out := cmd.OutOrStdout()
	if validateJSON {
		if issues == nil {
			issues = []validation.Issue{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(issues); err != nil {
			return err
		}
	} else {
		for _, issue := range issues {
			fmt.Fprintln(out, issue)
		}
		if len(issues) == 0 {
			fmt.Fprintf(out, "%s: ok\n", path)
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("%s has %d error(s)", path, errorCount)
	}
	return nil
}
