package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pogona-hunter/arena-form/internal/audit"
	"github.com/pogona-hunter/arena-form/internal/document"
	"github.com/pogona-hunter/arena-form/internal/ui"
	"github.com/pogona-hunter/arena-form/pkg/types"
)

var (
	normalizeSet    []string
	normalizeQuery  string
	normalizeFormat string
	normalizeOutput string
	normalizeForce  bool
)

// normalizeCmd represents the normalize command
var normalizeCmd = &cobra.Command{
	Use:   "normalize <document>",
	Short: "Round-trip a document through the experiment form",
	Long: `Write an experiment document into a headless experiment form and print
what the form reads back.

The output holds every field the form shows, in form order: fields that
do not apply to a block's type (or to its movement type) are dropped, missing
fields take the form's defaults, and keys the form does not know are
reported on stderr and left out.

Examples:
  # Normalize a YAML experiment and print it as JSON
  arena-form normalize exp.yaml --format json

  # Change a value before normalizing
  arena-form normalize exp.json --set blocks.0.movement_type=random

  # Print one value of the normalized document
  arena-form normalize exp.toml --query blocks.0.bug_types`,
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)

	normalizeCmd.Flags().StringArrayVar(&normalizeSet, "set", nil, "set path=value before normalizing (repeatable)")
	normalizeCmd.Flags().StringVar(&normalizeQuery, "query", "", "print the value at this path instead of the document")
	normalizeCmd.Flags().StringVar(&normalizeFormat, "format", "", "output format: json, yaml or toml (default from config)")
	normalizeCmd.Flags().StringVarP(&normalizeOutput, "output", "o", "", "write the document to this file instead of stdout")
	normalizeCmd.Flags().BoolVar(&normalizeForce, "force", false, "overwrite the output file without asking")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	path := args[0]
	doc, inputFormat, err := s.readDocument(path)
	if err != nil {
		return err
	}

	if len(normalizeSet) > 0 {
		assignments := make([]document.Assignment, 0, len(normalizeSet))
		for _, raw := range normalizeSet {
			a, err := document.ParseAssignment(raw)
			if err != nil {
				return err
			}
			assignments = append(assignments, a)
		}
		if doc, err = document.Patch(doc, assignments...); err != nil {
			return err
		}
		s.log.Debugw("document patched", "document", path, "assignments", len(assignments))
	}

	out, skipped := s.normalize(path, doc)
	if len(skipped) > 0 {
		notifier(cmd.ErrOrStderr()).DisplayWarning(fmt.Sprintf("Skipped %d unknown key(s) in %s", len(skipped), path))
	}

	if normalizeQuery != "" {
		result, ok, err := document.Query(out, normalizeQuery)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no value at %s", normalizeQuery)
		}
		fmt.Fprintln(cmd.OutOrStdout(), result)
		return nil
	}

	format, err := outputFormat(normalizeFormat, s.cfg.Output.Format, inputFormat)
	if err != nil {
		return err
	}
	return writeDocument(cmd, s, out, format)
}

// outputFormat picks the flag's format, then the configured one, then the
// input's.
func outputFormat(flag, configured string, input document.Format) (document.Format, error) {
	switch {
	case flag != "":
		return document.ParseFormat(flag)
	case configured != "":
		return document.ParseFormat(configured)
	default:
		return input, nil
	}
}

func writeDocument(cmd *cobra.Command, s *session, doc *types.Values, format document.Format) error {
	data, err := document.Encode(format, doc)
	if err != nil {
		s.audit.LogError("document", err, map[string]interface{}{"format": string(format)})
		return fmt.Errorf("failed to encode document (run validate to find non-numeric values): %w", err)
	}

	if normalizeOutput == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	if err := s.validator().ValidateFilePath(normalizeOutput); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	confirmation := types.Confirmation{DefaultDeny: true}
	if normalizeForce {
		confirmation = types.Confirmation{AutoApprove: true}
	}
	confirmer := ui.NewConfirmer(confirmation, ui.WithIO(cmd.InOrStdin(), cmd.ErrOrStderr()))
	if result := confirmer.ConfirmOverwrite(cmd.Context(), normalizeOutput); !result.Approved {
		return fmt.Errorf("%s already exists (use --force to overwrite)", normalizeOutput)
	}

	err = os.WriteFile(normalizeOutput, data, 0644)
	s.audit.LogDocument(audit.EventConfigWrite, normalizeOutput, err == nil, map[string]interface{}{
		"format": string(format),
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", normalizeOutput, err)
	}
	s.log.Debugw("document written", "path", normalizeOutput, "format", format)
	confirmer.DisplayInfo(fmt.Sprintf("Document written to %s", normalizeOutput))
	return nil
}
