package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pogona-hunter/arena-form/internal/field"
	"github.com/pogona-hunter/arena-form/internal/schema"
	"github.com/pogona-hunter/arena-form/pkg/types"
)

var (
	schemaBlockType string
	schemaJSON      bool
)

// schemaCmd represents the schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the fields of the experiment form",
	Long: `Print the field registry: the top-level fields, the fields every block
has and the fields of each block type, with the control each binds to and
the conditions under which it applies.

With --block-type, print the effective field list of one block type.`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().StringVar(&schemaBlockType, "block-type", "", "print the effective fields of this block type")
	schemaCmd.Flags().BoolVar(&schemaJSON, "json", false, "print the registry as JSON")
}

func runSchema(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	registry := s.registry

	sections := types.NewValues()
	if schemaBlockType != "" {
		found := false
		for _, t := range registry.BlockTypes() {
			found = found || t == schemaBlockType
		}
		if !found {
			return fmt.Errorf("unknown block type %q (known: %s)", schemaBlockType, strings.Join(registry.BlockTypes(), ", "))
		}
		sections.Set(schemaBlockType, registry.Compose(schemaBlockType))
	} else {
		sections.Set("top", registry.Top)
		sections.Set("block", registry.Main)
		for _, t := range registry.BlockTypes() {
			sections.Set("block:"+t, registry.Types[t])
		}
	}

	if schemaJSON {
		data, err := json.MarshalIndent(sections, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCOPE\tKEY\tCONTROL\tKIND\tWHEN")
	fmt.Fprintln(w, "-----\t---\t-------\t----\t----")
	for _, scope := range sections.Keys() {
		v, _ := sections.Get(scope)
		for _, e := range v.([]schema.Entry) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				scope, e.Name, e.Descriptor.Binding, e.Descriptor.Kind, conditionText(e.Descriptor.Conditions))
		}
	}
	return w.Flush()
}

// conditionText renders conditions as "a=x, b in [y z]"
func conditionText(conditions []field.Condition) string {
	if len(conditions) == 0 {
		return "always"
	}
	parts := make([]string, 0, len(conditions))
	for _, c := range conditions {
		allowed := make([]string, 0, len(c.Allowed))
		for _, v := range c.Allowed {
			allowed = append(allowed, field.Stringify(v))
		}
		if c.IsSet() {
			parts = append(parts, fmt.Sprintf("%s in [%s]", c.Field, strings.Join(allowed, " ")))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%s", c.Field, strings.Join(allowed, "")))
		}
	}
	return strings.Join(parts, ", ")
}
