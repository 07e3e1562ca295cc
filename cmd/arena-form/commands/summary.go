package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pogona-hunter/arena-form/internal/experiment"
	"github.com/pogona-hunter/arena-form/pkg/types"
)

var (
	summaryRaw        bool
	summaryAppOptions bool
	summaryMediaBase  string
)

// summaryCmd represents the summary command
var summaryCmd = &cobra.Command{
	Use:   "summary <document>",
	Short: "Summarize an experiment and estimate its duration",
	Long: `Print the experiment the way the arena logs it when it starts: the
experiment fields, then each block with the fields that apply to it, the
length of one recorded trial and the estimated running time of the block.

The document is normalized through the form first unless --raw is given.
With --app-options, print the options the arena app is started with for
each block instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().BoolVar(&summaryRaw, "raw", false, "summarize the document as written")
	summaryCmd.Flags().BoolVar(&summaryAppOptions, "app-options", false, "print the app options of each block as JSON")
	summaryCmd.Flags().StringVar(&summaryMediaBase, "media-base", "/media", "base URL of media block files")
}

func runSummary(cmd *cobra.Command, args []string) error {
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
	if !summaryRaw {
		doc, _ = s.normalize(path, doc)
	}

	out := cmd.OutOrStdout()
	if summaryAppOptions {
		raw, _ := doc.Get(types.KeyBlocks)
		blocks, _ := experiment.BlockList(raw)
		options := make([]*types.Values, 0, len(blocks))
		for _, block := range blocks {
			blockType, _ := block.Get(types.KeyBlockType)
			if blockType == types.BlockTypeMedia {
				options = append(options, experiment.MediaOptions(block, summaryMediaBase))
			} else {
				options = append(options, experiment.BugOptions(block))
			}
		}
		data, err := json.MarshalIndent(options, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode app options: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprint(out, s.validator().SanitizeString(experiment.Summarize(doc).String()))
	return nil
}
