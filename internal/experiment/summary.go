package experiment

import (
	"fmt"
	"math"
	"strings"

	"github.com/pogona-hunter/arena-form/internal/field"
	"github.com/pogona-hunter/arena-form/pkg/types"
)

// Keys that only mean something to a bugs block. Summaries of media blocks
// leave them out.
var bugOnlyKeys = map[string]bool{
	"bug_speed":          true,
	"movement_type":      true,
	"is_use_predictions": true,
	"time_between_bugs":  true,
	"reward_type":        true,
	"reward_bugs":        true,
	"is_anticlockwise":   true,
	"bug_types":          true,
	"target_drift":       true,
}

// DurationFactor pads a block's nominal running time to give the cache
// entries of a running block some slack.
const DurationFactor = 1.5

// BlockSummary describes one block of an experiment document
type BlockSummary struct {
	Index int
	Type  string
	Lines []string
	// TrialDuration is the recorded length of one trial in seconds,
	// including the extra recording before and after it.
	TrialDuration float64
	// Duration is the estimated running time of the block in seconds
	Duration float64
}

// Summary describes an experiment document the way the arena logs it when
// the experiment starts.
type Summary struct {
	Lines    []string
	Blocks   []BlockSummary
	Duration float64
}

// Summarize builds the summary of an experiment document. Values that do
// not read as numbers count as zero in the duration estimate.
func Summarize(doc *types.Values) Summary {
	var s Summary
	extra := number(doc, "extra_time_recording")
	between := number(doc, "time_between_blocks")

	for _, key := range doc.Keys() {
		if key == types.KeyBlocks {
			continue
		}
		v, _ := doc.Get(key)
		s.Lines = append(s.Lines, line(key, v))
	}

	raw, _ := doc.Get(types.KeyBlocks)
	blocks, _ := BlockList(raw)
	for i, block := range blocks {
		bs := summarizeBlock(i+1, block, extra)
		s.Blocks = append(s.Blocks, bs)
		s.Duration += bs.Duration
		if i > 0 {
			s.Duration += between
		}
	}
	return s
}

func summarizeBlock(index int, block *types.Values, extra float64) BlockSummary {
	blockType := field.Stringify(valueOf(block, types.KeyBlockType))
	bs := BlockSummary{Index: index, Type: blockType}

	for _, key := range block.Keys() {
		if blockType == types.BlockTypeMedia && bugOnlyKeys[key] {
			continue
		}
		v, _ := block.Get(key)
		bs.Lines = append(bs.Lines, line(key, v))
	}

	trials := number(block, "num_trials")
	iti := number(block, "iti")
	bs.TrialDuration = number(block, "trial_duration") + 2*extra
	// n-1 is not clamped: a block without trials estimates -iti*1.5.
	bs.Duration = math.RoundToEven((trials*bs.TrialDuration + (trials-1)*iti) * DurationFactor)
	if bs.Duration == 0 {
		bs.Duration = 0 // drop the sign of -0
	}
	return bs
}

// String renders the summary as plain text
func (s Summary) String() string {
	var b strings.Builder
	for _, l := range s.Lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	for _, bs := range s.Blocks {
		fmt.Fprintf(&b, "\nblock %d (%s):\n", bs.Index, bs.Type)
		for _, l := range bs.Lines {
			fmt.Fprintf(&b, "  %s\n", l)
		}
		fmt.Fprintf(&b, "  trial duration: %gs\n", bs.TrialDuration)
		fmt.Fprintf(&b, "  block duration: %gs\n", bs.Duration)
	}
	fmt.Fprintf(&b, "\nestimated duration: %gs\n", s.Duration)
	return b.String()
}

// BugOptions returns the payload the arena app is initialized with for a
// bugs block.
func BugOptions(block *types.Values) *types.Values {
	bugs := field.StringList(valueOf(block, types.KeyBugTypes))
	reward := field.StringList(valueOf(block, types.KeyRewardBugs))
	if len(reward) == 0 {
		reward = bugs
	}

	return types.ValuesOf(
		"numOfBugs", 1,
		"speed", valueOf(block, "bug_speed"),
		"bugTypes", bugs,
		"rewardBugs", reward,
		"movementType", valueOf(block, "movement_type"),
		"timeBetweenBugs", valueOf(block, "time_between_bugs"),
		"isStopOnReward", field.Stringify(valueOf(block, "reward_type")) == "always",
		"isLogTrajectory", true,
		"isAntiClockWise", field.Truthy(valueOf(block, "is_anticlockwise")),
		"targetDrift", field.Stringify(valueOf(block, "target_drift")),
	)
}

// MediaOptions returns the payload the arena app plays a media block with.
// mediaBase is the URL the management server serves media files under.
func MediaOptions(block *types.Values, mediaBase string) *types.Values {
	url := field.Stringify(valueOf(block, "media_url"))
	return types.ValuesOf("url", strings.TrimRight(mediaBase, "/")+"/"+url)
}

func valueOf(v *types.Values, key string) any {
	val, _ := v.Get(key)
	return val
}

func number(v *types.Values, key string) float64 {
	n := field.ParseNumber(field.Stringify(valueOf(v, key)))
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

func line(key string, v any) string {
	return fmt.Sprintf("%s: %s", key, field.Stringify(v))
}
