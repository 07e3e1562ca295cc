package schema

import (
	"github.com/pogona-hunter/arena-form/internal/field"
	"github.com/pogona-hunter/arena-form/pkg/types"
)

// Movement types referenced by conditions of the default registry
const (
	MovementCircle             = "circle"
	MovementLowHorizontal      = "low_horizontal"
	MovementLowHorizontalNoise = "low_horizontal_noise"
)

// Default returns the registry of the arena experiment form, bound to the
// element ids the form page uses.
func Default() *Registry {
	r := NewRegistry()

	r.AddTop("name", field.New("experimentName", field.Text)).
		AddTop("animal_id", field.New("animalId", field.Text)).
		AddTop("is_use_predictions", field.New("use_predictions", field.Boolean)).
		AddTop("time_between_blocks", field.New("timeBetweenBlocks", field.Numeric)).
		AddTop("extra_time_recording", field.New("extraTimeRecording", field.Numeric)).
		AddTop("cameras", field.New("cameras", field.CameraSet)).
		AddTop(types.KeyNumBlocks, field.New("numBlocks", field.Numeric))

	r.AddMain("num_trials", field.New("experimentNumTrials", field.Numeric)).
		AddMain("trial_duration", field.New("experimentTrialDuration", field.Numeric)).
		AddMain("iti", field.New("experimentITI", field.Numeric)).
		AddMain(types.KeyBlockType, field.New("blockTypeSelect", field.Text))

	bugs := types.BlockTypeBugs
	r.AddTyped(bugs, "reward_type", field.New("rewardTypeSelect", field.Text)).
		AddTyped(bugs, types.KeyBugTypes, field.New("bugTypeSelect", field.MultiSelect)).
		AddTyped(bugs, types.KeyRewardBugs, field.New("rewardBugSelect", field.MultiSelect)).
		AddTyped(bugs, "bug_speed", field.New("bugSpeed", field.Numeric)).
		AddTyped(bugs, "movement_type", field.New("movementTypeSelect", field.Text)).
		AddTyped(bugs, "time_between_bugs", field.New("timeBetweenBugs", field.Numeric)).
		AddTyped(bugs, "is_anticlockwise", field.New("isAntiClockWise", field.Boolean,
			field.Equals("movement_type", MovementCircle))).
		AddTyped(bugs, "target_drift", field.New("targetDriftSelect", field.Text,
			field.OneOf("movement_type", MovementCircle, MovementLowHorizontal, MovementLowHorizontalNoise))).
		AddTyped(bugs, "bug_height", field.New("bugHeight", field.Numeric,
			field.OneOf("movement_type", MovementLowHorizontal, MovementLowHorizontalNoise))).
		AddTyped(bugs, "is_default_bug_size", field.New("isDefaultBugSize", field.Boolean)).
		AddTyped(bugs, "bug_size", field.New("bugSize", field.Numeric,
			field.Equals("is_default_bug_size", false))).
		AddTyped(bugs, "background_color", field.New("backgroundColor", field.Text))

	r.AddTyped(types.BlockTypeMedia, "media_url", field.New("media-url", field.Text))

	return r
}
