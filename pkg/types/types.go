package types

import "time"

// Document keys shared by every layer that handles an experiment document.
const (
	KeyBlocks     = "blocks"
	KeyNumBlocks  = "num_blocks"
	KeyBlockType  = "block_type"
	KeyBugTypes   = "bug_types"
	KeyRewardBugs = "reward_bugs"
)

// Block types known to the default registry
const (
	BlockTypeBugs  = "bugs"
	BlockTypeMedia = "media"
)

// Camera represents one entry of the camera checkbox group
type Camera struct {
	Name     string `json:"name" mapstructure:"name"`
	Disabled bool   `json:"disabled" mapstructure:"disabled"`
	Checked  bool   `json:"checked" mapstructure:"checked"`
}

// Confirmation represents user confirmation settings
type Confirmation struct {
	BatchMode   bool          `json:"batch_mode"`
	AutoApprove bool          `json:"auto_approve"`
	Timeout     time.Duration `json:"timeout"`
	DefaultDeny bool          `json:"default_deny"`
}
