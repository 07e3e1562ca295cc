package validation

import (
	"math"
	"strings"
	"testing"

	"github.com/pogona-hunter/arena-form/internal/config"
	"github.com/pogona-hunter/arena-form/internal/experiment"
	"github.com/pogona-hunter/arena-form/pkg/types"
)

func newValidator() *Validator {
	return NewValidator(nil, config.DefaultConfig().Form)
}

func TestNewValidator(t *testing.T) {
	v := newValidator()
	if v == nil {
		t.Fatal("NewValidator returned nil")
	}

	// Verify patterns are initialized
	if v.namePattern == nil {
		t.Error("name pattern not initialized")
	}
	if v.registry == nil {
		t.Error("registry not initialized")
	}
	if len(v.commandInjectionPatterns) == 0 {
		t.Error("Command injection patterns not initialized")
	}
	if len(v.pathTraversalPatterns) == 0 {
		t.Error("Path traversal patterns not initialized")
	}
}

func TestValidateName(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		// Valid names
		{"simple", "pogona_hunt", false},
		{"with dots and hyphens", "exp-2024.10.01", false},
		{"64 chars", strings.Repeat("a", 64), false},

		// Invalid names
		{"empty", "", true},
		{"too long", strings.Repeat("a", 65), true},
		{"dot", ".", true},
		{"dot dot", "..", true},
		{"with slash", "a/b", true},
		{"with spaces", "my experiment", true},
		{"traversal", "../../etc", true},
		{"command injection", "exp;rm -rf /", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAnimalID(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty is allowed", "", false},
		{"simple", "PV42", false},
		{"with hyphen", "PV-42_b", false},
		{"with dot", "PV.42", true},
		{"too long", strings.Repeat("x", 33), true},
		{"with null byte", "PV\x00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateAnimalID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAnimalID() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMediaURL(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		// Valid media
		{"file name", "intro.mp4", false},
		{"sub directory", "clips/intro.mp4", false},

		// Invalid media
		{"empty", "", true},
		{"too long", strings.Repeat("a", 2049), true},
		{"javascript protocol", "javascript:alert(1)", true},
		{"file protocol", "FILE:///etc/passwd", true},
		{"parent directory", "../secret.mp4", true},
		{"windows traversal", "clips\\..\\..\\x", true},
		{"encoded traversal", "%2E%2E/x.mp4", true},
		{"command substitution", "$(reboot).mp4", true},
		{"rtl override", "clip\u202Ep4m.exe", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateMediaURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMediaURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateFilePath(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"relative", "experiments/exp1.yaml", false},
		{"absolute", "/tmp/exp1.json", false},
		{"parent is fine", "../exp1.toml", false},
		{"empty", "", true},
		{"semicolon", "/tmp/x; rm -rf /", true},
		{"pipe", "exp.json|cat", true},
		{"variable", "${HOME}/exp.json", true},
		{"null byte", "exp\x00.json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateFilePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilePath() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	v := newValidator()

	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"tab\tand\nnewline", "tab\tand\nnewline"},
		{"bell\a and escape\x1b[31m", "bell and escape[31m"},
		{"carriage\rreturn", "carriagereturn"},
	}

	for _, tt := range tests {
		if got := v.SanitizeString(tt.input); got != tt.want {
			t.Errorf("SanitizeString(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func validDoc() *types.Values {
	return types.ValuesOf(
		"name", "exp1",
		"animal_id", "PV42",
		"is_use_predictions", false,
		"time_between_blocks", float64(300),
		"extra_time_recording", float64(30),
		"cameras", "realtime,left",
		"num_blocks", float64(2),
		"blocks", []*types.Values{
			types.ValuesOf(
				"num_trials", float64(3),
				"trial_duration", float64(60),
				"iti", float64(10),
				"block_type", "bugs",
				"reward_type", "always",
				"bug_types", []string{"cockroach", "worm"},
				"reward_bugs", []string{"worm"},
				"bug_speed", float64(4),
				"movement_type", "circle",
				"time_between_bugs", float64(2),
				"is_anticlockwise", true,
				"target_drift", "",
				"is_default_bug_size", true,
				"background_color", "#e8eaf6",
			),
			types.ValuesOf(
				"num_trials", float64(1),
				"trial_duration", float64(30),
				"iti", float64(5),
				"block_type", "media",
				"media_url", "intro.mp4",
			),
		},
	)
}

func block(doc *types.Values, i int) *types.Values {
	raw, _ := doc.Get("blocks")
	return raw.([]*types.Values)[i]
}

func TestValidateExperimentValid(t *testing.T) {
	issues := newValidator().ValidateExperiment(validDoc())
	if len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
}

func TestValidateExperimentIssues(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(doc *types.Values)
		path     string
		severity Severity
	}{
		{
			name:     "missing name",
			mutate:   func(doc *types.Values) { doc.Set("name", "") },
			path:     "name",
			severity: SeverityError,
		},
		{
			name:     "unknown top-level key",
			mutate:   func(doc *types.Values) { doc.Set("colour", "red") },
			path:     "colour",
			severity: SeverityWarning,
		},
		{
			name:     "block key at top level",
			mutate:   func(doc *types.Values) { doc.Set("iti", float64(3)) },
			path:     "iti",
			severity: SeverityWarning,
		},
		{
			name:     "NaN numeric",
			mutate:   func(doc *types.Values) { doc.Set("time_between_blocks", math.NaN()) },
			path:     "time_between_blocks",
			severity: SeverityError,
		},
		{
			name:     "string numeric",
			mutate:   func(doc *types.Values) { doc.Set("extra_time_recording", "30") },
			path:     "extra_time_recording",
			severity: SeverityError,
		},
		{
			name:     "num_blocks mismatch",
			mutate:   func(doc *types.Values) { doc.Set("num_blocks", float64(3)) },
			path:     "num_blocks",
			severity: SeverityError,
		},
		{
			name:     "fractional num_blocks",
			mutate:   func(doc *types.Values) { doc.Set("num_blocks", 1.5) },
			path:     "num_blocks",
			severity: SeverityError,
		},
		{
			name:     "num_blocks above the limit",
			mutate:   func(doc *types.Values) { doc.Set("num_blocks", float64(1e18)) },
			path:     "num_blocks",
			severity: SeverityError,
		},
		{
			name: "too many blocks",
			mutate: func(doc *types.Values) {
				raw, _ := doc.Get("blocks")
				first := raw.([]*types.Values)[0]
				blocks := make([]*types.Values, experiment.MaxBlocks+1)
				for i := range blocks {
					blocks[i] = first
				}
				doc.Set("blocks", blocks)
				doc.Set("num_blocks", float64(len(blocks)))
			},
			path:     "blocks",
			severity: SeverityError,
		},
		{
			name:     "blocks not a list",
			mutate:   func(doc *types.Values) { doc.Set("blocks", "two") },
			path:     "blocks",
			severity: SeverityError,
		},
		{
			name:     "unknown camera",
			mutate:   func(doc *types.Values) { doc.Set("cameras", "realtime,top") },
			path:     "cameras",
			severity: SeverityError,
		},
		{
			name:     "no camera",
			mutate:   func(doc *types.Values) { doc.Set("cameras", "") },
			path:     "cameras",
			severity: SeverityWarning,
		},
		{
			name:     "unknown block type",
			mutate:   func(doc *types.Values) { block(doc, 1).Set("block_type", "video") },
			path:     "blocks[2].block_type",
			severity: SeverityError,
		},
		{
			name:     "empty bug types",
			mutate:   func(doc *types.Values) { block(doc, 0).Set("bug_types", []string{}) },
			path:     "blocks[1].bug_types",
			severity: SeverityError,
		},
		{
			name:     "unknown bug type",
			mutate:   func(doc *types.Values) { block(doc, 0).Set("bug_types", []any{"worm", "dragon"}) },
			path:     "blocks[1].bug_types",
			severity: SeverityError,
		},
		{
			name:     "reward bug outside bug types",
			mutate:   func(doc *types.Values) { block(doc, 0).Set("reward_bugs", []string{"leaf"}) },
			path:     "blocks[1].reward_bugs",
			severity: SeverityWarning,
		},
		{
			name:     "unknown movement type",
			mutate:   func(doc *types.Values) { block(doc, 0).Set("movement_type", "teleport") },
			path:     "blocks[1].movement_type",
			severity: SeverityError,
		},
		{
			name:     "zero trials",
			mutate:   func(doc *types.Values) { block(doc, 0).Set("num_trials", float64(0)) },
			path:     "blocks[1].num_trials",
			severity: SeverityError,
		},
		{
			name:     "bug field on media block",
			mutate:   func(doc *types.Values) { block(doc, 1).Set("bug_speed", float64(3)) },
			path:     "blocks[2].bug_speed",
			severity: SeverityWarning,
		},
		{
			name:     "media traversal",
			mutate:   func(doc *types.Values) { block(doc, 1).Set("media_url", "../../etc/passwd") },
			path:     "blocks[2].media_url",
			severity: SeverityError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDoc()
			tt.mutate(doc)

			issues := newValidator().ValidateExperiment(doc)
			found := false
			for _, issue := range issues {
				if issue.Path == tt.path && issue.Severity == tt.severity {
					found = true
				}
			}
			if !found {
				t.Errorf("expected %s at %s, got %v", tt.severity, tt.path, issues)
			}
			if HasErrors(issues) != (tt.severity == SeverityError) {
				t.Errorf("HasErrors() = %v for %v", HasErrors(issues), issues)
			}
		})
	}
}

func TestValidateExperimentDisabledCamera(t *testing.T) {
	catalog := config.DefaultConfig().Form
	catalog.Cameras[1].Disabled = true

	doc := validDoc()
	doc.Set("cameras", "realtime,back")

	issues := NewValidator(nil, catalog).ValidateExperiment(doc)
	if len(issues) != 1 || issues[0].Severity != SeverityWarning || issues[0].Path != "cameras" {
		t.Errorf("expected one camera warning, got %v", issues)
	}
}

func TestIssueString(t *testing.T) {
	issue := Issue{Path: "blocks[1].iti", Message: "must be at least 0", Severity: SeverityError}
	if got := issue.String(); got != "error: blocks[1].iti: must be at least 0" {
		t.Errorf("Issue.String() = %q", got)
	}
}
