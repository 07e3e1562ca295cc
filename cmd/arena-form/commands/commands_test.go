package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mediaExperiment = `{
  "name": "pogona_test",
  "extra_time_recording": 15,
  "num_blocks": 1,
  "colour": "red",
  "blocks": [
    {"num_trials": 2, "trial_duration": 60, "iti": 10, "block_type": "media", "media_url": "clip.mp4", "bug_speed": 3}
  ]
}`

const bugsExperiment = `name: pogona_test
animal_id: PV42
num_blocks: 1
blocks:
  - num_trials: 3
    trial_duration: 60
    iti: 10
    block_type: bugs
    bug_types: [cockroach, worm]
    reward_bugs: [worm]
    movement_type: circle
`

// execute runs the root command with fresh flag values and returns what it
// wrote to stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("ARENA_FORM_CONFIG_DIR", t.TempDir())

	configFile, verbose = "", false
	normalizeSet, normalizeQuery, normalizeFormat, normalizeOutput, normalizeForce = nil, "", "", "", false
	validateJSON = false
	schemaBlockType, schemaJSON = "", false
	summaryRaw, summaryAppOptions, summaryMediaBase = false, false, "/media"
	initForce, initAudit = false, false
	auditTypes, auditSeverity, auditDocument, auditRun, auditSince, auditLimit, auditJSON = nil, nil, "", "", 0, 0, false

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := Execute()
	return stdout.String(), stderr.String(), err
}

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestNormalizeDropsUnknownKeys(t *testing.T) {
	path := writeDoc(t, "exp.json", mediaExperiment)

	stdout, stderr, err := execute(t, "", "normalize", path, "--format", "json")
	require.NoError(t, err)

	assert.NotContains(t, stdout, "colour")
	assert.NotContains(t, stdout, "bug_speed")
	assert.Contains(t, stdout, `"media_url": "clip.mp4"`)
	assert.Less(t, strings.Index(stdout, `"name"`), strings.Index(stdout, `"blocks"`))
	assert.Contains(t, stderr, "WARNING: Skipped 2 unknown key(s) in "+path)
}

func TestNormalizeSetAndQuery(t *testing.T) {
	path := writeDoc(t, "exp.json", mediaExperiment)

	stdout, _, err := execute(t, "", "normalize", path,
		"--set", "blocks.0.num_trials=5",
		"--set", "animal_id=PV7",
		"--query", "blocks.0.num_trials")
	require.NoError(t, err)
	assert.Equal(t, "5\n", stdout)

	stdout, _, err = execute(t, "", "normalize", path, "--set", "animal_id=PV7", "--query", "animal_id")
	require.NoError(t, err)
	assert.Equal(t, "\"PV7\"\n", stdout)

	_, _, err = execute(t, "", "normalize", path, "--query", "blocks.0.bug_speed")
	assert.Error(t, err)

	_, _, err = execute(t, "", "normalize", path, "--set", "no-equals-sign")
	assert.Error(t, err)
}

func TestNormalizeWritesOutputFile(t *testing.T) {
	path := writeDoc(t, "exp.yaml", bugsExperiment)
	out := filepath.Join(t.TempDir(), "out.toml")

	_, stderr, err := execute(t, "", "normalize", path, "--format", "toml", "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stderr, "INFO: Document written to "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[[blocks]]")
	assert.Contains(t, string(data), "is_anticlockwise")

	// An existing file needs confirmation
	_, _, err = execute(t, "n\n", "normalize", path, "--format", "toml", "-o", out)
	assert.Error(t, err)

	_, _, err = execute(t, "", "normalize", path, "--format", "json", "-o", out, "--force")
	require.NoError(t, err)
	data, err = os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{"))
}

func TestNormalizeRejectsBadPaths(t *testing.T) {
	_, _, err := execute(t, "", "normalize", "exp.json;rm -rf /")
	assert.Error(t, err)

	_, _, err = execute(t, "", "normalize", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, _, err = execute(t, "", "normalize", writeDoc(t, "exp.ini", "a=1"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	good := writeDoc(t, "good.yaml", bugsExperiment)
	stdout, _, err := execute(t, "", "validate", good)
	require.NoError(t, err)
	assert.Equal(t, good+": ok\n", stdout)

	bad := writeDoc(t, "bad.json", `{"name": "bad name!", "num_blocks": 2, "blocks": [{"block_type": "bugs", "bug_types": []}]}`)
	stdout, stderr, err := execute(t, "", "validate", bad)
	require.Error(t, err)
	assert.Regexp(t, `ERROR: \S+bad\.json has \d+ error\(s\)`, stderr)
	assert.Contains(t, stdout, "error: name:")
	assert.Contains(t, stdout, "error: num_blocks:")
	assert.Contains(t, stdout, "error: blocks[1].bug_types:")

	stdout, _, err = execute(t, "", "validate", bad, "--json")
	require.Error(t, err)
	assert.Contains(t, stdout, `"severity": "error"`)
}

func TestSchema(t *testing.T) {
	stdout, _, err := execute(t, "", "schema")
	require.NoError(t, err)
	assert.Contains(t, stdout, "SCOPE")
	assert.Contains(t, stdout, "block:bugs")
	assert.Regexp(t, `is_anticlockwise\s+isAntiClockWise\s+boolean\s+movement_type=circle`, stdout)
	assert.Regexp(t, `bug_height\s+bugHeight\s+numeric\s+movement_type in \[low_horizontal low_horizontal_noise\]`, stdout)

	stdout, _, err = execute(t, "", "schema", "--block-type", "media", "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"media-url"`)
	assert.NotContains(t, stdout, "bugSpeed")

	_, _, err = execute(t, "", "schema", "--block-type", "video")
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	path := writeDoc(t, "exp.json", mediaExperiment)

	stdout, _, err := execute(t, "", "summary", path, "--raw")
	require.NoError(t, err)
	assert.Contains(t, stdout, "block 1 (media):")
	assert.Contains(t, stdout, "trial duration: 90s")
	assert.Contains(t, stdout, "block duration: 285s")
	assert.NotContains(t, stdout, "bug_speed")

	stdout, _, err = execute(t, "", "summary", writeDoc(t, "exp.yaml", bugsExperiment), "--app-options")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"numOfBugs": 1`)
	assert.Contains(t, stdout, `"movementType": "circle"`)
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "config.yaml")

	_, stderr, err := execute(t, "", "init", "--config", target, "--audit")
	require.NoError(t, err)
	assert.Contains(t, stderr, "SUCCESS: Configuration written to "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "movement_types")
	assert.Contains(t, string(data), filepath.Join(dir, "audit.log"))

	_, _, err = execute(t, "n\n", "init", "--config", target)
	assert.Error(t, err)

	_, _, err = execute(t, "", "init", "--config", target, "--force")
	assert.NoError(t, err)
}

func TestAuditTrail(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "config.yaml")
	_, _, err := execute(t, "", "init", "--config", target, "--audit")
	require.NoError(t, err)

	path := writeDoc(t, "exp.json", mediaExperiment)
	_, _, err = execute(t, "", "--config", target, "normalize", path)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "audit.log"))
	require.NoError(t, err)
	log := string(data)
	assert.Contains(t, log, `"type":"CONFIG_READ"`)
	assert.Contains(t, log, `"type":"KEY_SKIPPED"`)
	assert.Contains(t, log, `"path":"colour"`)
	assert.Contains(t, log, `"path":"blocks[1].bug_speed"`)
}

func TestAuditSearch(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "config.yaml")
	_, stderr, err := execute(t, "", "--config", target, "audit")
	require.Error(t, err)
	assert.Contains(t, stderr, "ERROR: config file "+target+" not found")

	_, _, err = execute(t, "", "init", "--config", target, "--audit")
	require.NoError(t, err)
	_, _, err = execute(t, "", "--config", target, "audit")
	require.Error(t, err, "nothing was audited yet")

	path := writeDoc(t, "exp.json", mediaExperiment)
	_, _, err = execute(t, "", "--config", target, "normalize", path)
	require.NoError(t, err)
	before, err := os.ReadFile(filepath.Join(dir, "audit.log"))
	require.NoError(t, err)

	stdout, _, err := execute(t, "", "--config", target, "audit", "--type", "key_skipped")
	require.NoError(t, err)
	assert.Contains(t, stdout, "SEVERITY")
	assert.Regexp(t, `KEY_SKIPPED\s+WARNING\s+\S+exp.json\s+colour\s+SKIPPED`, stdout)
	assert.Contains(t, stdout, "blocks[1].bug_speed")
	assert.NotContains(t, stdout, "CONFIG_READ")

	stdout, _, err = execute(t, "", "--config", target, "audit", "--document", path, "--limit", "1", "--json")
	require.NoError(t, err)
	var events []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "CONFIG_READ", events[0]["type"])

	_, stderr, err = execute(t, "", "--config", target, "audit", "--severity", "error")
	require.NoError(t, err)
	assert.Contains(t, stderr, "INFO: No matching audit events")

	after, err := os.ReadFile(filepath.Join(dir, "audit.log"))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestBlockTemplates(t *testing.T) {
	dir := t.TempDir()
	templates := filepath.Join(dir, "block_types")
	require.NoError(t, os.MkdirAll(templates, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(templates, "tones.yaml"), []byte(`fields:
  - name: tone_frequency
    control: toneFrequency
    kind: numeric
  - name: tone_shape
    control: toneShape
    kind: text
  - name: tone_ramp
    control: toneRamp
    kind: numeric
    when:
      - field: tone_shape
        one_of: [sine]
`), 0600))
	target := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(target, []byte("form:\n  template_dir: "+templates+"\n"), 0600))

	stdout, _, err := execute(t, "", "--config", target, "schema", "--block-type", "tones")
	require.NoError(t, err)
	assert.Contains(t, stdout, "toneFrequency")
	assert.Contains(t, stdout, "experimentNumTrials")

	path := writeDoc(t, "exp.json", `{"name": "tones_test", "num_blocks": 1, "blocks": [
  {"num_trials": 1, "trial_duration": 10, "iti": 0, "block_type": "tones", "tone_frequency": 440, "tone_shape": "square", "tone_ramp": 5}
]}`)
	stdout, _, err = execute(t, "", "--config", target, "normalize", path, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"block_type": "tones"`)
	assert.Contains(t, stdout, `"tone_frequency": 440`)
	assert.NotContains(t, stdout, "tone_ramp")

	_, _, err = execute(t, "", "--config", target, "validate", path)
	assert.NoError(t, err)
}
