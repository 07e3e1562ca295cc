package validation

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/pogona-hunter/arena-form/internal/config"
	"github.com/pogona-hunter/arena-form/internal/experiment"
	"github.com/pogona-hunter/arena-form/internal/field"
	"github.com/pogona-hunter/arena-form/internal/schema"
	"github.com/pogona-hunter/arena-form/pkg/types"
)

// Severity of a validation issue
type Severity int

const (
	// SeverityWarning marks a document that loads but is probably not what
	// the operator meant
	SeverityWarning Severity = iota
	// SeverityError marks a document the arena cannot run
	SeverityError
)

// String returns the severity name
func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// MarshalText implements encoding.TextMarshaler
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Issue is one finding about an experiment document
type Issue struct {
	Path     string   `json:"path"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validator checks experiment documents before they reach the arena. The
// projection engine accepts anything; this is where bad input is reported.
type Validator struct {
	registry *schema.Registry
	catalog  config.FormConfig

	// Experiment names become directory names
	namePattern     *regexp.Regexp
	animalIDPattern *regexp.Regexp

	// Security patterns to detect injection attempts
	commandInjectionPatterns []*regexp.Regexp
	pathTraversalPatterns    []*regexp.Regexp
}

// NewValidator creates a validator for documents of registry, checking
// option values against catalog. A nil registry selects schema.Default().
func NewValidator(registry *schema.Registry, catalog config.FormConfig) *Validator {
	if registry == nil {
		registry = schema.Default()
	}
	return &Validator{
		registry: registry,
		catalog:  catalog,

		// Experiment name: alphanumeric with underscores, hyphens, dots (1-64 chars)
		namePattern: regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`),

		// Animal id: alphanumeric with underscores and hyphens (1-32 chars)
		animalIDPattern: regexp.MustCompile(`^[a-zA-Z0-9_-]{1,32}$`),

		// Command injection patterns
		commandInjectionPatterns: []*regexp.Regexp{
			regexp.MustCompile(`[;&|]`), // Command separators
			regexp.MustCompile("`"),     // Backticks
			regexp.MustCompile(`\$\(`),  // Command substitution
			regexp.MustCompile(`\$\{`),  // Variable expansion
			regexp.MustCompile(`<<|>>`), // Redirections
			regexp.MustCompile(`\n|\r`), // Newlines
			regexp.MustCompile(`[<>]`),  // IO redirection
			regexp.MustCompile(`\x00`),  // Null bytes
		},

		// Path traversal patterns
		pathTraversalPatterns: []*regexp.Regexp{
			regexp.MustCompile(`\.\.[\\/]`),         // ../ or ..\
			regexp.MustCompile(`%2e%2e|%252e%252e`), // URL encoded traversal
			regexp.MustCompile(`\x00`),              // Null bytes
		},
	}
}

// ValidateName validates an experiment name
func (v *Validator) ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("experiment name cannot be empty")
	}

	if len(name) > 64 {
		return fmt.Errorf("experiment name too long: maximum 64 characters")
	}

	if name == "." || name == ".." {
		return fmt.Errorf("experiment name '%s' is reserved", name)
	}

	if !v.namePattern.MatchString(name) {
		return fmt.Errorf("invalid experiment name: must contain only alphanumeric characters, dots, underscores, and hyphens")
	}

	return nil
}

// ValidateAnimalID validates an animal id. An empty id is allowed.
func (v *Validator) ValidateAnimalID(id string) error {
	if id == "" {
		return nil
	}

	if !v.animalIDPattern.MatchString(id) {
		return fmt.Errorf("invalid animal id: must be 1-32 alphanumeric characters, underscores, or hyphens")
	}

	return nil
}

// ValidateMediaURL validates the media file a media block plays. It is
// resolved under the management server's media directory, so it must not
// leave it.
func (v *Validator) ValidateMediaURL(url string) error {
	if url == "" {
		return fmt.Errorf("media url cannot be empty")
	}

	if len(url) > 2048 {
		return fmt.Errorf("media url cannot exceed 2048 characters")
	}

	// Check for dangerous protocols
	lowerURL := strings.ToLower(url)
	dangerousProtocols := []string{"javascript:", "data:", "vbscript:", "file:"}
	for _, proto := range dangerousProtocols {
		if strings.HasPrefix(lowerURL, proto) {
			return fmt.Errorf("media url contains dangerous protocol")
		}
	}

	if v.containsPathTraversal(url) || strings.HasPrefix(filepath.Clean(url), "..") {
		return fmt.Errorf("media url cannot traverse to parent directories")
	}

	if v.containsCommandInjection(url) {
		return fmt.Errorf("media url contains invalid characters")
	}

	if v.containsDangerousUnicode(url) {
		return fmt.Errorf("media url contains invalid Unicode characters")
	}

	return nil
}

// ValidateFilePath validates a document path given on the command line
func (v *Validator) ValidateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	if strings.Contains(path, "\x00") {
		return fmt.Errorf("file path contains null bytes")
	}

	if v.containsFilePathCommandInjection(path) {
		return fmt.Errorf("file path contains invalid characters")
	}

	return nil
}

// SanitizeString removes control characters except tab and newline. Values
// are sanitized before they are printed in summaries.
func (v *Validator) SanitizeString(input string) string {
	var sanitized strings.Builder
	for _, r := range input {
		if unicode.IsControl(r) && r != '\t' && r != '\n' {
			continue
		}
		sanitized.WriteRune(r)
	}
	return sanitized.String()
}

// ValidateExperiment checks a whole experiment document
func (v *Validator) ValidateExperiment(doc *types.Values) []Issue {
	c := &checker{v: v}

	for _, key := range doc.Keys() {
		if _, ok := v.registry.TopLevel(key); !ok && key != types.KeyBlocks {
			c.warn(key, "unknown key is ignored")
		}
	}

	if err := v.ValidateName(str(doc, "name")); err != nil {
		c.fail("name", err.Error())
	}
	if err := v.ValidateAnimalID(str(doc, "animal_id")); err != nil {
		c.fail("animal_id", err.Error())
	}
	c.number(doc, "", "time_between_blocks", 0, false)
	c.number(doc, "", "extra_time_recording", 0, false)
	c.cameras(doc)

	raw, hasBlocks := doc.Get(types.KeyBlocks)
	blocks, ok := experiment.BlockList(raw)
	switch {
	case !hasBlocks:
		c.fail(types.KeyBlocks, "experiment has no blocks")
	case !ok:
		c.fail(types.KeyBlocks, fmt.Sprintf("must be a list, got %T", raw))
	case len(blocks) == 0:
		c.fail(types.KeyBlocks, "experiment has no blocks")
	case len(blocks) > experiment.MaxBlocks:
		c.fail(types.KeyBlocks, fmt.Sprintf("has %d blocks, at most %d are allowed", len(blocks), experiment.MaxBlocks))
	}

	n, present := c.number(doc, "", types.KeyNumBlocks, 1, true)
	switch {
	case !present || math.IsNaN(n) || math.IsInf(n, 0):
	case n > experiment.MaxBlocks:
		c.fail(types.KeyNumBlocks, fmt.Sprintf("is %g, at most %d blocks are allowed", n, experiment.MaxBlocks))
	case ok && n != float64(len(blocks)):
		c.fail(types.KeyNumBlocks, fmt.Sprintf("is %g but the document has %d blocks", n, len(blocks)))
	}

	for i, block := range blocks {
		c.block(i+1, block)
	}
	return c.issues
}

type checker struct {
	v      *Validator
	issues []Issue
}

func (c *checker) add(path, msg string, s Severity) {
	c.issues = append(c.issues, Issue{Path: path, Message: msg, Severity: s})
}

func (c *checker) fail(path, msg string) { c.add(path, msg, SeverityError) }
func (c *checker) warn(path, msg string) { c.add(path, msg, SeverityWarning) }

// number checks that key holds a finite number of at least min. Missing
// keys are fine unless required. It returns the value and whether it was
// present.
func (c *checker) number(values *types.Values, prefix, key string, min float64, integer bool) (float64, bool) {
	path := prefix + key
	raw, ok := values.Get(key)
	if !ok {
		return 0, false
	}
	n, isNumber := types.NormalizeNumber(raw).(float64)
	switch {
	case !isNumber:
		c.fail(path, fmt.Sprintf("must be a number, got %T", raw))
		return math.NaN(), true
	case math.IsNaN(n) || math.IsInf(n, 0):
		c.fail(path, "is not a number")
	case n < min:
		c.fail(path, fmt.Sprintf("must be at least %g", min))
	case integer && n != math.Trunc(n):
		c.fail(path, "must be a whole number")
	}
	return n, true
}

func (c *checker) option(values *types.Values, prefix, key string, options []string) {
	raw, ok := values.Get(key)
	if !ok {
		return
	}
	s, isString := raw.(string)
	if !isString {
		c.fail(prefix+key, fmt.Sprintf("must be a string, got %T", raw))
		return
	}
	if len(options) > 0 && !contains(options, s) {
		c.fail(prefix+key, fmt.Sprintf("unknown value %q", s))
	}
}

func (c *checker) cameras(doc *types.Values) {
	raw, ok := doc.Get("cameras")
	if !ok {
		return
	}
	names := field.StringList(raw)
	if len(names) == 0 {
		c.warn("cameras", "no camera selected")
		return
	}
	for _, name := range names {
		cam, found := c.camera(name)
		switch {
		case !found:
			c.fail("cameras", fmt.Sprintf("unknown camera %q", name))
		case cam.Disabled:
			c.warn("cameras", fmt.Sprintf("camera %q is disabled and will not record", name))
		}
	}
}

func (c *checker) camera(name string) (types.Camera, bool) {
	for _, cam := range c.v.catalog.Cameras {
		if cam.Name == name {
			return cam, true
		}
	}
	return types.Camera{}, false
}

func (c *checker) block(index int, block *types.Values) {
	prefix := fmt.Sprintf("%s[%d].", types.KeyBlocks, index)
	cat := c.v.catalog

	blockType := str(block, types.KeyBlockType)
	switch {
	case !block.Has(types.KeyBlockType):
		c.fail(prefix+types.KeyBlockType, "block type is missing")
	case !contains(c.v.registry.BlockTypes(), blockType):
		c.fail(prefix+types.KeyBlockType, fmt.Sprintf("unknown block type %q", blockType))
	}

	for _, key := range block.Keys() {
		if _, ok := c.v.registry.Lookup(blockType, key); !ok {
			c.warn(prefix+key, fmt.Sprintf("not a field of %q blocks and is ignored", blockType))
		}
	}

	c.number(block, prefix, "num_trials", 1, true)
	c.number(block, prefix, "trial_duration", 1, false)
	c.number(block, prefix, "iti", 0, false)

	switch blockType {
	case types.BlockTypeBugs:
		bugs := field.StringList(valueOf(block, types.KeyBugTypes))
		if len(bugs) == 0 {
			c.fail(prefix+types.KeyBugTypes, "a bugs block needs at least one bug type")
		}
		for _, b := range bugs {
			if len(cat.BugTypes) > 0 && !contains(cat.BugTypes, b) {
				c.fail(prefix+types.KeyBugTypes, fmt.Sprintf("unknown bug type %q", b))
			}
		}
		for _, b := range field.StringList(valueOf(block, types.KeyRewardBugs)) {
			if !contains(bugs, b) {
				c.warn(prefix+types.KeyRewardBugs, fmt.Sprintf("reward bug %q is not one of the block's bug types", b))
			}
		}
		c.option(block, prefix, "reward_type", cat.RewardTypes)
		c.option(block, prefix, "movement_type", cat.MovementTypes)
		c.option(block, prefix, "target_drift", cat.TargetDrifts)
		c.number(block, prefix, "bug_speed", 0, false)
		c.number(block, prefix, "time_between_bugs", 0, false)
		c.number(block, prefix, "bug_height", 0, false)
		c.number(block, prefix, "bug_size", 1, false)
	case types.BlockTypeMedia:
		if err := c.v.ValidateMediaURL(str(block, "media_url")); err != nil {
			c.fail(prefix+"media_url", err.Error())
		}
	}
}

// containsCommandInjection checks if input contains command injection patterns
func (v *Validator) containsCommandInjection(input string) bool {
	for _, pattern := range v.commandInjectionPatterns {
		if pattern.MatchString(input) {
			return true
		}
	}
	return false
}

// containsDangerousUnicode checks for dangerous Unicode characters
func (v *Validator) containsDangerousUnicode(input string) bool {
	for _, r := range input {
		// Check for RTL override characters
		if r == '\u202E' || r == '\u202D' || r == '\u202C' {
			return true
		}
		if unicode.Is(unicode.Cf, r) { // Format characters
			return true
		}
	}
	return false
}

// containsFilePathCommandInjection checks for command injection in file paths
// This is more permissive than general command injection as paths need slashes
func (v *Validator) containsFilePathCommandInjection(path string) bool {
	dangerousPatterns := []string{
		";", "|", "&", "$", "`", "<", ">", "\n", "\r",
		"${", "$(", "%00", "&&", "||", ">>", "<<",
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(path, pattern) {
			return true
		}
	}

	return false
}

// containsPathTraversal checks if input contains path traversal patterns
func (v *Validator) containsPathTraversal(input string) bool {
	for _, pattern := range v.pathTraversalPatterns {
		if pattern.MatchString(strings.ToLower(input)) {
			return true
		}
	}
	return false
}

func valueOf(v *types.Values, key string) any {
	val, _ := v.Get(key)
	return val
}

func str(v *types.Values, key string) string {
	s, _ := valueOf(v, key).(string)
	return s
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
