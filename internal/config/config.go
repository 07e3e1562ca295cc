package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/pogona-hunter/arena-form/pkg/types"
)

// ErrConfigNotFound is returned when the config file is not found by Load.
var ErrConfigNotFound = errors.New("configuration file not found")

// Config represents the application configuration
type Config struct {
	Form    FormConfig    `mapstructure:"form"`
	Logging LoggingConfig `mapstructure:"logging"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Output  OutputConfig  `mapstructure:"output"`
}

// FormConfig is the option catalog the headless form is built from
type FormConfig struct {
	BlockTypes       []string       `mapstructure:"block_types"`
	BugTypes         []string       `mapstructure:"bug_types"`
	RewardTypes      []string       `mapstructure:"reward_types"`
	MovementTypes    []string       `mapstructure:"movement_types"`
	TargetDrifts     []string       `mapstructure:"target_drifts"`
	BackgroundColors []string       `mapstructure:"background_colors"`
	Cameras          []types.Camera `mapstructure:"cameras"`
	Defaults         Defaults       `mapstructure:"defaults"`
	// TemplateDir holds block type templates added to the form; empty for
	// none.
	TemplateDir      string         `mapstructure:"template_dir"`
}

// Defaults are the initial control values of a fresh form and of every
// block the form adds.
type Defaults struct {
	TimeBetweenBlocks  float64 `mapstructure:"time_between_blocks"`
	ExtraTimeRecording float64 `mapstructure:"extra_time_recording"`
	NumBlocks          int     `mapstructure:"num_blocks"`
	NumTrials          float64 `mapstructure:"num_trials"`
	TrialDuration      float64 `mapstructure:"trial_duration"`
	ITI                float64 `mapstructure:"iti"`
	BlockType          string  `mapstructure:"block_type"`
	RewardType         string  `mapstructure:"reward_type"`
	MovementType       string  `mapstructure:"movement_type"`
	BugSpeed           float64 `mapstructure:"bug_speed"`
	TimeBetweenBugs    float64 `mapstructure:"time_between_bugs"`
	BugSize            float64 `mapstructure:"bug_size"`
	BugHeight          float64 `mapstructure:"bug_height"`
	IsDefaultBugSize   bool    `mapstructure:"is_default_bug_size"`
	BackgroundColor    string  `mapstructure:"background_color"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// AuditConfig represents audit trail settings
type AuditConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	File    string        `mapstructure:"file"`
	MaxSize int64         `mapstructure:"max_size"`
	MaxAge  time.Duration `mapstructure:"max_age"`
}

// OutputConfig represents document output settings
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Form: FormConfig{
			BlockTypes:       []string{types.BlockTypeBugs, types.BlockTypeMedia},
			BugTypes:         []string{"cockroach", "worm", "red_beetle", "black_beetle", "green_beetle", "leaf"},
			RewardTypes:      []string{"always", "end_trial"},
			MovementTypes:    []string{"circle", "random", "random_low_horizontal", "low_horizontal", "low_horizontal_noise", "jump"},
			TargetDrifts:     []string{"", "left", "right"},
			BackgroundColors: []string{"#e8eaf6", "#000000", "#ffffff"},
			Cameras: []types.Camera{
				{Name: "realtime", Checked: true},
				{Name: "back"},
				{Name: "left"},
				{Name: "right"},
			},
			Defaults: Defaults{
				TimeBetweenBlocks:  300,
				ExtraTimeRecording: 30,
				NumBlocks:          1,
				NumTrials:          1,
				TrialDuration:      60,
				ITI:                10,
				BlockType:          types.BlockTypeBugs,
				RewardType:         "end_trial",
				MovementType:       "circle",
				BugSpeed:           2,
				TimeBetweenBugs:    2,
				BugSize:            100,
				BugHeight:          100,
				IsDefaultBugSize:   true,
				BackgroundColor:    "#e8eaf6",
			},
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
		Audit: AuditConfig{
			Enabled: false,
			File:    "",
			MaxSize: 10 * 1024 * 1024,
			MaxAge:  30 * 24 * time.Hour,
		},
		Output: OutputConfig{
			Format: "json",
		},
	}
}

// Load loads configuration from file
func Load(configFile string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	configDir := getConfigDir()
	resolvedConfigFile := configFile

	if configFile == "" || configFile == filepath.Join(configDir, "config.yaml") {
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
		if configFile == "" {
			resolvedConfigFile = filepath.Join(configDir, "config.yaml")
		}
	} else {
		v.SetConfigFile(configFile)
		resolvedConfigFile = configFile
	}

	// Check existence ourselves; viper's not-found detection depends on how
	// the path was configured.
	if _, err := os.Stat(resolvedConfigFile); os.IsNotExist(err) {
		return nil, ErrConfigNotFound
	}

	// Environment variable overrides
	v.SetEnvPrefix("ARENA_FORM")
	v.AutomaticEnv()

	_ = v.BindEnv("logging.level", "ARENA_FORM_LOG_LEVEL")
	_ = v.BindEnv("audit.enabled", "ARENA_FORM_AUDIT")
	_ = v.BindEnv("audit.file", "ARENA_FORM_AUDIT_FILE")
	_ = v.BindEnv("output.format", "ARENA_FORM_FORMAT")

	if err := v.ReadInConfig(); err != nil {
		var vfnfError viper.ConfigFileNotFoundError
		if errors.As(err, &vfnfError) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file content: %w", err)
	}

	// Lists from the file replace the default lists instead of overwriting
	// their first entries.
	zeroFields := viper.DecoderConfigOption(func(c *mapstructure.DecoderConfig) {
		c.ZeroFields = true
	})
	if err := v.Unmarshal(config, zeroFields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Audit.File == "" {
		config.Audit.File = filepath.Join(configDir, "audit.log")
	}

	return config, nil
}

// Save saves configuration to file
func (c *Config) Save(configFile string) error {
	if configFile == "" {
		configFile = filepath.Join(getConfigDir(), "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configFile)

	cameras := make([]map[string]interface{}, 0, len(c.Form.Cameras))
	for _, cam := range c.Form.Cameras {
		cameras = append(cameras, map[string]interface{}{
			"name":     cam.Name,
			"disabled": cam.Disabled,
			"checked":  cam.Checked,
		})
	}

	d := c.Form.Defaults
	v.Set("form.block_types", c.Form.BlockTypes)
	v.Set("form.bug_types", c.Form.BugTypes)
	v.Set("form.reward_types", c.Form.RewardTypes)
	v.Set("form.movement_types", c.Form.MovementTypes)
	v.Set("form.target_drifts", c.Form.TargetDrifts)
	v.Set("form.background_colors", c.Form.BackgroundColors)
	v.Set("form.cameras", cameras)
	v.Set("form.template_dir", c.Form.TemplateDir)
	v.Set("form.defaults.time_between_blocks", d.TimeBetweenBlocks)
	v.Set("form.defaults.extra_time_recording", d.ExtraTimeRecording)
	v.Set("form.defaults.num_blocks", d.NumBlocks)
	v.Set("form.defaults.num_trials", d.NumTrials)
	v.Set("form.defaults.trial_duration", d.TrialDuration)
	v.Set("form.defaults.iti", d.ITI)
	v.Set("form.defaults.block_type", d.BlockType)
	v.Set("form.defaults.reward_type", d.RewardType)
	v.Set("form.defaults.movement_type", d.MovementType)
	v.Set("form.defaults.bug_speed", d.BugSpeed)
	v.Set("form.defaults.time_between_bugs", d.TimeBetweenBugs)
	v.Set("form.defaults.bug_size", d.BugSize)
	v.Set("form.defaults.bug_height", d.BugHeight)
	v.Set("form.defaults.is_default_bug_size", d.IsDefaultBugSize)
	v.Set("form.defaults.background_color", d.BackgroundColor)
	v.Set("logging.level", c.Logging.Level)
	v.Set("logging.file", c.Logging.File)
	v.Set("audit.enabled", c.Audit.Enabled)
	v.Set("audit.file", c.Audit.File)
	v.Set("audit.max_size", c.Audit.MaxSize)
	v.Set("audit.max_age", c.Audit.MaxAge)
	v.Set("output.format", c.Output.Format)

	return v.WriteConfig()
}

// getConfigDir returns the configuration directory
func getConfigDir() string {
	if configDir := os.Getenv("ARENA_FORM_CONFIG_DIR"); configDir != "" {
		return configDir
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		cwd, _ := os.Getwd()
		return filepath.Join(cwd, ".arena-form")
	}

	return filepath.Join(homeDir, ".arena-form")
}

// GetConfigDir returns the configuration directory (exported)
func GetConfigDir() string {
	return getConfigDir()
}

// LoadOrCreate loads existing config or creates a new one
func LoadOrCreate(configFile string) (*Config, error) {
	cfg, err := Load(configFile)
	if err == nil {
		return cfg, nil
	}

	if !errors.Is(err, ErrConfigNotFound) {
		return nil, err
	}

	cfg = DefaultConfig()

	finalConfigFile := configFile
	if finalConfigFile == "" || finalConfigFile == "config.yaml" {
		finalConfigFile = filepath.Join(getConfigDir(), "config.yaml")
	}

	if errSave := cfg.Save(finalConfigFile); errSave != nil {
		return nil, fmt.Errorf("failed to save default config to %s: %w", finalConfigFile, errSave)
	}
	if cfg.Audit.File == "" {
		cfg.Audit.File = filepath.Join(getConfigDir(), "audit.log")
	}
	return cfg, nil
}
