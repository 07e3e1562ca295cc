package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pogona-hunter/arena-form/internal/audit"
	"github.com/pogona-hunter/arena-form/internal/blocktemplates"
	"github.com/pogona-hunter/arena-form/internal/config"
	"github.com/pogona-hunter/arena-form/internal/control"
	"github.com/pogona-hunter/arena-form/internal/document"
	"github.com/pogona-hunter/arena-form/internal/experiment"
	"github.com/pogona-hunter/arena-form/internal/layout"
	"github.com/pogona-hunter/arena-form/internal/logging"
	"github.com/pogona-hunter/arena-form/internal/schema"
	"github.com/pogona-hunter/arena-form/internal/ui"
	"github.com/pogona-hunter/arena-form/internal/validation"
	"github.com/pogona-hunter/arena-form/pkg/types"
)

var (
	version    = "dev"
	configFile string
	verbose    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "arena-form",
	Short: "Experiment form engine for the arena",
	Long: `Reads, normalizes and checks arena experiment documents.

Documents (JSON, YAML or TOML) are written into a headless copy of the
experiment form and read back, so the output holds exactly the fields the
form would show for each block type. Keys the form does not know are
dropped and reported.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		notifier(rootCmd.ErrOrStderr()).DisplayError(err.Error())
	}
	return err
}

// notifier prints status lines to w without ever prompting
func notifier(w io.Writer) *ui.Confirmer {
	return ui.NewConfirmer(types.Confirmation{BatchMode: true}, ui.WithIO(nil, w))
}

func init() {
	// Documents go to stdout, everything else to stderr
	rootCmd.SetErr(os.Stderr)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ~/.arena-form/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")
}

// SetVersion sets the version for the CLI
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// session carries what a command needs besides its arguments
type session struct {
	cfg      *config.Config
	registry *schema.Registry
	log      *zap.SugaredLogger
	audit    *audit.Logger
}

// loadConfig loads the configuration, falling back to the defaults when no
// config file was named and none exists.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		if configFile != "" {
			return nil, fmt.Errorf("config file %s not found", configFile)
		}
		return config.DefaultConfig(), nil
	case err != nil:
		return nil, err
	}
	return cfg, nil
}

// auditFile is where the audit trail of cfg is written
func auditFile(cfg *config.Config) string {
	if cfg.Audit.File != "" {
		return cfg.Audit.File
	}
	return filepath.Join(config.GetConfigDir(), "audit.log")
}

// openSession loads the configuration and builds the loggers it asks for.
func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logging.New(logging.Options{
		Verbose: verbose,
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
	})
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, registry: schema.Default(), log: log}
	if err := s.loadTemplates(); err != nil {
		return nil, err
	}
	if cfg.Audit.Enabled {
		file := auditFile(cfg)
		s.audit, err = audit.NewLogger(audit.Config{
			FilePath: file,
			MaxSize:  cfg.Audit.MaxSize,
			MaxAge:   cfg.Audit.MaxAge,
		})
		if err != nil {
			return nil, err
		}
		log.Debugw("audit trail enabled", "file", file, "run_id", s.audit.RunID())
	}
	return s, nil
}

// loadTemplates adds the block types of the configured template directory
// to the registry and to the block type options of the form.
func (s *session) loadTemplates() error {
	dir := s.cfg.Form.TemplateDir
	if dir == "" {
		return nil
	}
	templates, err := blocktemplates.Load(os.DirFS(dir), ".")
	if err != nil {
		return fmt.Errorf("failed to load block templates from %s: %w", dir, err)
	}
	if err := blocktemplates.Apply(s.registry, templates...); err != nil {
		return fmt.Errorf("failed to load block templates from %s: %w", dir, err)
	}
	for _, t := range templates {
		if !slices.Contains(s.cfg.Form.BlockTypes, t.BlockType) {
			s.cfg.Form.BlockTypes = append(s.cfg.Form.BlockTypes, t.BlockType)
		}
		s.log.Debugw("block type loaded", "block_type", t.BlockType, "fields", len(t.Fields))
	}
	return nil
}

// Close flushes the loggers
func (s *session) Close() {
	_ = s.log.Sync()
	if err := s.audit.Close(); err != nil {
		notifier(rootCmd.ErrOrStderr()).DisplayWarning(fmt.Sprintf("failed to close audit log: %v", err))
	}
}

// validator returns a validator for the configured option catalog
func (s *session) validator() *validation.Validator {
	return validation.NewValidator(s.registry, s.cfg.Form)
}

// readDocument reads the document at path after checking the path itself
func (s *session) readDocument(path string) (*types.Values, document.Format, error) {
	if err := s.validator().ValidateFilePath(path); err != nil {
		return nil, "", fmt.Errorf("invalid document path: %w", err)
	}

	doc, format, err := document.ReadFile(path)
	s.audit.LogDocument(audit.EventConfigRead, path, err == nil, map[string]interface{}{
		"format": string(format),
	})
	if err != nil {
		s.audit.LogError("document", err, map[string]interface{}{"path": path})
		return nil, "", err
	}
	s.log.Debugw("document read", "path", path, "format", format, "keys", doc.Len())
	return doc, format, nil
}

// normalize writes doc into a fresh headless form and reads it back. Keys
// the form does not know are logged and left out of the result.
func (s *session) normalize(name string, doc *types.Values) (*types.Values, []string) {
	var skipped []string
	form := control.NewForm()
	engine := experiment.New(form, s.registry, experiment.WithSkipHook(func(path string) {
		skipped = append(skipped, path)
		s.log.Warnw("key skipped", "document", name, "path", path)
		s.audit.LogSkipped(name, path)
	}))
	ctrl := layout.Build(form, engine, s.cfg.Form, s.log)
	defer ctrl.Close()

	engine.Write(doc)
	out := engine.Read()
	s.log.Debugw("document normalized", "document", name, "blocks", engine.NumBlocks(), "skipped", len(skipped))
	return out, skipped
}
