package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pogona-hunter/arena-form/internal/config"
	"github.com/pogona-hunter/arena-form/internal/ui"
	"github.com/pogona-hunter/arena-form/pkg/types"
)

var (
	initForce bool
	initAudit bool
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file holding the default option catalog of the
experiment form: block types, bug types, movement types, cameras and the
values new blocks start with.

An existing file is only replaced after confirmation, or with --force.

Examples:
  # Write ~/.arena-form/config.yaml
  arena-form init

  # Write a config next to the experiments and turn on the audit trail
  arena-form init --config ./arena.yaml --audit`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config without asking")
	initCmd.Flags().BoolVar(&initAudit, "audit", false, "enable the audit trail in the new config")
}

func runInit(cmd *cobra.Command, args []string) error {
	target := configFile
	if target == "" {
		target = filepath.Join(config.GetConfigDir(), "config.yaml")
	}

	confirmation := types.Confirmation{
		Timeout:     30 * time.Second,
		DefaultDeny: true,
	}
	if initForce {
		confirmation = types.Confirmation{AutoApprove: true}
	}
	confirmer := ui.NewConfirmer(confirmation, ui.WithIO(cmd.InOrStdin(), cmd.ErrOrStderr()))

	result := confirmer.ConfirmOverwrite(cmd.Context(), target)
	if result.Error != nil {
		return fmt.Errorf("failed to confirm overwrite: %w", result.Error)
	}
	if !result.Approved {
		return fmt.Errorf("%s already exists (use --force to overwrite)", target)
	}

	cfg := config.DefaultConfig()
	cfg.Audit.Enabled = initAudit
	if initAudit {
		cfg.Audit.File = filepath.Join(filepath.Dir(target), "audit.log")
	}
	if err := cfg.Save(target); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	confirmer.DisplaySuccess(fmt.Sprintf("Configuration written to %s", target))
	return nil
}
