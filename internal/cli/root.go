// Package cli wires configuration, storage and services into the dailylove command.
package cli

import (
	"fmt"
	"os"

	"github.com/example/dailylove/internal/config"
	"github.com/example/dailylove/internal/daily"
	"github.com/example/dailylove/internal/logger"
	"github.com/example/dailylove/internal/rotation"
	"github.com/spf13/cobra"
)

// app holds what the root command's pre-run resolved
type app struct {
	envFile string
	cfg     config.Config
	log     *logger.Logger
}

// NewRootCommand builds the dailylove command tree
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "dailylove",
		Short: "Daily relationship actions, one day at a time",
		Long: `dailylove serves one content item per day from fixed content banks.

Subjects advance by completing the day's item (explicit tracks) or by time
passing since they started (elapsed tracks). The Telegram bot and reminder
scheduler run under "serve".`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.envFile)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.LogMode)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			a.cfg, a.log = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Environment file to load (missing file is ignored)")

	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newShowCmd(a),
		newImportCmd(a),
		newTracksCmd(a),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) catalog() (*daily.Catalog, error) {
	if a.cfg.TracksFile == "" {
		return daily.DefaultCatalog()
	}
	return daily.LoadCatalogFile(a.cfg.TracksFile)
}

func (a *app) selector() (*rotation.Selector, error) {
	s := &rotation.Selector{Shift: a.cfg.RotationShift, RankWeights: a.cfg.RankWeights}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
