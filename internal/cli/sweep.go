package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-engine/internal/config"
	"quiz-engine/internal/logger"
)

// NewSweepCmd finalizes expired in-progress attempts once and exits.
func NewSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Finalize attempts whose time window has elapsed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.New(cfg)
			defer func() { _ = log.Sync() }()

			rt, err := buildRuntime(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			n, err := rt.attempts.SweepExpired(cmd.Context())
			log.Info("sweep finished", zap.Int("finalized", n))
			return err
		},
	}
}
