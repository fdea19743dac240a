package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"quiz-engine/internal/config"
	"quiz-engine/internal/domain"
	"quiz-engine/internal/logger"
)

type seedFile struct {
	Quizzes []domain.QuizDefinition `yaml:"quizzes"`
}

// NewSeedCmd loads quiz definitions from YAML into the configured store.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Validate and store quiz definitions from a YAML file",
		Args:  cobra.ExactArgs(1),
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

			_, err = seedQuizzes(cmd.Context(), rt, args[0], log)
			return err
		},
	}
}

func loadSeedFile(path string) ([]domain.QuizDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return file.Quizzes, nil
}

func seedQuizzes(ctx context.Context, rt *runtime, path string, log *zap.Logger) (int, error) {
	defs, err := loadSeedFile(path)
	if err != nil {
		return 0, err
	}
	for _, def := range defs {
		if _, err := rt.authoring.SaveQuiz(ctx, def); err != nil {
			return 0, fmt.Errorf("seed quiz %s: %w", def.Quiz.ID, err)
		}
	}
	log.Info("quizzes seeded", zap.String("file", path), zap.Int("count", len(defs)))
	return len(defs), nil
}
