// Package cli implements ragctl, the operator tool for migrations, job
// submission and ad-hoc questions against the pipeline.
package cli

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cuongbtq/hr-rag/internal/ai"
	"github.com/cuongbtq/hr-rag/internal/ai/provider"
	"github.com/cuongbtq/hr-rag/internal/bootstrap"
	"github.com/cuongbtq/hr-rag/internal/config"
	"github.com/cuongbtq/hr-rag/internal/jobs"
	"github.com/cuongbtq/hr-rag/shared/logger"
	"github.com/cuongbtq/hr-rag/shared/postgresql"
)

const (
	app               = "ragctl"
	defaultConfigPath = "configs/worker-service/config.yaml"
)

type migrator interface {
	Migrate(ctx context.Context, migrations fs.FS) ([]string, error)
	Close() error
}

type publisher interface {
	jobs.Publisher
	Close() error
}

// Connection constructors. Tests swap them for fakes.
var (
	connectDatabase = func(cfg *config.DatabaseConfig, l *slog.Logger) (*postgresql.Client, error) {
		return bootstrap.NewPostgreSQL(cfg, l)
	}
	openMigrator = func(cfg *config.DatabaseConfig, l *slog.Logger) (migrator, error) {
		client, err := connectDatabase(cfg, l)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	openPublisher = func(cfg *config.RabbitMQConfig, l *slog.Logger) (publisher, error) {
		client, err := bootstrap.NewRabbitMQ(cfg, l)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	newBackends = func(ctx context.Context, cfg *config.Config, l *slog.Logger) (ai.Embedder, ai.Generator, io.Closer, error) {
		b, err := provider.New(ctx, cfg, l)
		if err != nil {
			return nil, nil, nil, err
		}
		return b.Embedder, b.Generator, b, nil
	}
)

type cli struct {
	v *viper.Viper
}

// NewRootCommand builds the ragctl command tree.
func NewRootCommand() *cobra.Command {
	c := &cli{v: viper.New()}
	c.v.SetEnvPrefix("RAGCTL")
	c.v.AutomaticEnv()

	root := &cobra.Command{
		Use:           app,
		Short:         "ragctl operates the document pipeline: migrations, job submission and questions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", defaultConfigPath, "path to the service configuration file")
	root.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	root.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	for _, name := range []string{"config", "debug", "json"} {
		_ = c.v.BindPFlag(name, root.PersistentFlags().Lookup(name))
	}

	root.AddCommand(
		newVersionCommand(),
		c.newMigrateCommand(),
		c.newSubmitCommand(),
		c.newAskCommand(),
	)
	return root
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// load reads the configuration file and builds a stderr logger so stdout
// carries only command output.
func (c *cli) load() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(c.v.GetString("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logCfg := bootstrap.LoggerConfig(&cfg.Logging)
	logCfg.Output = "stderr"
	if c.v.GetBool("debug") {
		logCfg.Level = "debug"
	}
	if c.v.GetBool("json") {
		logCfg.Format = "json"
	}
	l, err := logger.New(logCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating a logger: %w", err)
	}
	return cfg, l, nil
}
