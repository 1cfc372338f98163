// Command admin runs maintenance tasks against the Unistudious database:
// schema creation, account provisioning and password resets.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/unistudious/backend/app"
	"github.com/unistudious/backend/config"
	"github.com/unistudious/backend/internal/observability"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	ctx := context.Background()

	cfg, err := config.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}
	// schema and accounts are explicit subcommands here
	cfg.Auth.BootstrapAdminEmail = ""
	cfg.Database.AutoMigrate = false

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", zap.Error(err))
		return 1
	}
	defer func() {
		if err := deps.Close(context.Background()); err != nil {
			logger.Warn("failed to close dependencies", zap.Error(err))
		}
	}()

	cli := &commandLine{
		accounts: deps.Users,
		schema:   deps.RepoFactory,
		out:      os.Stdout,
		logger:   logger,
	}
	if err := cli.run(ctx, args); err != nil {
		if err != errHelp {
			logger.Error("command failed", zap.Error(err))
		}
		return 1
	}
	return 0
}
