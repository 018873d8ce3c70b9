// Package cli implements docqactl, the operator command line for a local
// document store.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docqa/internal/bootstrap"
	"docqa/internal/config"
	"docqa/internal/util"
)

// Opener builds the runtime for one command invocation.
type Opener func(ctx context.Context, configPath string) (*bootstrap.Runtime, error)

// DefaultOpener loads .env and the YAML config, then builds the runtime.
// Logs go to stderr so command output stays clean.
func DefaultOpener(ctx context.Context, configPath string) (*bootstrap.Runtime, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	util.InitLoggerTo(os.Stderr, cfg.LogLevel)
	return bootstrap.New(ctx, cfg)
}

type runner struct {
	open       Opener
	configPath string
}

// withRuntime opens the runtime, runs fn and closes it.
func (r *runner) withRuntime(cmd *cobra.Command, fn func(ctx context.Context, rt *bootstrap.Runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := r.open(ctx, r.configPath)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

// NewRootCmd assembles the command tree. A nil opener uses DefaultOpener.
func NewRootCmd(open Opener) *cobra.Command {
	if open == nil {
		open = DefaultOpener
	}
	r := &runner{open: open}

	root := &cobra.Command{
		Use:           "docqactl",
		Short:         "Manage documents and ask questions",
		Long:          `Upload, inspect and delete documents in the knowledge store and ask questions against them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&r.configPath, "config", "c", config.ConfigPath, "Path to the YAML config file")

	root.AddCommand(
		newInitCmd(r),
		newUploadCmd(r),
		newListCmd(r),
		newShowCmd(r),
		newChunksCmd(r),
		newDeleteCmd(r),
		newAskCmd(r),
		newStatsCmd(r),
	)
	return root
}

// Execute runs the CLI with os.Args.
func Execute(ctx context.Context) error {
	root := NewRootCmd(nil)
	root.SetOut(os.Stdout)
	return root.ExecuteContext(ctx)
}
