package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/adapters/memory"
	"github.com/aretw0/espalier/pkg/adapters/redis"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/scheduler"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "espalier",
	Short: "Espalier runs hierarchical plans over a concurrent tool dispatcher",
	Long: `Espalier loads plan templates from a directory, registers each one as a
sub-plan tool, and executes plans either one at a time or as parallel batches.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("templates", ".", "Directory containing plan template YAML files")
	rootCmd.PersistentFlags().String("redis", "", "Redis address for the template store (in-memory when empty)")
	rootCmd.PersistentFlags().Int("workers", scheduler.DefaultWorkers, "Worker pool size for batch execution")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

// templateWriter is the writable face shared by the memory and redis stores.
type templateWriter interface {
	ports.TemplateStore
	Put(ctx context.Context, templateID, definition string) error
}

// buildSystem assembles a System from the persistent flags: it picks the
// template store, seeds it with every *.yaml/*.yml file found under
// --templates (file stem becomes the template id), and registers each loaded
// template as a sub-plan tool under its own id.
func buildSystem(cmd *cobra.Command, extra ...espalier.Option) (*espalier.System, []string, error) {
	dir, _ := cmd.Flags().GetString("templates")
	redisAddr, _ := cmd.Flags().GetString("redis")
	workers, _ := cmd.Flags().GetInt("workers")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var store templateWriter
	if redisAddr != "" {
		store = redis.New(redisAddr, "", 0)
	} else {
		store = memory.NewStore()
	}

	ids, err := seedTemplates(cmd.Context(), store, dir)
	if err != nil {
		return nil, nil, err
	}

	opts := append([]espalier.Option{
		espalier.WithStore(store),
		espalier.WithLogger(logging.New(level)),
		espalier.WithWorkers(workers),
	}, extra...)
	sys := espalier.New(opts...)
	for _, id := range ids {
		sys.RegisterPlanTool(id, fmt.Sprintf("Executes the %q plan template", id), id)
	}
	return sys, ids, nil
}

func seedTemplates(ctx context.Context, store templateWriter, dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	more, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, err
	}
	matches = append(matches, more...)

	var ids []string
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", path, err)
		}
		id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if err := store.Put(ctx, id, string(data)); err != nil {
			return nil, fmt.Errorf("loading template %s: %w", id, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
