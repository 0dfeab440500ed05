package main

import (
	"fmt"
	"os"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/scheduler"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// batchCmd registers a YAML file of batch entries and runs them in parallel.
var batchCmd = &cobra.Command{
	Use:   "batch <entries.yaml>",
	Short: "Run a batch of plan invocations in parallel",
	Long: `Reads a YAML list of batch entries (name, tool, input, ...), registers them
with the parallel scheduler, starts them on the worker pool, and waits for
every function to finish. Each loaded template is available as a tool under
its template id.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		entries, err := loadEntries(args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		sys, _, err := buildSystem(cmd)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer sys.Close()

		sched := sys.Scheduler()
		report := sched.RegisterBatch(entries)
		for _, msg := range report.Errors {
			fmt.Printf("Skipped: %s\n", msg)
		}
		if len(report.IDs) == 0 {
			fmt.Println("Nothing to run.")
			os.Exit(1)
		}

		started := sched.Start(cmd.Context())
		for _, msg := range started.Errors {
			fmt.Printf("Not started: %s\n", msg)
		}

		failures := 0
		for _, id := range started.IDs {
			snap, err := sched.Await(cmd.Context(), id)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("[%d] %s (%s): %s\n", snap.ID, snap.Name, snap.Status, snap.Result)
			if snap.Status != domain.FunctionCompleted {
				failures++
			}
		}
		sched.Cleanup()

		if failures > 0 {
			fmt.Printf("%d of %d functions did not complete\n", failures, len(started.IDs))
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

func loadEntries(path string) ([]scheduler.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return scheduler.DecodeEntries(raw)
}
