package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/aretw0/espalier"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// runCmd executes a single plan template and prints its final result.
var runCmd = &cobra.Command{
	Use:   "run <template-id>",
	Short: "Execute one plan template",
	Long: `Loads the templates directory, executes the named template with the given
parameters, and prints the plan's final result.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		params, err := parseParams(cmd)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		var extra []espalier.Option
		if metricsAddr != "" {
			reg := prometheus.NewRegistry()
			extra = append(extra, espalier.WithRegisterer(reg))
			go serveMetrics(metricsAddr, reg)
		}

		sys, _, err := buildSystem(cmd, extra...)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer sys.Close()

		res, err := sys.Run(cmd.Context(), args[0], params)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if !res.Success {
			fmt.Printf("Plan failed: %s\n", res.ErrorMessage)
			os.Exit(1)
		}
		fmt.Println(res.FinalResult)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayP("param", "P", nil, "Template parameter as key=value (repeatable)")
	runCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address while running")
}

func parseParams(cmd *cobra.Command) (map[string]any, error) {
	pairs, _ := cmd.Flags().GetStringArray("param")
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q: expected key=value", pair)
		}
		params[key] = value
	}
	return params, nil
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, r); err != nil {
		fmt.Printf("Metrics server error: %v\n", err)
	}
}
