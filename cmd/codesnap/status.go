package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"codesnap/internal/storage"
)

var (
	statusFormat string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the data root's scan inventory",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(statusCmd)
}

// statusReport summarizes the stored state.
type statusReport struct {
	Scans         int    `json:"scans"`
	FailedScans   int    `json:"failedScans"`
	QueueMappings int    `json:"queueMappings"`
	ResolverMode  string `json:"resolverMode"`
}

func runStatus(cmd *cobra.Command, args []string) {
	e, err := openEnv()
	if err != nil {
		fatal("Error: %v", err)
	}
	defer e.Close()

	report := statusReport{ResolverMode: e.cfg.ResolverMode()}

	scanStore := storage.NewScanStore(e.db)
	failureStore := storage.NewFailureStore(e.db)

	if report.Scans, err = scanStore.Count(); err != nil {
		fatal("Error counting scans: %v", err)
	}
	if report.FailedScans, err = failureStore.Count(); err != nil {
		fatal("Error counting failures: %v", err)
	}
	if report.QueueMappings, err = e.queues.Count(); err != nil {
		fatal("Error counting queue mappings: %v", err)
	}

	if statusFormat == "json" {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fatal("Error encoding status: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	fmt.Printf("Scans:          %d\n", report.Scans)
	fmt.Printf("Failed scans:   %d\n", report.FailedScans)
	fmt.Printf("Queue mappings: %d\n", report.QueueMappings)
	fmt.Printf("Resolver mode:  %s\n", report.ResolverMode)
}
