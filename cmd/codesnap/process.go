package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"codesnap/internal/scan"
)

var (
	processCommit string
)

var processCmd = &cobra.Command{
	Use:   "process <raw-scan.json>",
	Short: "Process and store a raw service scan",
	Long: `Parse a raw scanner artifact, transform it into its build-optimized form,
and store it for the given commit. An existing scan for the same service and
commit is replaced, and any recorded failure for the pair is cleared.`,
	Args: cobra.ExactArgs(1),
	Run:  runProcess,
}

func init() {
	processCmd.Flags().StringVar(&processCommit, "commit", "",
		"Git commit hash of the scanned source (required)")
	_ = processCmd.MarkFlagRequired("commit")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) {
	data, err := os.ReadFile(args[0])
	if err != nil {
		fatal("Error reading scan file: %v", err)
	}

	var raw scan.RawScan
	if err := json.Unmarshal(data, &raw); err != nil {
		fatal("Error parsing scan file: %v", err)
	}

	e, err := openEnv()
	if err != nil {
		fatal("Error: %v", err)
	}
	defer e.Close()

	record, err := e.scans.ProcessAndStore(&raw, processCommit)
	if err != nil {
		fatal("Error processing scan: %v", err)
	}

	fmt.Printf("Stored scan %s for %s@%s\n",
		record.ScanID, record.ServiceID, record.GitCommitHash)
}
