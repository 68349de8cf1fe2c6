package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"codesnap/internal/storage"
)

var (
	failureService   string
	failureCommit    string
	failureGroupID   string
	failureVersion   string
	failureErrorType string
	failureMessage   string
)

var recordFailureCmd = &cobra.Command{
	Use:   "record-failure",
	Short: "Record a failed service scan",
	Long: `Record that scanning a service at a commit failed. Builds that include the
pair will exclude the service and report it among the failed services. Any
successful scan stored for the pair is removed.`,
	Run: runRecordFailure,
}

func init() {
	recordFailureCmd.Flags().StringVar(&failureService, "service", "", "Service artifact id (required)")
	recordFailureCmd.Flags().StringVar(&failureCommit, "commit", "", "Git commit hash (required)")
	recordFailureCmd.Flags().StringVar(&failureGroupID, "group-id", "", "Maven group id")
	recordFailureCmd.Flags().StringVar(&failureVersion, "version", "", "Artifact version")
	recordFailureCmd.Flags().StringVar(&failureErrorType, "error-type", storage.ErrorTypeUnknown,
		"Error type (SCAN_ERROR, PARSE_ERROR, CODE_VIOLATION, PROCESSING_ERROR, UNKNOWN)")
	recordFailureCmd.Flags().StringVar(&failureMessage, "message", "", "Brief error message")
	_ = recordFailureCmd.MarkFlagRequired("service")
	_ = recordFailureCmd.MarkFlagRequired("commit")
	rootCmd.AddCommand(recordFailureCmd)
}

func runRecordFailure(cmd *cobra.Command, args []string) {
	e, err := openEnv()
	if err != nil {
		fatal("Error: %v", err)
	}
	defer e.Close()

	record, err := e.scans.RecordFailure(failureService, failureCommit,
		failureGroupID, failureVersion, failureErrorType, failureMessage, nil)
	if err != nil {
		fatal("Error recording failure: %v", err)
	}

	fmt.Printf("Recorded failure %s for %s@%s (%s)\n",
		record.FailureID, record.ServiceID, record.GitCommitHash, record.ErrorType)
}
