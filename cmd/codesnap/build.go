package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"codesnap/internal/snapshot"
)

var (
	buildRequestFile string
	buildOutputFile  string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Assemble an application dependency snapshot",
	Long: `Assemble the app template and function pool for the service revisions named
in a build request file (JSON or YAML):

  {
    "appName": "my-app",
    "services": [
      {"serviceId": "employee-service", "gitCommitHash": "3fa9c1d"}
    ]
  }

Services with recorded scan failures are excluded and reported; the snapshot
is then marked incomplete but still produced.`,
	Run: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildRequestFile, "file", "f", "",
		"Build request file, JSON or YAML (required)")
	buildCmd.Flags().StringVarP(&buildOutputFile, "output", "o", "",
		"Write the snapshot to a file instead of stdout")
	_ = buildCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) {
	request, err := readBuildRequest(buildRequestFile)
	if err != nil {
		fatal("Error reading build request: %v", err)
	}

	e, err := openEnv()
	if err != nil {
		fatal("Error: %v", err)
	}
	defer e.Close()

	assembler := snapshot.NewAssembler(e.scans, e.queueResolver(), e.logger)

	result, err := assembler.Build(context.Background(), request)
	if err != nil {
		fatal("Build failed: %v", err)
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fatal("Error encoding snapshot: %v", err)
	}

	if buildOutputFile != "" {
		if err := os.WriteFile(buildOutputFile, append(output, '\n'), 0644); err != nil {
			fatal("Error writing snapshot: %v", err)
		}
		return
	}
	fmt.Println(string(output))
}

func readBuildRequest(path string) (*snapshot.BuildRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var request snapshot.BuildRequest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &request); err != nil {
			return nil, fmt.Errorf("invalid YAML request: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &request); err != nil {
			return nil, fmt.Errorf("invalid JSON request: %w", err)
		}
	}
	return &request, nil
}
