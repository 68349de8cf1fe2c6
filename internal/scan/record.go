package scan

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"codesnap/internal/errors"
	"codesnap/internal/storage"
)

// dependencyArtifactPattern extracts the artifact id out of a
// "group:artifact:version" dependency coordinate.
var dependencyArtifactPattern = regexp.MustCompile(`^[^:]+:([^:]+):`)

// RecordFactory turns raw scans into storable scan records.
type RecordFactory struct {
	processor *Processor
}

// NewRecordFactory creates a factory around the given processor.
func NewRecordFactory(processor *Processor) *RecordFactory {
	return &RecordFactory{processor: processor}
}

// CreateRecord processes a raw scan and packages it as a scan record for the
// given commit.
func (f *RecordFactory) CreateRecord(raw *RawScan, gitCommitHash string) (*storage.ScanRecord, error) {
	if raw == nil {
		return nil, errors.New(errors.InvalidInput, "raw scan is required")
	}
	if strings.TrimSpace(gitCommitHash) == "" {
		return nil, errors.New(errors.InvalidInput, "git commit hash is required")
	}

	processed, err := f.processor.Process(raw)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(processed)
	if err != nil {
		return nil, errors.Wrap(errors.ScanParseError, "failed to serialize processed scan", err)
	}

	return &storage.ScanRecord{
		ScanID:              uuid.New().String(),
		ServiceID:           raw.ArtifactID,
		GitCommitHash:       gitCommitHash,
		ScanTimestamp:       time.Now().UTC(),
		IsUIService:         raw.IsUIService,
		GroupID:             raw.GroupID,
		Version:             raw.Version,
		ServiceDependencies: extractServiceDependencies(raw.ServiceDependencies),
		ScanData:            data,
	}, nil
}

// extractServiceDependencies reduces dependency coordinates to a
// comma-separated list of artifact ids. Coordinates that don't parse are
// dropped.
func extractServiceDependencies(deps []string) string {
	var ids []string
	for _, dep := range deps {
		if strings.TrimSpace(dep) == "" {
			continue
		}
		m := dependencyArtifactPattern.FindStringSubmatch(dep)
		if m == nil {
			continue
		}
		ids = append(ids, m[1])
	}
	return strings.Join(ids, ",")
}

// ParseServiceDependencies splits a stored comma-separated dependency list
// into service ids, trimming whitespace and dropping empties.
func ParseServiceDependencies(serviceDependencies string) []string {
	if strings.TrimSpace(serviceDependencies) == "" {
		return nil
	}
	var ids []string
	for _, part := range strings.Split(serviceDependencies, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}
