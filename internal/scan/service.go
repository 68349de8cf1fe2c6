package scan

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"codesnap/internal/errors"
	"codesnap/internal/logging"
	"codesnap/internal/storage"
)

// StoredScan is one loaded scan with the metadata the build needs.
type StoredScan struct {
	ServiceID     string
	GitCommitHash string
	IsUIService   bool
	// ServiceDependencies is the stored comma-separated dependency list.
	ServiceDependencies string
	Data                *ProcessedScan
}

// Service orchestrates the scan workflow: processing and storing new scans,
// recording failures, and loading scan sets for snapshot builds.
type Service struct {
	factory  *RecordFactory
	scans    *storage.ScanStore
	failures *storage.FailureStore
	logger   *logging.Logger
}

// NewService wires a scan service over the given stores.
func NewService(factory *RecordFactory, scans *storage.ScanStore,
	failures *storage.FailureStore, logger *logging.Logger) *Service {
	return &Service{
		factory:  factory,
		scans:    scans,
		failures: failures,
		logger:   logger,
	}
}

// ProcessAndStore processes a raw scan and stores it. An existing scan for
// the same (service, commit) pair is replaced, and any failure record for the
// pair is cleared since the scan is now successful.
func (s *Service) ProcessAndStore(raw *RawScan, gitCommitHash string) (*storage.ScanRecord, error) {
	record, err := s.factory.CreateRecord(raw, gitCommitHash)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Storing scan", map[string]interface{}{
		"service": record.ServiceID,
		"commit":  record.GitCommitHash,
	})

	replaced, err := s.scans.DeleteByServiceAndCommit(record.ServiceID, record.GitCommitHash)
	if err != nil {
		return nil, errors.Wrap(errors.StorageError, "failed to replace existing scan", err)
	}
	if replaced {
		s.logger.Info("Replaced existing scan", map[string]interface{}{
			"service": record.ServiceID,
			"commit":  record.GitCommitHash,
		})
	}

	cleared, err := s.failures.DeleteByServiceAndCommit(record.ServiceID, record.GitCommitHash)
	if err != nil {
		return nil, errors.Wrap(errors.StorageError, "failed to clear failure record", err)
	}
	if cleared {
		s.logger.Info("Cleared previous failure record", map[string]interface{}{
			"service": record.ServiceID,
			"commit":  record.GitCommitHash,
		})
	}

	if err := s.scans.Insert(record); err != nil {
		return nil, errors.Wrap(errors.StorageError, "failed to store scan", err)
	}

	return record, nil
}

// RecordFailure stores a failed scan attempt. Any successful scan and any
// prior failure for the pair are removed first.
func (s *Service) RecordFailure(serviceID, gitCommitHash, groupID, version,
	errorType, errorMessage string, cause error) (*storage.FailureRecord, error) {

	if strings.TrimSpace(serviceID) == "" || strings.TrimSpace(gitCommitHash) == "" {
		return nil, errors.New(errors.InvalidInput, "service id and commit hash are required")
	}
	if !storage.KnownErrorType(errorType) {
		errorType = storage.ErrorTypeUnknown
	}

	s.logger.Warn("Recording scan failure", map[string]interface{}{
		"service": serviceID,
		"commit":  gitCommitHash,
		"error":   errorMessage,
	})

	if _, err := s.scans.DeleteByServiceAndCommit(serviceID, gitCommitHash); err != nil {
		return nil, errors.Wrap(errors.StorageError, "failed to clear scan record", err)
	}
	if _, err := s.failures.DeleteByServiceAndCommit(serviceID, gitCommitHash); err != nil {
		return nil, errors.Wrap(errors.StorageError, "failed to replace failure record", err)
	}

	record := &storage.FailureRecord{
		FailureID:        uuid.New().String(),
		ServiceID:        serviceID,
		GitCommitHash:    gitCommitHash,
		FailureTimestamp: time.Now().UTC(),
		GroupID:          groupID,
		Version:          version,
		ErrorType:        errorType,
		ErrorMessage:     errorMessage,
	}
	if cause != nil {
		record.StackTrace = cause.Error()
	}

	if err := s.failures.Insert(record); err != nil {
		return nil, errors.Wrap(errors.StorageError, "failed to store failure record", err)
	}

	return record, nil
}

// HasFailedScan reports whether a failure is recorded for the pair.
func (s *Service) HasFailedScan(serviceID, gitCommitHash string) (bool, error) {
	return s.failures.ExistsByServiceAndCommit(serviceID, gitCommitHash)
}

// ClearFailure removes a failure record, returning true when one existed.
func (s *Service) ClearFailure(serviceID, gitCommitHash string) (bool, error) {
	return s.failures.DeleteByServiceAndCommit(serviceID, gitCommitHash)
}

// FindFailedScans returns the failure records among the given pairs.
func (s *Service) FindFailedScans(pairs []storage.ServiceCommit) ([]*storage.FailureRecord, error) {
	records, err := s.failures.FindByPairs(pairs)
	if err != nil {
		return nil, errors.Wrap(errors.StorageError, "failed to look up failed scans", err)
	}
	return records, nil
}

// LoadScansForBuild loads the stored scans for the given pairs, keyed by
// service id. Every requested pair must be present; missing pairs fail the
// build with MissingScan.
func (s *Service) LoadScansForBuild(pairs []storage.ServiceCommit) (map[string]*StoredScan, error) {
	s.logger.Info("Loading scans for build", map[string]interface{}{
		"services": len(pairs),
	})

	records, err := s.scans.FindByPairs(pairs)
	if err != nil {
		return nil, errors.Wrap(errors.StorageError, "failed to load scans", err)
	}

	found := map[string]bool{}
	for _, rec := range records {
		found[rec.ServiceID+"@"+rec.GitCommitHash] = true
	}

	var missing []string
	for _, pair := range pairs {
		if !found[pair.String()] {
			missing = append(missing, pair.String())
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, errors.Newf(errors.MissingScan,
			"missing scans for services: %s", strings.Join(missing, ", "))
	}

	result := make(map[string]*StoredScan, len(records))
	for _, rec := range records {
		var data ProcessedScan
		if err := json.Unmarshal(rec.ScanData, &data); err != nil {
			return nil, errors.Wrap(errors.ScanParseError,
				fmt.Sprintf("failed to parse scan data for %s@%s", rec.ServiceID, rec.GitCommitHash), err)
		}
		result[rec.ServiceID] = &StoredScan{
			ServiceID:           rec.ServiceID,
			GitCommitHash:       rec.GitCommitHash,
			IsUIService:         rec.IsUIService,
			ServiceDependencies: rec.ServiceDependencies,
			Data:                &data,
		}
	}

	return result, nil
}
