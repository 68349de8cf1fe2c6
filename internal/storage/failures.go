package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Error types recorded for failed scans.
const (
	ErrorTypeScan       = "SCAN_ERROR"
	ErrorTypeParse      = "PARSE_ERROR"
	ErrorTypeViolation  = "CODE_VIOLATION"
	ErrorTypeProcessing = "PROCESSING_ERROR"
	ErrorTypeUnknown    = "UNKNOWN"
)

// KnownErrorType reports whether t is one of the recorded error types.
func KnownErrorType(t string) bool {
	switch t {
	case ErrorTypeScan, ErrorTypeParse, ErrorTypeViolation, ErrorTypeProcessing, ErrorTypeUnknown:
		return true
	}
	return false
}

// FailureRecord is one recorded scan failure.
type FailureRecord struct {
	FailureID        string
	ServiceID        string
	GitCommitHash    string
	FailureTimestamp time.Time
	GroupID          string
	Version          string
	ErrorType        string
	ErrorMessage     string
	StackTrace       string
}

// FailureStore persists failed-scan records.
type FailureStore struct {
	db *DB
}

// NewFailureStore creates a failure store over the given database.
func NewFailureStore(db *DB) *FailureStore {
	return &FailureStore{db: db}
}

const failureColumns = `failure_id, service_id, git_commit_hash, failure_timestamp,
	group_id, version, error_type, error_message, stack_trace`

// Insert stores a new failure record.
func (s *FailureStore) Insert(rec *FailureRecord) error {
	if rec == nil {
		return fmt.Errorf("failure record is nil")
	}
	if rec.FailureID == "" || rec.ServiceID == "" || rec.GitCommitHash == "" {
		return fmt.Errorf("failure record missing required fields")
	}

	_, err := s.db.Exec(`
		INSERT INTO failed_service_scan (`+failureColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.FailureID,
		rec.ServiceID,
		rec.GitCommitHash,
		rec.FailureTimestamp.UTC(),
		nullable(rec.GroupID),
		nullable(rec.Version),
		rec.ErrorType,
		nullable(rec.ErrorMessage),
		nullable(rec.StackTrace),
	)
	if err != nil {
		return fmt.Errorf("failed to insert failure for %s@%s: %w",
			rec.ServiceID, rec.GitCommitHash, err)
	}
	return nil
}

// FindByServiceAndCommit returns the failure for a pair, or nil when absent.
func (s *FailureStore) FindByServiceAndCommit(serviceID, commit string) (*FailureRecord, error) {
	row := s.db.QueryRow(`
		SELECT `+failureColumns+`
		FROM failed_service_scan
		WHERE service_id = ? AND git_commit_hash = ?`,
		serviceID, commit)
	return scanFailureRow(row.Scan)
}

// FindByPairs returns the failure records matching any of the given pairs.
func (s *FailureStore) FindByPairs(pairs []ServiceCommit) ([]*FailureRecord, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	query, args := pairsQuery(`
		SELECT `+failureColumns+`
		FROM failed_service_scan
		WHERE `, pairs)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query failures: %w", err)
	}
	defer rows.Close()

	var records []*FailureRecord
	for rows.Next() {
		rec, err := scanFailureRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ExistsByServiceAndCommit reports whether a failure exists for the pair.
func (s *FailureStore) ExistsByServiceAndCommit(serviceID, commit string) (bool, error) {
	var one int
	err := s.db.QueryRow(`
		SELECT 1 FROM failed_service_scan
		WHERE service_id = ? AND git_commit_hash = ?`,
		serviceID, commit).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteByServiceAndCommit removes the failure for a pair. Returns true when
// a record was deleted.
func (s *FailureStore) DeleteByServiceAndCommit(serviceID, commit string) (bool, error) {
	res, err := s.db.Exec(`
		DELETE FROM failed_service_scan
		WHERE service_id = ? AND git_commit_hash = ?`,
		serviceID, commit)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Count returns the number of recorded failures.
func (s *FailureStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM failed_service_scan").Scan(&n)
	return n, err
}

func scanFailureRow(scan func(dest ...interface{}) error) (*FailureRecord, error) {
	var rec FailureRecord
	var groupID, version, message, stack sql.NullString

	err := scan(
		&rec.FailureID,
		&rec.ServiceID,
		&rec.GitCommitHash,
		&rec.FailureTimestamp,
		&groupID,
		&version,
		&rec.ErrorType,
		&message,
		&stack,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read failure row: %w", err)
	}

	rec.GroupID = groupID.String
	rec.Version = version.String
	rec.ErrorMessage = message.String
	rec.StackTrace = stack.String
	return &rec, nil
}
