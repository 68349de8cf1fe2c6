package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// ServiceCommit identifies one scanned revision of one service.
type ServiceCommit struct {
	ServiceID     string
	GitCommitHash string
}

func (sc ServiceCommit) String() string {
	return sc.ServiceID + "@" + sc.GitCommitHash
}

// ScanRecord is one stored processed scan. ScanData is the uncompressed
// JSON payload; compression is handled inside the store.
type ScanRecord struct {
	ScanID        string
	ServiceID     string
	GitCommitHash string
	ScanTimestamp time.Time
	IsUIService   bool
	GroupID       string
	Version       string
	// ServiceDependencies is a comma-separated list of service ids the
	// scanned project declared as dependencies.
	ServiceDependencies string
	ScanData            []byte
}

// ScanStore persists processed service scans.
type ScanStore struct {
	db *DB
}

// NewScanStore creates a scan store over the given database.
func NewScanStore(db *DB) *ScanStore {
	return &ScanStore{db: db}
}

const scanColumns = `scan_id, service_id, git_commit_hash, scan_timestamp,
	is_ui_service, group_id, version, service_dependencies, scan_data`

// Insert stores a new scan record.
func (s *ScanStore) Insert(rec *ScanRecord) error {
	if rec == nil {
		return fmt.Errorf("scan record is nil")
	}
	if rec.ScanID == "" || rec.ServiceID == "" || rec.GitCommitHash == "" {
		return fmt.Errorf("scan record missing required fields")
	}

	_, err := s.db.Exec(`
		INSERT INTO service_scan (`+scanColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ScanID,
		rec.ServiceID,
		rec.GitCommitHash,
		rec.ScanTimestamp.UTC(),
		boolToInt(rec.IsUIService),
		nullable(rec.GroupID),
		nullable(rec.Version),
		nullable(rec.ServiceDependencies),
		compressBlob(rec.ScanData),
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan for %s@%s: %w",
			rec.ServiceID, rec.GitCommitHash, err)
	}
	return nil
}

// FindByServiceAndCommit returns the scan for a pair, or nil when absent.
func (s *ScanStore) FindByServiceAndCommit(serviceID, commit string) (*ScanRecord, error) {
	row := s.db.QueryRow(`
		SELECT `+scanColumns+`
		FROM service_scan
		WHERE service_id = ? AND git_commit_hash = ?`,
		serviceID, commit)
	return scanScanRow(row.Scan)
}

// FindByScanID returns the scan with the given id, or nil when absent.
func (s *ScanStore) FindByScanID(scanID string) (*ScanRecord, error) {
	row := s.db.QueryRow(`
		SELECT `+scanColumns+`
		FROM service_scan
		WHERE scan_id = ?`,
		scanID)
	return scanScanRow(row.Scan)
}

// FindByPairs returns all stored scans matching the given pairs. Pairs with
// no stored scan are simply absent from the result.
func (s *ScanStore) FindByPairs(pairs []ServiceCommit) ([]*ScanRecord, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	query, args := pairsQuery(`
		SELECT `+scanColumns+`
		FROM service_scan
		WHERE `, pairs)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var records []*ScanRecord
	for rows.Next() {
		rec, err := scanScanRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ExistsByServiceAndCommit reports whether a scan exists for the pair.
func (s *ScanStore) ExistsByServiceAndCommit(serviceID, commit string) (bool, error) {
	var one int
	err := s.db.QueryRow(`
		SELECT 1 FROM service_scan
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

// DeleteByServiceAndCommit removes the scan for a pair. Returns true when a
// record was deleted.
func (s *ScanStore) DeleteByServiceAndCommit(serviceID, commit string) (bool, error) {
	res, err := s.db.Exec(`
		DELETE FROM service_scan
		WHERE service_id = ? AND git_commit_hash = ?`,
		serviceID, commit)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Count returns the number of stored scans.
func (s *ScanStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM service_scan").Scan(&n)
	return n, err
}

func scanScanRow(scan func(dest ...interface{}) error) (*ScanRecord, error) {
	var rec ScanRecord
	var isUI int
	var groupID, version, deps sql.NullString
	var blob []byte

	err := scan(
		&rec.ScanID,
		&rec.ServiceID,
		&rec.GitCommitHash,
		&rec.ScanTimestamp,
		&isUI,
		&groupID,
		&version,
		&deps,
		&blob,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read scan row: %w", err)
	}

	rec.IsUIService = isUI != 0
	rec.GroupID = groupID.String
	rec.Version = version.String
	rec.ServiceDependencies = deps.String

	rec.ScanData, err = decompressBlob(blob)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// pairsQuery appends an OR'd (service_id, git_commit_hash) predicate for
// every pair to the given query prefix.
func pairsQuery(prefix string, pairs []ServiceCommit) (string, []interface{}) {
	clauses := make([]string, 0, len(pairs))
	args := make([]interface{}, 0, len(pairs)*2)
	for _, p := range pairs {
		clauses = append(clauses, "(service_id = ? AND git_commit_hash = ?)")
		args = append(args, p.ServiceID, p.GitCommitHash)
	}
	return prefix + strings.Join(clauses, " OR "), args
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
