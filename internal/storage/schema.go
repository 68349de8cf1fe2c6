package storage

import (
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}

		if err := createServiceScanTable(tx); err != nil {
			return err
		}
		if err := createFailedServiceScanTable(tx); err != nil {
			return err
		}
		if err := createQueueMappingTable(tx); err != nil {
			return err
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})

		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		return nil
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d",
			version, currentSchemaVersion)
	}

	db.logger.Info("Running database migrations", map[string]interface{}{
		"from_version": version,
		"to_version":   currentSchemaVersion,
	})

	// Migrations run sequentially as the schema evolves.
	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// service_scan holds one processed scan per (service, commit). The scan_data
// column is the zstd-compressed JSON of the processed scan.
func createServiceScanTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE service_scan (
			scan_id              TEXT PRIMARY KEY,
			service_id           TEXT NOT NULL,
			git_commit_hash      TEXT NOT NULL,
			scan_timestamp       TIMESTAMP NOT NULL,
			is_ui_service        INTEGER NOT NULL DEFAULT 0,
			group_id             TEXT,
			version              TEXT,
			service_dependencies TEXT,
			scan_data            BLOB NOT NULL,
			UNIQUE (service_id, git_commit_hash)
		)
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE INDEX idx_service_scan_service
		ON service_scan (service_id, git_commit_hash)
	`)
	return err
}

func createFailedServiceScanTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE failed_service_scan (
			failure_id        TEXT PRIMARY KEY,
			service_id        TEXT NOT NULL,
			git_commit_hash   TEXT NOT NULL,
			failure_timestamp TIMESTAMP NOT NULL,
			group_id          TEXT,
			version           TEXT,
			error_type        TEXT NOT NULL,
			error_message     TEXT,
			stack_trace       TEXT,
			UNIQUE (service_id, git_commit_hash)
		)
	`)
	return err
}

func createQueueMappingTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE queue_mapping (
			queue_name  TEXT PRIMARY KEY,
			target_type TEXT NOT NULL CHECK (target_type IN ('FUNCTION', 'TOPIC')),
			target_name TEXT NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE INDEX idx_queue_mapping_target
		ON queue_mapping (target_type, target_name)
	`)
	return err
}
