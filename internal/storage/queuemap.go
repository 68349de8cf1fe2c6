package storage

import (
	"database/sql"
	"fmt"
)

// Queue mapping target types.
const (
	TargetTypeFunction = "FUNCTION"
	TargetTypeTopic    = "TOPIC"
)

// QueueMapping maps an external queue name to the function or topic it serves.
type QueueMapping struct {
	QueueName  string
	TargetType string
	TargetName string
}

// QueueMappingStore persists queue-name mappings.
type QueueMappingStore struct {
	db *DB
}

// NewQueueMappingStore creates a queue-mapping store over the given database.
func NewQueueMappingStore(db *DB) *QueueMappingStore {
	return &QueueMappingStore{db: db}
}

// FindQueueNameByTarget returns the queue name mapped to a target, or "" when
// no mapping exists.
func (s *QueueMappingStore) FindQueueNameByTarget(targetType, targetName string) (string, error) {
	if err := validateTargetType(targetType); err != nil {
		return "", err
	}

	var queueName string
	err := s.db.QueryRow(`
		SELECT queue_name FROM queue_mapping
		WHERE target_type = ? AND target_name = ?`,
		targetType, targetName).Scan(&queueName)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query queue mapping: %w", err)
	}
	return queueName, nil
}

// FindQueueNameForFunction returns the queue mapped to a function name.
func (s *QueueMappingStore) FindQueueNameForFunction(functionName string) (string, error) {
	return s.FindQueueNameByTarget(TargetTypeFunction, functionName)
}

// FindQueueNameForTopic returns the queue mapped to a topic name.
func (s *QueueMappingStore) FindQueueNameForTopic(topicName string) (string, error) {
	return s.FindQueueNameByTarget(TargetTypeTopic, topicName)
}

// FindByQueueName returns the mapping for a queue name, or nil when absent.
func (s *QueueMappingStore) FindByQueueName(queueName string) (*QueueMapping, error) {
	var m QueueMapping
	err := s.db.QueryRow(`
		SELECT queue_name, target_type, target_name FROM queue_mapping
		WHERE queue_name = ?`,
		queueName).Scan(&m.QueueName, &m.TargetType, &m.TargetName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query queue mapping: %w", err)
	}
	return &m, nil
}

// List returns all mappings ordered by queue name.
func (s *QueueMappingStore) List() ([]QueueMapping, error) {
	rows, err := s.db.Query(`
		SELECT queue_name, target_type, target_name FROM queue_mapping
		ORDER BY queue_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue mappings: %w", err)
	}
	defer rows.Close()

	var mappings []QueueMapping
	for rows.Next() {
		var m QueueMapping
		if err := rows.Scan(&m.QueueName, &m.TargetType, &m.TargetName); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// Insert stores a new mapping.
func (s *QueueMappingStore) Insert(queueName, targetType, targetName string) error {
	if err := validateTargetType(targetType); err != nil {
		return err
	}
	if queueName == "" || targetName == "" {
		return fmt.Errorf("queue name and target name are required")
	}

	_, err := s.db.Exec(`
		INSERT INTO queue_mapping (queue_name, target_type, target_name)
		VALUES (?, ?, ?)`,
		queueName, targetType, targetName)
	if err != nil {
		return fmt.Errorf("failed to insert queue mapping %q: %w", queueName, err)
	}
	return nil
}

// Upsert stores a mapping, replacing any existing row for the queue name.
func (s *QueueMappingStore) Upsert(queueName, targetType, targetName string) error {
	if err := validateTargetType(targetType); err != nil {
		return err
	}
	if queueName == "" || targetName == "" {
		return fmt.Errorf("queue name and target name are required")
	}

	_, err := s.db.Exec(`
		INSERT INTO queue_mapping (queue_name, target_type, target_name)
		VALUES (?, ?, ?)
		ON CONFLICT (queue_name) DO UPDATE
		SET target_type = excluded.target_type, target_name = excluded.target_name`,
		queueName, targetType, targetName)
	if err != nil {
		return fmt.Errorf("failed to upsert queue mapping %q: %w", queueName, err)
	}
	return nil
}

// Delete removes the mapping for a queue name. Returns true when a row was
// deleted.
func (s *QueueMappingStore) Delete(queueName string) (bool, error) {
	res, err := s.db.Exec("DELETE FROM queue_mapping WHERE queue_name = ?", queueName)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Count returns the number of stored mappings.
func (s *QueueMappingStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM queue_mapping").Scan(&n)
	return n, err
}

func validateTargetType(t string) error {
	if t != TargetTypeFunction && t != TargetTypeTopic {
		return fmt.Errorf("invalid target type %q (want FUNCTION or TOPIC)", t)
	}
	return nil
}
