package storage

import (
	"fmt"
	"time"
)

// RecordSearch stores one search event.
func (s *SQLiteStorage) RecordSearch(search SearchRecord) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO search_history (search_id, query_hash, timestamp, result_limit, results_count, strategy, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		search.SearchID,
		search.QueryHash,
		search.Timestamp.UTC().Format(time.RFC3339),
		search.Limit,
		search.ResultsCount,
		search.Strategy,
		search.DurationMs,
	)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to record search")
	}

	return nil
}

// SearchHistory returns search events newer than since, most recent first.
// A non-positive limit returns every matching row.
func (s *SQLiteStorage) SearchHistory(since time.Time, limit int) ([]SearchRecord, error) {
	if !s.enabled || s.db == nil {
		return []SearchRecord{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.Query(`
		SELECT search_id, query_hash, timestamp, result_limit, results_count, strategy, duration_ms
		FROM search_history
		WHERE timestamp >= ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, since.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query search history: %w", err)
	}
	defer rows.Close()

	records := []SearchRecord{}
	for rows.Next() {
		var rec SearchRecord
		var ts string
		if err := rows.Scan(&rec.SearchID, &rec.QueryHash, &ts, &rec.Limit, &rec.ResultsCount, &rec.Strategy, &rec.DurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan search history row: %w", err)
		}
		rec.Timestamp, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			s.logger.Warn().Err(err).Str("timestamp", ts).Msg("unparseable search timestamp")
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Cleanup removes search history older than retention and compacts the file.
func (s *SQLiteStorage) Cleanup(retention time.Duration) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339)

	if _, err := s.db.Exec("DELETE FROM search_history WHERE timestamp < ?", cutoff); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cleanup search_history")
	}

	if _, err := s.db.Exec("VACUUM"); err != nil {
		s.logger.Warn().Err(err).Msg("failed to vacuum database")
	}

	return nil
}
