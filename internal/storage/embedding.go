package storage

import (
	"time"
)

// SaveEmbedding persists a vector under key for a model version.
// Failures are logged and swallowed; the in-memory cache still holds the vector.
func (s *SQLiteStorage) SaveEmbedding(key string, vector []float32, version string) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	vectorJSON, err := vectorToJSON(vector)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to save embedding")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO embeddings (text_hash, version, vector, created_at)
		VALUES (?, ?, ?, ?)
	`, key, version, vectorJSON, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to save embedding")
	}

	return nil
}

// GetEmbedding loads the most recent vector stored under key.
// A missing row returns a nil vector and no error.
func (s *SQLiteStorage) GetEmbedding(key string) ([]float32, string, error) {
	if !s.enabled || s.db == nil {
		return nil, "", nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT vector, version
		FROM embeddings
		WHERE text_hash = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to query embedding")
		return nil, "", nil
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, "", nil
	}

	var vectorJSON, version string
	if err := rows.Scan(&vectorJSON, &version); err != nil {
		s.logger.Warn().Err(err).Msg("failed to scan embedding")
		return nil, "", nil
	}

	vector, err := jsonToVector(vectorJSON)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to parse embedding vector")
		return nil, "", nil
	}

	return vector, version, nil
}
