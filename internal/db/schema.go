package db

import (
	"context"
	"fmt"
)

// EnsureSchema creates the users table (keyed by email) and the tasks table
// (keyed by user id) when they do not exist yet.
func EnsureSchema(ctx context.Context, s *Store) error {
	for _, stmt := range schemaStatements(s.Tables) {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func schemaStatements(t Tables) []string {
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%[1]s` ("+
			"email VARCHAR(254) NOT NULL, "+
			"id CHAR(36) NOT NULL, "+
			"password_digest VARCHAR(255) NOT NULL, "+
			"name VARCHAR(255) NULL, "+
			"created_at DATETIME(6) NOT NULL, "+
			"updated_at DATETIME(6) NOT NULL, "+
			"PRIMARY KEY (email), "+
			"UNIQUE KEY uq_%[1]s_id (id)"+
			") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4", t.Users),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%[1]s` ("+
			"user_id CHAR(36) NOT NULL, "+
			"id CHAR(36) NOT NULL, "+
			"title VARCHAR(500) NOT NULL, "+
			"status VARCHAR(32) NOT NULL, "+
			"created_at DATETIME(6) NOT NULL, "+
			"updated_at DATETIME(6) NOT NULL, "+
			"PRIMARY KEY (user_id, id), "+
			"KEY idx_%[1]s_created (user_id, created_at)"+
			") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4", t.Tasks),
	}
}
