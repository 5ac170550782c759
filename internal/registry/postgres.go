package registry

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

const schema = `
CREATE TABLE IF NOT EXISTS guardian_students (
	id SERIAL PRIMARY KEY,
	sender_id TEXT NOT NULL,
	student_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (sender_id, student_id)
);
CREATE INDEX IF NOT EXISTS idx_guardian_students_sender ON guardian_students (sender_id);
`

// PostgresRegistry stores guardian-student relations in PostgreSQL, for
// deployments where the bot does not own its local filesystem.
type PostgresRegistry struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresRegistry(config DatabaseConfig, logger *zap.Logger) (*PostgresRegistry, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return &PostgresRegistry{db: db, logger: logger}, nil
}

func (r *PostgresRegistry) ListStudents(senderID string) []string {
	query := `
		SELECT student_id FROM guardian_students
		WHERE sender_id = $1
		ORDER BY id`

	rows, err := r.db.Query(query, senderID)
	if err != nil {
		r.logger.Error("Failed to list students",
			zap.Error(err),
			zap.String("sender", senderID))
		return nil
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			r.logger.Error("Failed to scan student id", zap.Error(err))
			return nil
		}
		ids = append(ids, id)
	}
	return ids
}

func (r *PostgresRegistry) AddRelation(senderID, studentID string) error {
	query := `
		INSERT INTO guardian_students (sender_id, student_id)
		VALUES ($1, $2)
		ON CONFLICT (sender_id, student_id) DO NOTHING`

	if _, err := r.db.Exec(query, senderID, studentID); err != nil {
		return fmt.Errorf("error adding relation: %v", err)
	}
	return nil
}

func (r *PostgresRegistry) RemoveRelation(senderID, studentID string) bool {
	query := `
		DELETE FROM guardian_students
		WHERE sender_id = $1 AND student_id = $2`

	result, err := r.db.Exec(query, senderID, studentID)
	if err != nil {
		r.logger.Error("Failed to remove relation",
			zap.Error(err),
			zap.String("sender", senderID),
			zap.String("student", studentID))
		return false
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false
	}
	return affected > 0
}

func (r *PostgresRegistry) Close() error {
	return r.db.Close()
}
