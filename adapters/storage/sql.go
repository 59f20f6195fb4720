package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/elum-utils/wordfilter/models"
)

const (
	defaultRulesTable    = "WordFilter"
	defaultWarningsTable = "WordFilterWarnings"
)

// SQLAdapter is a generic SQL storage implementation. Upserts use REPLACE
// INTO, which MySQL and SQLite both understand.
type SQLAdapter struct {
	db       *sql.DB
	rules    string
	warnings string
}

// NewSQLAdapter creates an adapter over *sql.DB. Empty table names fall
// back to WordFilter and WordFilterWarnings.
func NewSQLAdapter(db *sql.DB, rulesTable, warningsTable string) (*SQLAdapter, error) {
	if db == nil {
		return nil, errors.New("storage: db is nil")
	}
	if strings.TrimSpace(rulesTable) == "" {
		rulesTable = defaultRulesTable
	}
	if strings.TrimSpace(warningsTable) == "" {
		warningsTable = defaultWarningsTable
	}
	return &SQLAdapter{db: db, rules: rulesTable, warnings: warningsTable}, nil
}

// EnsureSchema creates both tables if missing.
func (s *SQLAdapter) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (Word VARCHAR(255) PRIMARY KEY, Replacement VARCHAR(255))`, s.rules)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return err
	}
	q = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (UUID VARCHAR(128) PRIMARY KEY, PlayerName VARCHAR(255), WarningCount INT NOT NULL DEFAULT 0, LastWarningTime DATETIME)`, s.warnings)
	_, err := s.db.ExecContext(ctx, q)
	return err
}

func (s *SQLAdapter) UpsertRule(ctx context.Context, rule models.Rule) error {
	q := fmt.Sprintf(`REPLACE INTO %s (Word, Replacement) VALUES (?, ?)`, s.rules)
	_, err := s.db.ExecContext(ctx, q, rule.Word, rule.Replacement)
	return err
}

func (s *SQLAdapter) DeleteRule(ctx context.Context, word string) error {
	q := fmt.Sprintf(`DELETE FROM %s WHERE Word = ?`, s.rules)
	_, err := s.db.ExecContext(ctx, q, word)
	return err
}

func (s *SQLAdapter) GetRules(ctx context.Context) ([]models.Rule, error) {
	q := fmt.Sprintf(`SELECT Word, Replacement FROM %s ORDER BY Word`, s.rules)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Rule, 0, 64)
	for rows.Next() {
		var word string
		var repl sql.NullString
		if scanErr := rows.Scan(&word, &repl); scanErr != nil {
			return nil, scanErr
		}
		out = append(out, models.Rule{Word: word, Replacement: repl.String})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLAdapter) UpsertWarning(ctx context.Context, w models.PlayerWarning) error {
	q := fmt.Sprintf(`REPLACE INTO %s (UUID, PlayerName, WarningCount, LastWarningTime) VALUES (?, ?, ?, ?)`, s.warnings)
	var last sql.NullTime
	if !w.LastWarning.IsZero() {
		last = sql.NullTime{Time: w.LastWarning, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, q, w.PlayerID, w.PlayerName, w.Count, last)
	return err
}

func (s *SQLAdapter) GetWarning(ctx context.Context, playerID string) (models.PlayerWarning, bool, error) {
	q := fmt.Sprintf(`SELECT UUID, PlayerName, WarningCount, LastWarningTime FROM %s WHERE UUID = ? LIMIT 1`, s.warnings)
	w, err := scanWarning(s.db.QueryRowContext(ctx, q, playerID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.PlayerWarning{}, false, nil
	}
	if err != nil {
		return models.PlayerWarning{}, false, err
	}
	return w, true, nil
}

// GetWarnings skips rows that fail to scan and reports them in an error
// wrapping models.ErrMalformedRecord alongside the rows it could read.
func (s *SQLAdapter) GetWarnings(ctx context.Context) ([]models.PlayerWarning, error) {
	q := fmt.Sprintf(`SELECT UUID, PlayerName, WarningCount, LastWarningTime FROM %s`, s.warnings)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.PlayerWarning, 0, 64)
	var bad []error
	for rows.Next() {
		w, scanErr := scanWarning(rows)
		if scanErr != nil {
			bad = append(bad, scanErr)
			continue
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(bad) > 0 {
		return out, fmt.Errorf("%w: %d rows: %v", models.ErrMalformedRecord, len(bad), errors.Join(bad...))
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWarning(row rowScanner) (models.PlayerWarning, error) {
	var (
		id    string
		name  sql.NullString
		count sql.NullInt64
		last  sql.NullTime
	)
	if err := row.Scan(&id, &name, &count, &last); err != nil {
		return models.PlayerWarning{}, err
	}
	w := models.PlayerWarning{
		PlayerID:   id,
		PlayerName: name.String,
		Count:      int(count.Int64),
	}
	if last.Valid {
		w.LastWarning = last.Time
	}
	return w, nil
}
