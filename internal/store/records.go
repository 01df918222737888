package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/DivyanshMauryaaa/testgem/internal/util"
)

// RecordStore reads and writes the three record tables. Every owner-facing
// query is scoped by user_id.
type RecordStore struct {
	db *DB
}

func NewRecordStore(db *DB) *RecordStore {
	return &RecordStore{db: db}
}

func (s *RecordStore) DB() *DB {
	return s.db
}

func (s *RecordStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *RecordStore) table(kind Kind) (string, error) {
	table := kind.Table()
	if table == "" {
		return "", fmt.Errorf("unknown record kind %q", kind)
	}
	return table, nil
}

func (s *RecordStore) ListByOwner(ctx context.Context, kind Kind, userID string) ([]Record, error) {
	table, err := s.table(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(fmt.Sprintf(`
		SELECT id, title, content, user_id
		FROM %s
		WHERE user_id=$1
		ORDER BY created_at, id
	`, table)), userID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return scanRecords(rows, kind)
}

// ListAll returns every row of a kind regardless of owner. Used for reindexing only.
func (s *RecordStore) ListAll(ctx context.Context, kind Kind) ([]Record, error) {
	table, err := s.table(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, title, content, user_id FROM %s ORDER BY created_at, id`, table))
	if err != nil {
		return nil, fmt.Errorf("list all %s: %w", kind, err)
	}
	return scanRecords(rows, kind)
}

func (s *RecordStore) Get(ctx context.Context, kind Kind, id, userID string) (Record, error) {
	table, err := s.table(kind)
	if err != nil {
		return Record{}, err
	}
	item := Record{Kind: kind}
	err = s.db.QueryRowContext(ctx, s.db.Rebind(fmt.Sprintf(`
		SELECT id, title, content, user_id
		FROM %s
		WHERE id=$1 AND user_id=$2
	`, table)), id, userID).Scan(&item.ID, &item.Title, &item.Content, &item.UserID)
	if err != nil {
		return Record{}, err
	}
	return item, nil
}

func (s *RecordStore) Insert(ctx context.Context, item Record) (Record, error) {
	table, err := s.table(item.Kind)
	if err != nil {
		return Record{}, err
	}
	if item.ID == "" {
		item.ID = util.NewID("")
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(fmt.Sprintf(`
		INSERT INTO %s (id, title, content, user_id)
		VALUES ($1, $2, $3, $4)
	`, table)), item.ID, item.Title, item.Content, item.UserID)
	if err != nil {
		return Record{}, fmt.Errorf("insert %s: %w", item.Kind, err)
	}
	return item, nil
}

func (s *RecordStore) UpdateTitle(ctx context.Context, kind Kind, id, userID, title string) error {
	return s.updateField(ctx, kind, "title", id, userID, title)
}

func (s *RecordStore) UpdateContent(ctx context.Context, kind Kind, id, userID, content string) error {
	return s.updateField(ctx, kind, "content", id, userID, content)
}

func (s *RecordStore) updateField(ctx context.Context, kind Kind, column, id, userID, value string) error {
	table, err := s.table(kind)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, s.db.Rebind(fmt.Sprintf(`
		UPDATE %s SET %s=$1, updated_at=CURRENT_TIMESTAMP
		WHERE id=$2 AND user_id=$3
	`, table, column)), value, id, userID)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", kind, column, err)
	}
	return requireAffected(result)
}

func (s *RecordStore) Delete(ctx context.Context, kind Kind, id, userID string) error {
	table, err := s.table(kind)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, s.db.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE id=$1 AND user_id=$2`, table)), id, userID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	return requireAffected(result)
}

// SearchByOwner is a case-insensitive substring match over title and content.
// An empty kind searches every kind.
func (s *RecordStore) SearchByOwner(ctx context.Context, userID string, kind Kind, text string, limit int) ([]Record, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []Record{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	kinds := Kinds
	if kind != "" {
		kinds = []Kind{kind}
	}

	pattern := "%" + strings.ToLower(text) + "%"
	results := make([]Record, 0)
	for _, k := range kinds {
		if len(results) >= limit {
			break
		}
		table, err := s.table(k)
		if err != nil {
			return nil, err
		}
		rows, err := s.db.QueryContext(ctx, s.db.Rebind(fmt.Sprintf(`
			SELECT id, title, content, user_id
			FROM %s
			WHERE user_id=$1 AND (LOWER(title) LIKE $2 OR LOWER(content) LIKE $2)
			ORDER BY created_at, id
			LIMIT $3
		`, table)), userID, pattern, limit-len(results))
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", k, err)
		}
		items, err := scanRecords(rows, k)
		if err != nil {
			return nil, err
		}
		results = append(results, items...)
	}
	return results, nil
}

func scanRecords(rows *sql.Rows, kind Kind) ([]Record, error) {
	defer rows.Close()

	items := make([]Record, 0)
	for rows.Next() {
		item := Record{Kind: kind}
		if err := rows.Scan(&item.ID, &item.Title, &item.Content, &item.UserID); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}
	return items, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
