package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// PostgresBackend keeps every collection in one JSONB table. Query
// conditions compile to SQL over the data column so filtering happens
// server side.
type PostgresBackend struct {
	db *sql.DB
}

func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    collection  TEXT        NOT NULL,
    id          TEXT        NOT NULL,
    data        JSONB       NOT NULL DEFAULT '{}'::jsonb,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_created_idx ON documents (collection, created_at DESC);
`

func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Insert(ctx context.Context, collection string, data map[string]any) (Doc, error) {
	norm := normalizeMap(data)
	raw, err := json.Marshal(norm)
	if err != nil {
		return Doc{}, fmt.Errorf("encode document: %w", err)
	}

	doc := Doc{ID: uuid.NewString(), Data: norm}
	err = b.db.QueryRowContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3) RETURNING created_at, updated_at`,
		collection, doc.ID, raw,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return Doc{}, fmt.Errorf("insert %s: %w", collection, err)
	}
	return doc, nil
}

func (b *PostgresBackend) Get(ctx context.Context, collection, id string) (Doc, bool, error) {
	doc, err := scanDoc(b.db.QueryRowContext(ctx,
		`SELECT id, data, created_at, updated_at FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	))
	if err == sql.ErrNoRows {
		return Doc{}, false, nil
	}
	if err != nil {
		return Doc{}, false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return doc, true, nil
}

func (b *PostgresBackend) List(ctx context.Context, collection string) ([]Doc, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT id, data, created_at, updated_at FROM documents WHERE collection = $1 ORDER BY created_at DESC`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()
	return collectDocs(rows)
}

func (b *PostgresBackend) Patch(ctx context.Context, collection, id string, fields map[string]any) (Doc, error) {
	raw, err := json.Marshal(normalizeMap(fields))
	if err != nil {
		return Doc{}, fmt.Errorf("encode patch: %w", err)
	}

	doc, err := scanDoc(b.db.QueryRowContext(ctx,
		`UPDATE documents
		    SET data = data || $3::jsonb, updated_at = now()
		  WHERE collection = $1 AND id = $2
		 RETURNING id, data, created_at, updated_at`,
		collection, id, raw,
	))
	if err == sql.ErrNoRows {
		return Doc{}, ErrNotFound
	}
	if err != nil {
		return Doc{}, fmt.Errorf("patch %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (b *PostgresBackend) Delete(ctx context.Context, collection, id string) error {
	if _, err := b.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id,
	); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (b *PostgresBackend) Query(ctx context.Context, collection string, conds []Condition) ([]Doc, error) {
	query := `SELECT id, data, created_at, updated_at FROM documents WHERE collection = $1`
	args := []any{collection}

	for _, cond := range conds {
		clause, clauseArgs, err := compileCondition(cond, len(args)+1)
		if err != nil {
			return nil, err
		}
		query += " AND " + clause
		args = append(args, clauseArgs...)
	}
	query += " ORDER BY created_at DESC"

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()
	return collectDocs(rows)
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

var sqlOps = map[Op]string{
	OpEq:  "=",
	OpNe:  "<>",
	OpGt:  ">",
	OpGte: ">=",
	OpLt:  "<",
	OpLte: "<=",
}

// compileCondition turns one condition into a SQL clause. next is the index
// of the first placeholder the clause may use.
func compileCondition(cond Condition, next int) (string, []any, error) {
	if cond.Op == OpContains {
		elem, err := json.Marshal([]any{normalizeValue(cond.Value)})
		if err != nil {
			return "", nil, fmt.Errorf("encode condition value: %w", err)
		}
		return fmt.Sprintf("data->$%d @> $%d::jsonb", next, next+1),
			[]any{cond.Field, string(elem)}, nil
	}

	op, ok := sqlOps[cond.Op]
	if !ok {
		return "", nil, fmt.Errorf("unsupported operator %q", cond.Op)
	}

	switch v := normalizeValue(cond.Value).(type) {
	case float64:
		return fmt.Sprintf("(data->>$%d)::numeric %s $%d", next, op, next+1),
			[]any{cond.Field, v}, nil
	case bool:
		return fmt.Sprintf("(data->>$%d)::boolean %s $%d", next, op, next+1),
			[]any{cond.Field, v}, nil
	case string:
		if _, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return fmt.Sprintf("(data->>$%d)::timestamptz %s $%d::timestamptz", next, op, next+1),
				[]any{cond.Field, v}, nil
		}
		return fmt.Sprintf("data->>$%d %s $%d", next, op, next+1),
			[]any{cond.Field, v}, nil
	default:
		return "", nil, fmt.Errorf("unsupported condition value type %T", cond.Value)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDoc(row rowScanner) (Doc, error) {
	var doc Doc
	var raw []byte
	if err := row.Scan(&doc.ID, &raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return Doc{}, err
	}
	if err := json.Unmarshal(raw, &doc.Data); err != nil {
		return Doc{}, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func collectDocs(rows *sql.Rows) ([]Doc, error) {
	docs := []Doc{}
	for rows.Next() {
		doc, err := scanDoc(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
