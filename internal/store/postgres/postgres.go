package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spigell/bidwin/internal/tender"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id          SERIAL PRIMARY KEY,
	sku         TEXT UNIQUE NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	base_price  DOUBLE PRECISION NOT NULL,
	specs       JSONB NOT NULL DEFAULT '{}'::jsonb
);

CREATE TABLE IF NOT EXISTS rfps (
	id             SERIAL PRIMARY KEY,
	title          TEXT NOT NULL,
	client_name    TEXT NOT NULL DEFAULT '',
	file_url       TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'New',
	deadline       TEXT NOT NULL DEFAULT '',
	extracted_data JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS rfps_title_idx ON rfps (title);
`

const rfpColumns = `id, title, client_name, file_url, status, deadline, extracted_data, created_at`

// Store persists RFPs and products in PostgreSQL.
type Store struct {
	db *pgxpool.Pool
}

// Open connects to the database and makes sure the tables exist.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &Store{db: pool}, nil
}

func (s *Store) Close() {
	s.db.Close()
}

func (s *Store) CreateRFP(ctx context.Context, rfp *tender.RFP) (*tender.RFP, error) {
	if rfp == nil {
		return nil, errors.New("rfp is required")
	}

	status := rfp.Status
	if status == "" {
		status = tender.StatusNew
	}

	data, err := marshalRecord(rfp.Data)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO rfps (title, client_name, file_url, status, deadline, extracted_data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+rfpColumns,
		rfp.Title, rfp.ClientName, rfp.FileURL, string(status), rfp.Deadline, data,
	)

	created, err := scanRFP(row)
	if err != nil {
		return nil, fmt.Errorf("failed to insert rfp: %w", err)
	}
	return created, nil
}

func (s *Store) GetRFP(ctx context.Context, id int) (*tender.RFP, error) {
	row := s.db.QueryRow(ctx, `SELECT `+rfpColumns+` FROM rfps WHERE id = $1`, id)

	rfp, err := scanRFP(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("rfp %d: %w", id, tender.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rfp %d: %w", id, err)
	}
	return rfp, nil
}

func (s *Store) FindRFPByFile(ctx context.Context, fileURL string) (*tender.RFP, error) {
	row := s.db.QueryRow(ctx, `SELECT `+rfpColumns+` FROM rfps WHERE file_url = $1 ORDER BY id LIMIT 1`, fileURL)

	rfp, err := scanRFP(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("rfp with file %q: %w", fileURL, tender.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find rfp by file: %w", err)
	}
	return rfp, nil
}

func (s *Store) ListRFPs(ctx context.Context) ([]*tender.RFP, error) {
	rows, err := s.db.Query(ctx, `SELECT `+rfpColumns+` FROM rfps ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rfps: %w", err)
	}
	defer rows.Close()

	var out []*tender.RFP
	for rows.Next() {
		rfp, err := scanRFP(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rfp: %w", err)
		}
		out = append(out, rfp)
	}

	return out, rows.Err()
}

// SaveRecord replaces the structured output and status in a single statement.
func (s *Store) SaveRecord(ctx context.Context, id int, status tender.Status, record *tender.Record) error {
	data, err := marshalRecord(record)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE rfps SET extracted_data = $1, status = $2 WHERE id = $3`,
		data, string(status), id,
	)
	if err != nil {
		return fmt.Errorf("failed to save rfp %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rfp %d: %w", id, tender.ErrNotFound)
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, id int, status tender.Status) error {
	tag, err := s.db.Exec(ctx, `UPDATE rfps SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update status of rfp %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rfp %d: %w", id, tender.ErrNotFound)
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]tender.Product, error) {
	rows, err := s.db.Query(ctx, `SELECT id, sku, name, description, base_price, specs FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var out []tender.Product
	for rows.Next() {
		var p tender.Product
		var specs []byte
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.BasePrice, &specs); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		if len(specs) > 0 {
			if err := json.Unmarshal(specs, &p.Specs); err != nil {
				return nil, fmt.Errorf("failed to decode specs of product %d: %w", p.ID, err)
			}
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

func (s *Store) SeedProducts(ctx context.Context, products []tender.Product) (int, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin seed: %w", err)
	}
	defer tx.Rollback(ctx)

	var existing int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&existing); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	if existing > 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, p := range products {
		specs, err := json.Marshal(p.Specs)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal specs of %s: %w", p.SKU, err)
		}
		batch.Queue(
			`INSERT INTO products (sku, name, description, base_price, specs) VALUES ($1, $2, $3, $4, $5)`,
			p.SKU, p.Name, p.Description, p.BasePrice, specs,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("failed to insert products: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit seed: %w", err)
	}

	return len(products), nil
}

func marshalRecord(record *tender.Record) ([]byte, error) {
	if record == nil {
		return nil, nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extracted data: %w", err)
	}
	return data, nil
}

func scanRFP(row pgx.Row) (*tender.RFP, error) {
	var rfp tender.RFP
	var status string
	var data []byte

	if err := row.Scan(&rfp.ID, &rfp.Title, &rfp.ClientName, &rfp.FileURL, &status, &rfp.Deadline, &data, &rfp.CreatedAt); err != nil {
		return nil, err
	}
	rfp.Status = tender.Status(status)

	if len(data) > 0 && string(data) != "null" {
		var record tender.Record
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("decode extracted data of rfp %d: %w", rfp.ID, err)
		}
		rfp.Data = &record
	}

	return &rfp, nil
}
