package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 5 * time.Second
	pgUniqueCode = "23505"
)

var ErrDuplicateID = errors.New("duplicate item id")

// Schema is applied with CREATE IF NOT EXISTS semantics at startup.
const Schema = `
CREATE TABLE IF NOT EXISTS catalog_items (
	id           BIGINT PRIMARY KEY,
	date_created TIMESTAMPTZ NOT NULL,
	doc          JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS catalog_categories (
	id         BIGINT PRIMARY KEY,
	name       TEXT NOT NULL,
	slug       TEXT NOT NULL,
	item_count INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS catalog_state (
	id                  INT PRIMARY KEY,
	version             BIGINT NOT NULL,
	last_updated        TIMESTAMPTZ NOT NULL,
	last_webhook_update TIMESTAMPTZ
);
`

// EnsureSchema creates the tables when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, Schema)
		return err
	})
}

// PostgresStore keeps the snapshot in Postgres: one row per item plus a
// single state row carrying version and timestamps. Writes run in a
// transaction with the state row locked, which gives the same single-writer
// discipline as the file store.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresStore) Load(ctx context.Context) (Snapshot, bool, error) {
	var (
		snap Snapshot
		ok   bool
	)

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var err error
		snap, ok, err = loadSnapshot(ctx, s.db)
		return err
	})
	if err != nil {
		return Snapshot{}, false, err
	}
	return snap, ok, nil
}

func (s *PostgresStore) Replace(ctx context.Context, items []Item, categories []Category) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			if err := replaceItems(ctx, tx, items); err != nil {
				return err
			}
			if err := replaceCategories(ctx, tx, categories); err != nil {
				return err
			}
			return bumpState(ctx, tx, s.now().UTC(), false)
		})
	})
}

func (s *PostgresStore) Update(ctx context.Context, fn func(*Snapshot) error) (Snapshot, error) {
	var out Snapshot

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				SELECT pg_advisory_xact_lock(hashtext('catalog_state'))
			`); err != nil {
				return err
			}

			snap, _, err := loadSnapshot(ctx, tx)
			if err != nil {
				return err
			}

			if err := fn(&snap); err != nil {
				return err
			}

			if err := replaceItems(ctx, tx, snap.Items); err != nil {
				return err
			}
			now := s.now().UTC()
			if err := bumpState(ctx, tx, now, true); err != nil {
				return err
			}

			SortByDateCreatedDesc(snap.Items)
			snap.TotalCount = len(snap.Items)
			snap.LastUpdated = now
			snap.LastWebhookUpdate = &now
			snap.Version++
			out = snap
			return nil
		})
	})
	if err != nil {
		return Snapshot{}, err
	}
	return out, nil
}

func (s *PostgresStore) LoadCategories(ctx context.Context) (CategoryList, bool, error) {
	var cl CategoryList

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, name, slug, item_count
			FROM catalog_categories
			ORDER BY name ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c Category
			if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Count); err != nil {
				return err
			}
			cl.Categories = append(cl.Categories, c)
		}
		return rows.Err()
	})
	if err != nil {
		return CategoryList{}, false, err
	}
	if len(cl.Categories) == 0 {
		return CategoryList{}, false, nil
	}

	cl.TotalCount = len(cl.Categories)
	return cl, true, nil
}

func (s *PostgresStore) LoadMetadata(ctx context.Context) (Metadata, bool, error) {
	snap, ok, err := s.Load(ctx)
	if err != nil || !ok {
		return Metadata{}, false, err
	}
	return DeriveMetadata(snap.Items, s.now()), true, nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadSnapshot(ctx context.Context, q querier) (Snapshot, bool, error) {
	var snap Snapshot

	var webhookAt sql.NullTime
	err := q.QueryRowContext(ctx, `
		SELECT version, last_updated, last_webhook_update
		FROM catalog_state
		WHERE id = 1
	`).Scan(&snap.Version, &snap.LastUpdated, &webhookAt)
	if err == sql.ErrNoRows {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	if webhookAt.Valid {
		t := webhookAt.Time
		snap.LastWebhookUpdate = &t
	}

	rows, err := q.QueryContext(ctx, `
		SELECT doc
		FROM catalog_items
		ORDER BY date_created DESC, id DESC
	`)
	if err != nil {
		return Snapshot{}, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return Snapshot{}, false, err
		}
		var it Item
		if err := json.Unmarshal(doc, &it); err != nil {
			return Snapshot{}, false, fmt.Errorf("decode item doc: %w", err)
		}
		snap.Items = append(snap.Items, it)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, false, err
	}

	snap.TotalCount = len(snap.Items)
	return snap, true, nil
}

func replaceItems(ctx context.Context, tx *sql.Tx, items []Item) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_items`); err != nil {
		return err
	}

	for _, it := range items {
		doc, err := json.Marshal(it)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO catalog_items (id, date_created, doc)
			VALUES ($1, $2, $3)
		`, it.ID, it.DateCreated, doc)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %d", ErrDuplicateID, it.ID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func replaceCategories(ctx context.Context, tx *sql.Tx, categories []Category) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_categories`); err != nil {
		return err
	}

	for _, c := range categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO catalog_categories (id, name, slug, item_count)
			VALUES ($1, $2, $3, $4)
		`, c.ID, c.Name, c.Slug, c.Count); err != nil {
			return err
		}
	}
	return nil
}

func bumpState(ctx context.Context, tx *sql.Tx, now time.Time, webhook bool) error {
	if webhook {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO catalog_state (id, version, last_updated, last_webhook_update)
			VALUES (1, 1, $1, $1)
			ON CONFLICT (id) DO UPDATE
			SET version = catalog_state.version + 1,
			    last_updated = $1,
			    last_webhook_update = $1
		`, now)
		return err
	}

	// A wholesale replace supersedes any webhook audit stamp.
	_, err := tx.ExecContext(ctx, `
		INSERT INTO catalog_state (id, version, last_updated)
		VALUES (1, 1, $1)
		ON CONFLICT (id) DO UPDATE
		SET version = catalog_state.version + 1,
		    last_updated = $1,
		    last_webhook_update = NULL
	`, now)
	return err
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueCode
}
