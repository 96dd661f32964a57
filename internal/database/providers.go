package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"khadamat/internal/models"
)

const providerColumns = `id, name, category, phone, whatsapp, rating, available`

func (db *DB) CreateProvider(ctx context.Context, p *models.Provider) error {
	query := `INSERT INTO providers (name, category, phone, whatsapp, rating, available)
			  VALUES (?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query, p.Name, p.Category, p.Phone, p.WhatsApp, p.Rating, p.Available)
	if err != nil {
		return fmt.Errorf("create provider: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get provider id: %w", err)
	}
	p.ID = id
	return nil
}

func (db *DB) GetProvider(ctx context.Context, id int64) (*models.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers WHERE id = ?`
	p, err := scanProvider(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get provider: %w", err)
	}
	return p, nil
}

// ListProviders returns providers of one category (best rated first),
// or all providers when category is empty.
func (db *DB) ListProviders(ctx context.Context, category string) ([]*models.Provider, error) {
	query := `SELECT ` + providerColumns + ` FROM providers ORDER BY rating DESC, id`
	args := []any{}
	if category != "" {
		query = `SELECT ` + providerColumns + ` FROM providers WHERE category = ? ORDER BY rating DESC, id`
		args = append(args, category)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	var providers []*models.Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	return providers, nil
}

func (db *DB) UpdateProvider(ctx context.Context, p *models.Provider) error {
	query := `UPDATE providers SET name = ?, category = ?, phone = ?, whatsapp = ?, rating = ?, available = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, p.Name, p.Category, p.Phone, p.WhatsApp, p.Rating, p.Available, p.ID)
	if err != nil {
		return fmt.Errorf("update provider: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProvider(row rowScanner) (*models.Provider, error) {
	p := &models.Provider{}
	var whatsapp sql.NullString
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Phone, &whatsapp, &p.Rating, &p.Available)
	if err != nil {
		return nil, err
	}
	p.WhatsApp = whatsapp.String
	return p, nil
}
