package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"khadamat/internal/models"

	json "github.com/goccy/go-json"
)

const serviceColumns = `id, category, name, name_en, description, image_url,
	price, questions, active, sort_order, created_at, updated_at`

func (db *DB) CreateService(ctx context.Context, s *models.Service) error {
	questions, err := json.Marshal(s.Questions)
	if err != nil {
		return fmt.Errorf("encode service questions: %w", err)
	}

	now := time.Now().UTC()
	query := `INSERT INTO services (category, name, name_en, description, image_url,
				price, questions, active, sort_order, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query,
		s.Category, s.Name, s.NameEn, s.Description, s.ImageURL,
		s.Price, string(questions), s.Active, s.SortOrder, now, now,
	)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get service id: %w", err)
	}
	s.ID = id
	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

func (db *DB) GetService(ctx context.Context, id int64) (*models.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services WHERE id = ?`
	s, err := scanService(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get service: %w", err)
	}
	return s, nil
}

// ListServices returns services of one category, or all when category
// is empty. Inactive services are kept; display filtering is the
// caller's concern.
func (db *DB) ListServices(ctx context.Context, category string) ([]*models.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services ORDER BY sort_order, id`
	args := []any{}
	if category != "" {
		query = `SELECT ` + serviceColumns + ` FROM services WHERE category = ? ORDER BY sort_order, id`
		args = append(args, category)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var services []*models.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

func (db *DB) UpdateService(ctx context.Context, s *models.Service) error {
	questions, err := json.Marshal(s.Questions)
	if err != nil {
		return fmt.Errorf("encode service questions: %w", err)
	}

	query := `UPDATE services SET category = ?, name = ?, name_en = ?, description = ?,
				image_url = ?, price = ?, questions = ?, active = ?, sort_order = ?, updated_at = ?
			  WHERE id = ?`
	result, err := db.ExecContext(ctx, query,
		s.Category, s.Name, s.NameEn, s.Description, s.ImageURL,
		s.Price, string(questions), s.Active, s.SortOrder, time.Now().UTC(), s.ID,
	)
	if err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) DeleteService(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM services WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := db.QueryContext(ctx, `SELECT code, label, label_en, sort_order FROM categories ORDER BY sort_order, code`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		c := &models.Category{}
		var labelEn sql.NullString
		if err := rows.Scan(&c.Code, &c.Label, &labelEn, &c.SortOrder); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.LabelEn = labelEn.String
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// UpsertCategory seeds or refreshes a category label. Called from
// startup with the configured category list.
func (db *DB) UpsertCategory(ctx context.Context, c *models.Category) error {
	query := `INSERT INTO categories (code, label, label_en, sort_order) VALUES (?, ?, ?, ?)
			  ON CONFLICT(code) DO UPDATE SET
				label = excluded.label,
				label_en = excluded.label_en,
				sort_order = excluded.sort_order`
	if _, err := db.ExecContext(ctx, query, c.Code, c.Label, c.LabelEn, c.SortOrder); err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	return nil
}

func scanService(row rowScanner) (*models.Service, error) {
	s := &models.Service{}
	var nameEn, description, imageURL, questionsRaw sql.NullString
	var price sql.NullFloat64
	err := row.Scan(
		&s.ID, &s.Category, &s.Name, &nameEn, &description, &imageURL,
		&price, &questionsRaw, &s.Active, &s.SortOrder, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.NameEn = nameEn.String
	s.Description = description.String
	s.ImageURL = imageURL.String
	if price.Valid {
		p := price.Float64
		s.Price = &p
	}
	if questionsRaw.Valid && questionsRaw.String != "" && questionsRaw.String != "null" {
		if err := json.Unmarshal([]byte(questionsRaw.String), &s.Questions); err != nil {
			return nil, fmt.Errorf("decode service questions: %w", err)
		}
	}
	return s, nil
}
