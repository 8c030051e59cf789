package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"labreserve/internal/domain"
	"labreserve/internal/models"

	"github.com/Masterminds/squirrel"
)

var laboratoryColumns = []string{"id", "name", "description", "capacity"}

// ListLaboratories returns all laboratories sorted by name.
func (db *DB) ListLaboratories(ctx context.Context) ([]models.Laboratory, error) {
	query, args, err := db.sb.Select(laboratoryColumns...).
		From("laboratories").
		OrderBy("name ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build laboratories query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list laboratories: %w", err)
	}
	defer rows.Close()

	labs := make([]models.Laboratory, 0)
	for rows.Next() {
		lab, err := scanLaboratory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan laboratory: %w", err)
		}
		labs = append(labs, *lab)
	}
	return labs, rows.Err()
}

func (db *DB) GetLaboratory(ctx context.Context, id int64) (*models.Laboratory, error) {
	query, args, err := db.sb.Select(laboratoryColumns...).
		From("laboratories").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build laboratory query: %w", err)
	}

	lab, err := scanLaboratory(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrLaboratoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get laboratory %d: %w", id, err)
	}
	return lab, nil
}

// UpsertLaboratories inserts or refreshes laboratories keyed by id.
func (db *DB) UpsertLaboratories(ctx context.Context, labs []models.Laboratory) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, lab := range labs {
		query, args, err := db.sb.Insert("laboratories").
			Columns(laboratoryColumns...).
			Values(lab.ID, lab.Name, lab.Description, lab.Capacity).
			Suffix("ON CONFLICT (id) DO UPDATE SET name = excluded.name, description = excluded.description, capacity = excluded.capacity").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build laboratory upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to upsert laboratory %d: %w", lab.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit laboratories: %w", err)
	}

	db.logger.Info().Int("count", len(labs)).Msg("laboratories synced")
	return nil
}

func scanLaboratory(row rowScanner) (*models.Laboratory, error) {
	var lab models.Laboratory
	if err := row.Scan(&lab.ID, &lab.Name, &lab.Description, &lab.Capacity); err != nil {
		return nil, err
	}
	return &lab, nil
}
