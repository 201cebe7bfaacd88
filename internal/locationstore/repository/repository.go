package repository

import (
	"context"
	"errors"
	"fmt"

	"gigwork_maps/platform/apperr"
	"gigwork_maps/platform/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const locationNotFoundMessage = "location not found"

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new location repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Upsert replaces the latest position and appends it to the history in one
// transaction.
func (r *Repo) Upsert(ctx context.Context, loc Location) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin location upsert: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO user_locations (user_id, latitude, longitude, accuracy_m, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			accuracy_m = EXCLUDED.accuracy_m,
			updated_at = EXCLUDED.updated_at
		WHERE user_locations.updated_at <= EXCLUDED.updated_at`,
		loc.UserID, loc.Coordinate.Latitude, loc.Coordinate.Longitude, loc.AccuracyM, loc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert user location: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_location_history (user_id, latitude, longitude, accuracy_m, recorded_at)
		VALUES ($1, $2, $3, $4, $5)`,
		loc.UserID, loc.Coordinate.Latitude, loc.Coordinate.Longitude, loc.AccuracyM, loc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("append location history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit location upsert: %w", err)
	}
	return nil
}

// Get returns the latest stored position of userID.
func (r *Repo) Get(ctx context.Context, userID uuid.UUID) (Location, error) {
	loc := Location{UserID: userID}
	err := r.pool.QueryRow(ctx, `
		SELECT latitude, longitude, accuracy_m, updated_at
		FROM user_locations
		WHERE user_id = $1`, userID,
	).Scan(&loc.Coordinate.Latitude, &loc.Coordinate.Longitude, &loc.AccuracyM, &loc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Location{}, apperr.NotFound(locationNotFoundMessage)
		}
		return Location{}, fmt.Errorf("get user location: %w", err)
	}
	return loc, nil
}

// History returns up to limit recorded positions, newest first.
func (r *Repo) History(ctx context.Context, userID uuid.UUID, limit int) ([]Location, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT latitude, longitude, accuracy_m, recorded_at
		FROM user_location_history
		WHERE user_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2`, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list location history: %w", err)
	}
	defer rows.Close()

	items := make([]Location, 0, limit)
	for rows.Next() {
		loc := Location{UserID: userID}
		var coord geo.Coordinate
		if err := rows.Scan(&coord.Latitude, &coord.Longitude, &loc.AccuracyM, &loc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan location history: %w", err)
		}
		loc.Coordinate = coord
		items = append(items, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate location history: %w", err)
	}
	return items, nil
}
