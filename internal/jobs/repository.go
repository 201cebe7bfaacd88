// Package jobs resolves job-site addresses to coordinates so job sites can
// be drawn on a map surface.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gigwork_maps/platform/apperr"
	"gigwork_maps/platform/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Job is the part of a job posting this service cares about.
type Job struct {
	ID         uuid.UUID
	EmployerID uuid.UUID
	Title      string
	Address    string
	Coordinate *geo.Coordinate
	GeocodedAt *time.Time
}

// Repository reads job sites and stores their coordinates.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Job, error)
	ListMissingCoordinates(ctx context.Context, limit int) ([]Job, error)
	UpdateCoordinates(ctx context.Context, id uuid.UUID, coord geo.Coordinate) error
}

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new jobs repository.
func NewRepository(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

// GetByID retrieves a job by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Job, error) {
	var job Job
	var lat, lng *float64
	err := r.pool.QueryRow(ctx, `
		SELECT id, employer_id, title, address, latitude, longitude, geocoded_at
		FROM jobs
		WHERE id = $1`, id,
	).Scan(&job.ID, &job.EmployerID, &job.Title, &job.Address, &lat, &lng, &job.GeocodedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, apperr.NotFound("job not found")
		}
		return Job{}, fmt.Errorf("get job by id: %w", err)
	}
	job.Coordinate = coordinateOf(lat, lng)
	return job, nil
}

// ListMissingCoordinates returns the oldest jobs without coordinates.
func (r *Repo) ListMissingCoordinates(ctx context.Context, limit int) ([]Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, employer_id, title, address
		FROM jobs
		WHERE latitude IS NULL OR longitude IS NULL
		ORDER BY created_at ASC
		LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs missing coordinates: %w", err)
	}
	defer rows.Close()

	jobs := make([]Job, 0, limit)
	for rows.Next() {
		var job Job
		if err := rows.Scan(&job.ID, &job.EmployerID, &job.Title, &job.Address); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

// UpdateCoordinates stores the resolved job-site position.
func (r *Repo) UpdateCoordinates(ctx context.Context, id uuid.UUID, coord geo.Coordinate) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET latitude = $2, longitude = $3, geocoded_at = now()
		WHERE id = $1`, id, coord.Latitude, coord.Longitude,
	)
	if err != nil {
		return fmt.Errorf("update job coordinates: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("job not found")
	}
	return nil
}

func coordinateOf(lat, lng *float64) *geo.Coordinate {
	if lat == nil || lng == nil {
		return nil
	}
	c := geo.Coordinate{Latitude: *lat, Longitude: *lng}
	if !c.IsValid() {
		return nil
	}
	return &c
}
