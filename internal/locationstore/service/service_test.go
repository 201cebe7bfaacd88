package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gigwork_maps/internal/locationstore/cache"
	"gigwork_maps/internal/locationstore/repository"
	"gigwork_maps/internal/locationstore/transport"
	"gigwork_maps/platform/apperr"
	"gigwork_maps/platform/geo"
	"gigwork_maps/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

type countingRepo struct {
	loc     repository.Location
	found   bool
	gets    int
	upserts int
	err     error
}

func (r *countingRepo) Upsert(_ context.Context, loc repository.Location) error {
	r.upserts++
	if r.err != nil {
		return r.err
	}
	r.loc = loc
	r.found = true
	return nil
}

func (r *countingRepo) Get(_ context.Context, _ uuid.UUID) (repository.Location, error) {
	r.gets++
	if r.err != nil {
		return repository.Location{}, r.err
	}
	if !r.found {
		return repository.Location{}, apperr.NotFound("location not found")
	}
	return r.loc, nil
}

func (r *countingRepo) History(_ context.Context, _ uuid.UUID, _ int) ([]repository.Location, error) {
	return nil, r.err
}

func TestGetReadsThroughCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	repo := &countingRepo{}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))
	svc := New(repo, cache.New(client, time.Minute), nil, clock, logger.Nop())
	ctx := context.Background()
	userID := uuid.New()

	repo.loc = repository.Location{UserID: userID, Coordinate: geo.Coordinate{Latitude: 10.8, Longitude: 106.6}, UpdatedAt: clock.Now()}
	repo.found = true

	for i := 0; i < 3; i++ {
		resp, err := svc.Get(ctx, userID)
		if err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
		if resp.Latitude == nil || *resp.Latitude != 10.8 {
			t.Fatalf("unexpected response %+v", resp)
		}
	}
	if repo.gets != 1 {
		t.Fatalf("expected one repository read, got %d", repo.gets)
	}
}

func TestGetFallsBackWhenCacheIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	mr.Close()

	repo := &countingRepo{}
	svc := New(repo, cache.New(client, time.Minute), nil, nil, logger.Nop())

	resp, err := svc.Get(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if resp.Latitude != nil || resp.LocationUpdatedAt != nil {
		t.Fatalf("expected null fields for unknown user, got %+v", resp)
	}
	if repo.gets != 1 {
		t.Fatalf("expected repository read, got %d", repo.gets)
	}
}

func TestUpdateOwnMapsStorageFailure(t *testing.T) {
	repo := &countingRepo{err: errors.New("connection reset")}
	svc := New(repo, nil, nil, nil, logger.Nop())

	_, err := svc.UpdateOwn(context.Background(), uuid.New(), transport.UpdateLocationRequest{Latitude: 10.8, Longitude: 106.6})
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}

	_, err = svc.UpdateOwn(context.Background(), uuid.New(), transport.UpdateLocationRequest{})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for sentinel, got %v", err)
	}
	if repo.upserts != 1 {
		t.Fatalf("sentinel must not reach storage, got %d upserts", repo.upserts)
	}
}
