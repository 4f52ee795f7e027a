package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/velotracker/apiserver/types"
)

// RideRepository handles persistence for rides. Every lookup is scoped
// by owner, so a missing row and a row owned by someone else are
// indistinguishable to callers.
type RideRepository struct {
	db *sql.DB
}

func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{db: db}
}

func (r *RideRepository) Create(ctx context.Context, ride types.Ride) (types.Ride, error) {
	now := time.Now()
	ride.CreatedAt = now
	ride.UpdatedAt = now

	const query = `
		INSERT INTO rides (user_id, title, distance, duration, avg_speed, max_speed, start_time, notes, route_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		ride.UserID,
		ride.Title,
		ride.Distance,
		ride.Duration,
		ride.AvgSpeed,
		ride.MaxSpeed,
		ride.StartTime,
		ride.Notes,
		[]byte(ride.RouteData),
		ride.CreatedAt,
		ride.UpdatedAt,
	).Scan(&ride.ID); err != nil {
		return types.Ride{}, err
	}
	return ride, nil
}

func (r *RideRepository) ListByUser(ctx context.Context, userID int) ([]types.Ride, error) {
	const query = `
		SELECT id, user_id, title, distance, duration, avg_speed, max_speed, start_time, notes, route_data, created_at, updated_at
		FROM rides
		WHERE user_id = $1
		ORDER BY start_time DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rides := make([]types.Ride, 0)
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rides, nil
}

func (r *RideRepository) GetByID(ctx context.Context, userID, id int) (types.Ride, error) {
	const query = `
		SELECT id, user_id, title, distance, duration, avg_speed, max_speed, start_time, notes, route_data, created_at, updated_at
		FROM rides
		WHERE id = $1 AND user_id = $2`
	ride, err := scanRide(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Ride{}, ErrNotFound
		}
		return types.Ride{}, err
	}
	return ride, nil
}

// Update changes title and notes only; all other fields are immutable
// once the ride is recorded.
func (r *RideRepository) Update(ctx context.Context, userID, id int, title, notes string) (types.Ride, error) {
	const query = `
		UPDATE rides
		SET title = $1, notes = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5
		RETURNING id, user_id, title, distance, duration, avg_speed, max_speed, start_time, notes, route_data, created_at, updated_at`
	ride, err := scanRide(r.db.QueryRowContext(ctx, query, title, notes, time.Now(), id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Ride{}, ErrNotFound
		}
		return types.Ride{}, err
	}
	return ride, nil
}

func (r *RideRepository) Delete(ctx context.Context, userID, id int) error {
	const query = `DELETE FROM rides WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (types.Ride, error) {
	var ride types.Ride
	var routeData []byte
	err := row.Scan(
		&ride.ID,
		&ride.UserID,
		&ride.Title,
		&ride.Distance,
		&ride.Duration,
		&ride.AvgSpeed,
		&ride.MaxSpeed,
		&ride.StartTime,
		&ride.Notes,
		&routeData,
		&ride.CreatedAt,
		&ride.UpdatedAt,
	)
	if err != nil {
		return types.Ride{}, err
	}
	if len(routeData) > 0 {
		ride.RouteData = routeData
	}
	return ride, nil
}
