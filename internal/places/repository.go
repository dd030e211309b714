package places

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ssongk/daytrip/internal/types"
)

// PGXPool is the subset of *pgxpool.Pool the repository uses, kept as an
// interface so tests can substitute a mock pool.
type PGXPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ Repository = (*PostgresRepository)(nil)

// Repository is the read/write contract with the place knowledge store.
type Repository interface {
	// SearchPlaces returns up to limit places of one category, ranked by
	// rating descending. An empty region disables region filtering; terms
	// narrow the result to places tagged with at least one of them.
	SearchPlaces(ctx context.Context, category, region string, terms []string, limit int) ([]types.Place, error)
	SavePlace(ctx context.Context, place PlaceRecord) (uuid.UUID, error)
	GetPlace(ctx context.Context, id uuid.UUID) (*types.Place, error)
}

// PlaceRecord is the write shape of one knowledge-store row.
type PlaceRecord struct {
	Name      string
	Category  string
	Region    string
	Address   string
	Latitude  float64
	Longitude float64
	Rating    float64
	Summary   string
	Tags      []string
}

type PostgresRepository struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewPostgresRepository(pgpool PGXPool, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		logger: logger,
		pgpool: pgpool,
	}
}

// Region filtering matches exactly or by suffix, so a stored
// "Busan Haeundae-gu" still matches a normalized "Haeundae-gu" filter.
const searchPlacesQuery = `
        SELECT id, name, category, latitude, longitude, address, rating, summary
        FROM places
        WHERE category = $1
          AND ($2 = '' OR region = $2 OR region ILIKE '%' || $2)
          AND (cardinality($3::text[]) = 0 OR tags && $3::text[])
        ORDER BY rating DESC, review_count DESC, name ASC
        LIMIT $4
    `

func (r *PostgresRepository) SearchPlaces(ctx context.Context, category, region string, terms []string, limit int) ([]types.Place, error) {
	if terms == nil {
		terms = []string{}
	}
	rows, err := r.pgpool.Query(ctx, searchPlacesQuery, category, region, terms, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search places: %w", err)
	}
	defer rows.Close()

	var places []types.Place
	for rows.Next() {
		var p types.Place
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Category,
			&p.Coordinate.Latitude, &p.Coordinate.Longitude,
			&p.Address, &p.Rating, &p.Summary,
		); err != nil {
			return nil, fmt.Errorf("failed to scan place row: %w", err)
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read place rows: %w", err)
	}
	return places, nil
}

func (r *PostgresRepository) SavePlace(ctx context.Context, place PlaceRecord) (uuid.UUID, error) {
	query := `
        INSERT INTO places (
            name, category, region, address, latitude, longitude, rating, summary, tags
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (name, region) DO UPDATE SET
            category = EXCLUDED.category,
            address = EXCLUDED.address,
            latitude = EXCLUDED.latitude,
            longitude = EXCLUDED.longitude,
            rating = EXCLUDED.rating,
            summary = EXCLUDED.summary,
            tags = EXCLUDED.tags
        RETURNING id
    `
	var id uuid.UUID
	if err := r.pgpool.QueryRow(ctx, query,
		place.Name, place.Category, place.Region, place.Address,
		place.Latitude, place.Longitude, place.Rating, place.Summary, place.Tags,
	).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save place: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) GetPlace(ctx context.Context, id uuid.UUID) (*types.Place, error) {
	query := `
        SELECT id, name, category, latitude, longitude, address, rating, summary
        FROM places
        WHERE id = $1
    `
	var p types.Place
	if err := r.pgpool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Category,
		&p.Coordinate.Latitude, &p.Coordinate.Longitude,
		&p.Address, &p.Rating, &p.Summary,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get place: %w", err)
	}
	return &p, nil
}
