package reviews

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PGXPool is the subset of *pgxpool.Pool the repository uses, kept as an
// interface so tests can substitute a mock pool.
type PGXPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ Repository = (*PostgresRepository)(nil)

type Repository interface {
	// InsertReview stores one raw review; it stays unindexed until the next
	// batch reindex folds it into the place ratings.
	InsertReview(ctx context.Context, review Review) (uuid.UUID, error)
	CountUnindexed(ctx context.Context) (int, error)
	// Reindex recomputes every place's rating and review count from the
	// review corpus and marks the processed reviews as indexed.
	Reindex(ctx context.Context) error
}

// Review is one visitor review of a known place.
type Review struct {
	ID        uuid.UUID `json:"id"`
	PlaceID   uuid.UUID `json:"place_id"`
	Author    string    `json:"author"`
	Rating    float64   `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
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

func (r *PostgresRepository) InsertReview(ctx context.Context, review Review) (uuid.UUID, error) {
	query := `
        INSERT INTO place_reviews (place_id, author, rating, comment)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	var id uuid.UUID
	if err := r.pgpool.QueryRow(ctx, query,
		review.PlaceID, review.Author, review.Rating, review.Comment,
	).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert review: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) CountUnindexed(ctx context.Context) (int, error) {
	query := `SELECT count(*) FROM place_reviews WHERE indexed = false`
	var count int
	if err := r.pgpool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unindexed reviews: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) Reindex(ctx context.Context) error {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	aggregate := `
        UPDATE places p SET
            rating = agg.avg_rating,
            review_count = agg.review_count
        FROM (
            SELECT place_id, avg(rating) AS avg_rating, count(*) AS review_count
            FROM place_reviews
            GROUP BY place_id
        ) agg
        WHERE p.id = agg.place_id
    `
	if _, err := tx.Exec(ctx, aggregate); err != nil {
		return fmt.Errorf("failed to aggregate review ratings: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE place_reviews SET indexed = true WHERE indexed = false`); err != nil {
		return fmt.Errorf("failed to mark reviews indexed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
