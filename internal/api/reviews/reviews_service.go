package reviews

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultBatchSize = 10

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	// IngestReview stores a review and, once enough unindexed reviews have
	// accumulated, folds the batch into the place ratings.
	IngestReview(ctx context.Context, review Review) (*IngestResult, error)
}

// IngestResult reports what happened to one ingested review.
type IngestResult struct {
	ID        uuid.UUID `json:"id"`
	Pending   int       `json:"pending"`
	Reindexed bool      `json:"reindexed"`
}

type ServiceImpl struct {
	logger    *slog.Logger
	repo      Repository
	batchSize int
}

// NewReviewsService creates a new review ingestion service instance.
func NewReviewsService(repo Repository, batchSize int, logger *slog.Logger) *ServiceImpl {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &ServiceImpl{
		logger:    logger,
		repo:      repo,
		batchSize: batchSize,
	}
}

func (s *ServiceImpl) IngestReview(ctx context.Context, review Review) (*IngestResult, error) {
	ctx, span := otel.Tracer("ReviewsService").Start(ctx, "IngestReview", trace.WithAttributes(
		attribute.String("place.id", review.PlaceID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "IngestReview"), slog.String("placeID", review.PlaceID.String()))

	id, err := s.repo.InsertReview(ctx, review)
	if err != nil {
		l.ErrorContext(ctx, "Failed to insert review", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to insert review")
		return nil, fmt.Errorf("error inserting review: %w", err)
	}

	pending, err := s.repo.CountUnindexed(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to count pending reviews", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to count pending reviews")
		return nil, fmt.Errorf("error counting pending reviews: %w", err)
	}
	span.SetAttributes(attribute.Int("reviews.pending", pending))

	result := &IngestResult{ID: id, Pending: pending}
	if pending < s.batchSize {
		span.SetStatus(codes.Ok, "Review stored")
		return result, nil
	}

	// Reindex failure is not fatal to the ingest: the review is stored and
	// the next batch picks the backlog up again.
	if err := s.repo.Reindex(ctx); err != nil {
		l.ErrorContext(ctx, "Batch reindex failed, reviews remain pending", slog.Any("error", err))
		span.RecordError(err)
		return result, nil
	}

	result.Reindexed = true
	result.Pending = 0
	l.InfoContext(ctx, "Review batch reindexed", slog.Int("batchSize", pending))
	span.SetStatus(codes.Ok, "Review batch reindexed")
	return result, nil
}
