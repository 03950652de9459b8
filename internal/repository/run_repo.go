package repository

import (
	"context"
	"errors"
	"time"

	"github.com/OndrejKnedla/SME-financial-os-sub000/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AutoMatchRunRepository struct {
	db *gorm.DB
}

func NewAutoMatchRunRepository(db *gorm.DB) *AutoMatchRunRepository {
	return &AutoMatchRunRepository{db: db}
}

func (r *AutoMatchRunRepository) Create(ctx context.Context, run *models.AutoMatchRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *AutoMatchRunRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.AutoMatchRun, error) {
	var run models.AutoMatchRun
	err := r.db.WithContext(ctx).First(&run, "id = ? AND organization_id = ?", id, orgID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Finish stores the final counters and status of a run.
func (r *AutoMatchRunRepository) Finish(ctx context.Context, run *models.AutoMatchRun, status string, completedAt time.Time) error {
	run.Status = status
	run.CompletedAt = &completedAt
	return r.db.WithContext(ctx).Model(&models.AutoMatchRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"status":          status,
			"candidate_count": run.CandidateCount,
			"matched_count":   run.MatchedCount,
			"skipped_count":   run.SkippedCount,
			"failed_count":    run.FailedCount,
			"completed_at":    completedAt,
		}).Error
}
