package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/mentora-api/internal/models"
)

// ActionLogFilter narrows action log queries. Zero values are ignored.
// The date range is half-open: [From, Until).
type ActionLogFilter struct {
	UserID     *uint
	EntityType string
	EntityID   string
	Action     models.ActionType
	From       *time.Time
	Until      *time.Time
	Limit      int
}

// ActionCountFilter selects the events counted by CountByUser.
type ActionCountFilter struct {
	Since   time.Time
	Until   time.Time
	Actions []models.ActionType
	UserID  *uint
}

// ActionLogRepository persists the append-only action log.
type ActionLogRepository interface {
	Create(ctx context.Context, entry *models.ActionLog) error
	List(ctx context.Context, filter ActionLogFilter) ([]models.ActionLog, error)
	CountByUser(ctx context.Context, filter ActionCountFilter) (map[uint]int64, error)
}

type actionLogRepository struct {
	db *gorm.DB
}

// NewActionLogRepository constructs the action log repository.
func NewActionLogRepository(db *gorm.DB) ActionLogRepository {
	return &actionLogRepository{db: db}
}

func (r *actionLogRepository) Create(ctx context.Context, entry *models.ActionLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *actionLogRepository) List(ctx context.Context, filter ActionLogFilter) ([]models.ActionLog, error) {
	query := r.db.WithContext(ctx).Model(&models.ActionLog{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.From != nil {
		query = query.Where("occurred_at >= ?", filter.From.UTC())
	}
	if filter.Until != nil {
		query = query.Where("occurred_at < ?", filter.Until.UTC())
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	entries := make([]models.ActionLog, 0)
	if err := query.Order("occurred_at DESC").Order("id DESC").Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}

type userActionCount struct {
	UserID uint
	Total  int64
}

func (r *actionLogRepository) CountByUser(ctx context.Context, filter ActionCountFilter) (map[uint]int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ActionLog{}).
		Select("user_id, COUNT(*) AS total").
		Where("occurred_at >= ? AND occurred_at < ?", filter.Since.UTC(), filter.Until.UTC())

	if len(filter.Actions) > 0 {
		query = query.Where("action IN ?", filter.Actions)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}

	var rows []userActionCount
	if err := query.Group("user_id").Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		if row.Total > 0 {
			counts[row.UserID] = row.Total
		}
	}
	return counts, nil
}
