package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/mentora-api/internal/models"
)

// ErrMonitoredUserInactive is returned by Resolve when the record exists but is no longer active.
var ErrMonitoredUserInactive = errors.New("monitored user already resolved")

// MonitoredUserFilter narrows monitored user listings.
type MonitoredUserFilter struct {
	ActiveOnly bool
	UserID     *uint
	TimePeriod string
}

// MonitoredUserResolution carries the attribution applied when a record is resolved.
type MonitoredUserResolution struct {
	ResolvedBy uint
	Notes      string
	ResolvedAt time.Time
}

// MonitoredUserRepository owns persistence for monitored user records.
type MonitoredUserRepository interface {
	// OpenIfAbsent inserts the record unless an active one already exists for the same
	// (user, time period). It reports whether the insert happened and, when it did not,
	// returns the active record that blocked it.
	OpenIfAbsent(ctx context.Context, record *models.MonitoredUser, refreshOnConflict bool) (bool, models.MonitoredUser, error)
	Resolve(ctx context.Context, id uint, resolution MonitoredUserResolution) (models.MonitoredUser, error)
	GetByID(ctx context.Context, id uint) (models.MonitoredUser, error)
	List(ctx context.Context, filter MonitoredUserFilter) ([]models.MonitoredUser, error)
}

type monitoredUserRepository struct {
	db *gorm.DB
}

// NewMonitoredUserRepository constructs the monitored user repository.
func NewMonitoredUserRepository(db *gorm.DB) MonitoredUserRepository {
	return &monitoredUserRepository{db: db}
}

func (r *monitoredUserRepository) OpenIfAbsent(ctx context.Context, record *models.MonitoredUser, refreshOnConflict bool) (bool, models.MonitoredUser, error) {
	var existing models.MonitoredUser
	inserted := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The conflicting row can be resolved between the insert and the lookup; one more
		// insert then succeeds against the freed pair.
		for attempt := 0; ; attempt++ {
			result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(record)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected > 0 {
				inserted = true
				return nil
			}

			err := tx.Where("user_id = ? AND time_period = ? AND is_active = ?", record.UserID, record.TimePeriod, true).
				First(&existing).Error
			if err == nil {
				break
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) || attempt > 0 {
				return err
			}
		}

		if !refreshOnConflict {
			return nil
		}

		update := tx.Model(&models.MonitoredUser{}).
			Where("id = ? AND is_active = ?", existing.ID, true).
			Updates(map[string]interface{}{
				"operation_count": record.OperationCount,
				"updated_at":      record.UpdatedAt,
			})
		if update.Error != nil {
			return update.Error
		}
		existing.OperationCount = record.OperationCount
		existing.UpdatedAt = record.UpdatedAt
		return nil
	})
	if err != nil {
		return false, models.MonitoredUser{}, err
	}

	if inserted {
		return true, *record, nil
	}
	return false, existing, nil
}

func (r *monitoredUserRepository) Resolve(ctx context.Context, id uint, resolution MonitoredUserResolution) (models.MonitoredUser, error) {
	var resolved models.MonitoredUser

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		notes := resolution.Notes
		resolvedBy := resolution.ResolvedBy
		resolvedAt := resolution.ResolvedAt

		result := tx.Model(&models.MonitoredUser{}).
			Where("id = ? AND is_active = ?", id, true).
			Updates(map[string]interface{}{
				"is_active":        false,
				"resolved_at":      resolvedAt,
				"resolved_by":      resolvedBy,
				"resolution_notes": notes,
				"updated_at":       resolvedAt,
			})
		if result.Error != nil {
			return result.Error
		}

		if err := tx.First(&resolved, id).Error; err != nil {
			return err
		}

		if result.RowsAffected == 0 {
			return ErrMonitoredUserInactive
		}
		return nil
	})
	if err != nil {
		return models.MonitoredUser{}, err
	}

	return resolved, nil
}

func (r *monitoredUserRepository) GetByID(ctx context.Context, id uint) (models.MonitoredUser, error) {
	var record models.MonitoredUser
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return models.MonitoredUser{}, err
	}
	return record, nil
}

func (r *monitoredUserRepository) List(ctx context.Context, filter MonitoredUserFilter) ([]models.MonitoredUser, error) {
	query := r.db.WithContext(ctx).Model(&models.MonitoredUser{})

	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.TimePeriod != "" {
		query = query.Where("time_period = ?", filter.TimePeriod)
	}

	records := make([]models.MonitoredUser, 0)
	if err := query.Order("created_at DESC").Order("id DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
