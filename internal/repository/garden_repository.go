package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/verdant/internal/logging"
)

// PlantRecord is a plant a user added to their garden, together with the
// hosted photo it was identified from.
type PlantRecord struct {
	ID             uint      `gorm:"primaryKey"`
	PlantID        string    `gorm:"column:plant_id;uniqueIndex;size:64"`
	UserID         string    `gorm:"column:user_id;index;size:64"`
	CommonName     string    `gorm:"column:common_name;size:128"`
	ScientificName string    `gorm:"column:scientific_name;size:128"`
	ImageURL       string    `gorm:"column:image_url;type:text"`
	ImagePublicID  string    `gorm:"column:image_public_id;size:128"`
	Notes          string    `gorm:"column:notes;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (PlantRecord) TableName() string {
	return "plant_records"
}

// CareReminder is a scheduled care task for a plant in a user's garden.
type CareReminder struct {
	ID         uint      `gorm:"primaryKey"`
	ReminderID string    `gorm:"column:reminder_id;uniqueIndex;size:64"`
	UserID     string    `gorm:"column:user_id;index;size:64"`
	PlantID    string    `gorm:"column:plant_id;index;size:64"`
	Kind       string    `gorm:"column:kind;size:32"`
	DueAt      time.Time `gorm:"column:due_at"`
	Done       bool      `gorm:"column:done"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (CareReminder) TableName() string {
	return "care_reminders"
}

// ErrNotFound reports a lookup that matched no row for the requesting user.
var ErrNotFound = errors.New("record not found")

// GardenRepository persists plant records and care reminders.
type GardenRepository struct {
	db             *gorm.DB
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewGardenRepository creates a repository with the default retry policy for
// transient database errors.
func NewGardenRepository(db *gorm.DB, logger *zap.Logger) *GardenRepository {
	return &GardenRepository{
		db:             db,
		logger:         logger.Named("garden_repository"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// AutoMigrate ensures both tables exist.
func (r *GardenRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&PlantRecord{}, &CareReminder{})
}

// CreatePlant persists a new plant record.
func (r *GardenRepository) CreatePlant(ctx context.Context, record *PlantRecord) error {
	return r.executeWithRetry(ctx, "repository.create_plant", record.PlantID, func() error {
		return r.db.WithContext(ctx).Create(record).Error
	})
}

// FindPlant retrieves a plant by id, scoped to its owner.
func (r *GardenRepository) FindPlant(ctx context.Context, userID, plantID string) (*PlantRecord, error) {
	var record PlantRecord
	err := r.executeWithRetry(ctx, "repository.find_plant", plantID, func() error {
		return r.db.WithContext(ctx).First(&record, "plant_id = ? AND user_id = ?", plantID, userID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// ListPlants returns every plant in the user's garden, newest first.
func (r *GardenRepository) ListPlants(ctx context.Context, userID string) ([]*PlantRecord, error) {
	var records []*PlantRecord
	err := r.executeWithRetry(ctx, "repository.list_plants", "", func() error {
		return r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&records).Error
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeletePlant removes a plant and its reminders. Returns ErrNotFound when
// the plant does not exist for this user.
func (r *GardenRepository) DeletePlant(ctx context.Context, userID, plantID string) error {
	return r.executeWithRetry(ctx, "repository.delete_plant", plantID, func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Where("plant_id = ? AND user_id = ?", plantID, userID).Delete(&PlantRecord{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
			return tx.Where("plant_id = ? AND user_id = ?", plantID, userID).Delete(&CareReminder{}).Error
		})
	})
}

// CreateReminder persists a new care reminder.
func (r *GardenRepository) CreateReminder(ctx context.Context, reminder *CareReminder) error {
	return r.executeWithRetry(ctx, "repository.create_reminder", reminder.ReminderID, func() error {
		return r.db.WithContext(ctx).Create(reminder).Error
	})
}

// ListReminders returns the user's reminders ordered by due date.
func (r *GardenRepository) ListReminders(ctx context.Context, userID string) ([]*CareReminder, error) {
	var reminders []*CareReminder
	err := r.executeWithRetry(ctx, "repository.list_reminders", "", func() error {
		return r.db.WithContext(ctx).Where("user_id = ?", userID).Order("due_at ASC").Find(&reminders).Error
	})
	if err != nil {
		return nil, err
	}
	return reminders, nil
}

// CompleteReminder marks a reminder done. Returns ErrNotFound when the
// reminder does not exist for this user.
func (r *GardenRepository) CompleteReminder(ctx context.Context, userID, reminderID string) error {
	return r.executeWithRetry(ctx, "repository.complete_reminder", reminderID, func() error {
		res := r.db.WithContext(ctx).Model(&CareReminder{}).
			Where("reminder_id = ? AND user_id = ?", reminderID, userID).
			Update("done", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GardenAggregation holds the per-user counts backing the garden summary.
type GardenAggregation struct {
	TotalPlants        int64
	DueReminders       int64
	CompletedReminders int64
}

// AggregateGarden counts the user's plants and the state of their reminders.
func (r *GardenRepository) AggregateGarden(ctx context.Context, userID string) (*GardenAggregation, error) {
	var agg GardenAggregation
	err := r.executeWithRetry(ctx, "repository.aggregate_garden", "", func() error {
		db := r.db.WithContext(ctx)
		if err := db.Model(&PlantRecord{}).Where("user_id = ?", userID).Count(&agg.TotalPlants).Error; err != nil {
			return err
		}
		if err := db.Model(&CareReminder{}).
			Where("user_id = ? AND done = ? AND due_at <= ?", userID, false, time.Now().UTC()).
			Count(&agg.DueReminders).Error; err != nil {
			return err
		}
		return db.Model(&CareReminder{}).
			Where("user_id = ? AND done = ?", userID, true).
			Count(&agg.CompletedReminders).Error
	})
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

func (r *GardenRepository) executeWithRetry(ctx context.Context, operation, requestID string, fn func() error) error {
	if r.retryAttempts <= 1 {
		return logging.NewOperationError(operation, requestID, fn())
	}

	backoff := r.initialBackoff
	opLogger := logging.WithOperation(r.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < r.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= r.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("database operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isTransientError(err) || attempt == r.retryAttempts-1 {
			if !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, ErrNotFound) {
				opLogger.Error("database operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			}
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient database error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
