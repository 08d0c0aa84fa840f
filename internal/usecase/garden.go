package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/verdant/internal/repository"
)

// GardenRepository defines the persistence operations the garden flow needs.
type GardenRepository interface {
	CreatePlant(ctx context.Context, record *repository.PlantRecord) error
	FindPlant(ctx context.Context, userID, plantID string) (*repository.PlantRecord, error)
	ListPlants(ctx context.Context, userID string) ([]*repository.PlantRecord, error)
	DeletePlant(ctx context.Context, userID, plantID string) error
	CreateReminder(ctx context.Context, reminder *repository.CareReminder) error
	ListReminders(ctx context.Context, userID string) ([]*repository.CareReminder, error)
	CompleteReminder(ctx context.Context, userID, reminderID string) error
	AggregateGarden(ctx context.Context, userID string) (*repository.GardenAggregation, error)
}

// PlantInput is the caller-supplied description of a plant being added.
type PlantInput struct {
	CommonName     string
	ScientificName string
	ImageURL       string
	ImagePublicID  string
	Notes          string
}

// ReminderKinds are the care tasks a reminder may schedule.
var ReminderKinds = map[string]bool{
	"water":     true,
	"fertilize": true,
	"repot":     true,
	"prune":     true,
}

// GardenUseCase manages a user's plant records and care reminders.
type GardenUseCase struct {
	repo   GardenRepository
	logger *zap.Logger
}

// NewGardenUseCase constructs the use case.
func NewGardenUseCase(repo GardenRepository, logger *zap.Logger) *GardenUseCase {
	return &GardenUseCase{repo: repo, logger: logger.Named("garden_usecase")}
}

// AddPlant stores a new plant record for the user.
func (uc *GardenUseCase) AddPlant(ctx context.Context, userID string, input PlantInput) (*repository.PlantRecord, error) {
	record := &repository.PlantRecord{
		PlantID:        uuid.NewString(),
		UserID:         userID,
		CommonName:     input.CommonName,
		ScientificName: input.ScientificName,
		ImageURL:       input.ImageURL,
		ImagePublicID:  input.ImagePublicID,
		Notes:          input.Notes,
		CreatedAt:      time.Now().UTC(),
	}
	if err := uc.repo.CreatePlant(ctx, record); err != nil {
		uc.logger.Error("failed to add plant", zap.Error(err), zap.String("user_id", userID))
		return nil, err
	}
	return record, nil
}

// GetPlant retrieves one plant owned by the user.
func (uc *GardenUseCase) GetPlant(ctx context.Context, userID, plantID string) (*repository.PlantRecord, error) {
	return uc.repo.FindPlant(ctx, userID, plantID)
}

// ListPlants returns the user's garden.
func (uc *GardenUseCase) ListPlants(ctx context.Context, userID string) ([]*repository.PlantRecord, error) {
	return uc.repo.ListPlants(ctx, userID)
}

// RemovePlant deletes a plant and its reminders, returning the public id of
// the plant's stored photo so the caller can release the remote asset.
func (uc *GardenUseCase) RemovePlant(ctx context.Context, userID, plantID string) (string, error) {
	record, err := uc.repo.FindPlant(ctx, userID, plantID)
	if err != nil {
		return "", err
	}
	if err := uc.repo.DeletePlant(ctx, userID, plantID); err != nil {
		uc.logger.Error("failed to remove plant", zap.Error(err), zap.String("plant_id", plantID))
		return "", err
	}
	return record.ImagePublicID, nil
}

// ScheduleReminder creates a care reminder for one of the user's plants.
func (uc *GardenUseCase) ScheduleReminder(ctx context.Context, userID, plantID, kind string, dueAt time.Time) (*repository.CareReminder, error) {
	if !ReminderKinds[kind] {
		return nil, fmt.Errorf("unsupported reminder kind %q", kind)
	}
	if _, err := uc.repo.FindPlant(ctx, userID, plantID); err != nil {
		return nil, err
	}

	reminder := &repository.CareReminder{
		ReminderID: uuid.NewString(),
		UserID:     userID,
		PlantID:    plantID,
		Kind:       kind,
		DueAt:      dueAt,
		CreatedAt:  time.Now().UTC(),
	}
	if err := uc.repo.CreateReminder(ctx, reminder); err != nil {
		uc.logger.Error("failed to schedule reminder", zap.Error(err), zap.String("plant_id", plantID))
		return nil, err
	}
	return reminder, nil
}

// ListReminders returns the user's reminders.
func (uc *GardenUseCase) ListReminders(ctx context.Context, userID string) ([]*repository.CareReminder, error) {
	return uc.repo.ListReminders(ctx, userID)
}

// CompleteReminder marks a reminder done.
func (uc *GardenUseCase) CompleteReminder(ctx context.Context, userID, reminderID string) error {
	return uc.repo.CompleteReminder(ctx, userID, reminderID)
}
