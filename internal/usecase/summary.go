package usecase

import "context"

// GardenSummary represents aggregated garden insights for one user.
type GardenSummary struct {
	TotalPlants        int64 `json:"total_plants"`
	DueReminders       int64 `json:"due_reminders"`
	CompletedReminders int64 `json:"completed_reminders"`
}

// GetGardenSummary aggregates the user's garden from persisted records.
func (uc *GardenUseCase) GetGardenSummary(ctx context.Context, userID string) (*GardenSummary, error) {
	aggregation, err := uc.repo.AggregateGarden(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &GardenSummary{
		TotalPlants:        aggregation.TotalPlants,
		DueReminders:       aggregation.DueReminders,
		CompletedReminders: aggregation.CompletedReminders,
	}, nil
}
