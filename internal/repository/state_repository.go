package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"task-queue/internal/model"
)

// StateRepository persists the whole tree as a single JSON document.
type StateRepository struct {
	db *gorm.DB
}

func NewStateRepository(db *gorm.DB) *StateRepository {
	return &StateRepository{db: db}
}

// Load returns the stored tree. When nothing was stored yet it saves and
// returns a fresh default tree.
func (r *StateRepository) Load(ctx context.Context) (*model.Root, error) {
	var state model.State
	err := r.db.WithContext(ctx).First(&state, model.StateID).Error
	switch {
	case err == nil:
		root, err := Decode([]byte(state.Data))
		if err != nil {
			return nil, fmt.Errorf("decode state: %w", err)
		}
		return root, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		root := model.NewRoot()
		if err := r.Save(ctx, root); err != nil {
			return nil, err
		}
		return root, nil
	default:
		return nil, fmt.Errorf("find state: %w", err)
	}
}

// Save upserts the tree document.
func (r *StateRepository) Save(ctx context.Context, root *model.Root) error {
	data, err := Encode(root)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	state := model.State{ID: model.StateID, Data: string(data)}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&state).Error
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Encode renders the tree in its persisted JSON layout.
func Encode(root *model.Root) ([]byte, error) {
	if root == nil {
		root = model.NewRoot()
	}
	return json.MarshalIndent(root, "", "  ")
}

// Decode parses a persisted document, defaulting a missing global reminder
// window and missing collections.
func Decode(data []byte) (*model.Root, error) {
	var doc struct {
		ReminderHoursBefore *int           `json:"reminderHoursBefore"`
		Groups              []*model.Group `json:"groups"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	root := model.NewRoot()
	if doc.ReminderHoursBefore != nil {
		root.ReminderHoursBefore = *doc.ReminderHoursBefore
	}
	if doc.Groups != nil {
		root.Groups = doc.Groups
	}
	if err := root.Validate(); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	root.Normalize()
	return root, nil
}
