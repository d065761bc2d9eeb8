package model

import "time"

// StateID is the primary key of the single persisted state row.
const StateID = 1

// State stores the serialized tree as one JSON document.
type State struct {
	ID        uint   `gorm:"primaryKey"`
	Data      string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
