package model

import (
	"time"

	"github.com/google/uuid"
)

// AdaptResult is the opaque-ish details payload returned by the adaptation
// step for one task partition.
type AdaptResult struct {
	PromptLength      int     `json:"prompt_length"`
	ProcessingTime    float64 `json:"processing_time"` // seconds
	ExamplesProcessed int     `json:"examples_processed"`
	ModelUpdated      bool    `json:"model_updated"`
}

// FineTuneRecord is one append-only fine-tuning history entry.
// Entries are never mutated or deleted; the file is physically rewritten in
// full on each append but its logical content only grows.
type FineTuneRecord struct {
	ID        uuid.UUID   `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	TaskType  TaskType    `json:"task_type"`
	DataCount int         `json:"data_count"`
	Success   bool        `json:"success"`
	Details   AdaptResult `json:"details"`
}
