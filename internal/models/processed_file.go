package models

import "time"

const (
	FileStatusProcessing = "processing"
	FileStatusCompleted  = "completed"
	FileStatusFailed     = "failed"
)

// ProcessedFile is one file-processing record.
type ProcessedFile struct {
	FileID      string     `json:"fileId"`
	FileName    string     `json:"fileName"`
	FileSize    int64      `json:"fileSize"`
	Status      string     `json:"status"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
	UserID      string     `json:"userId,omitempty"`
}

// ProcessedItem is the store-neutral dashboard shape.
type ProcessedItem struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Status      string            `json:"status"`
	ProcessedAt *time.Time        `json:"processedAt"`
	Source      string            `json:"source,omitempty"`
	Data        ProcessedItemData `json:"data"`
}

type ProcessedItemData struct {
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	UserID   string `json:"userId"`
}

// ToItem normalizes a file record for the dashboard. source may be empty.
func (f ProcessedFile) ToItem(source string) ProcessedItem {
	return ProcessedItem{
		ID:          f.FileID,
		Type:        "file",
		Status:      f.Status,
		ProcessedAt: f.ProcessedAt,
		Source:      source,
		Data: ProcessedItemData{
			FileName: f.FileName,
			FileSize: f.FileSize,
			UserID:   f.UserID,
		},
	}
}
