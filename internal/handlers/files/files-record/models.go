package filesrecord

import "session-handlers/internal/models"

type Input struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	Status   string `json:"status"`
	UserID   string `json:"userId"`
}

type Output struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	File    models.ProcessedFile `json:"file"`
}
