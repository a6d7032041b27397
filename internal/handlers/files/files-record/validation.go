package filesrecord

import (
	"session-handlers/internal/common/validation"
	"session-handlers/internal/models"
)

const validationMessage = "fileName and userId are required"

var inputSchema = validation.MustCompile(GetInputSchema())

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"fileName", "userId"},
		Properties: map[string]validation.Property{
			"fileId": {
				Type:        "string",
				Description: "Record id; generated when omitted",
				MaxLength:   validation.IntPtr(255),
			},
			"fileName": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
				MaxLength: validation.IntPtr(255),
			},
			"fileSize": {
				Type:        "integer",
				Description: "Size in bytes",
				Minimum:     validation.FloatPtr(0),
			},
			"status": {
				Type: "string",
				Enum: []string{models.FileStatusProcessing, models.FileStatusCompleted, models.FileStatusFailed},
			},
			"userId": {
				Type:        "string",
				Description: "Owner of the file",
				MinLength:   validation.IntPtr(1),
			},
		},
	}
}
