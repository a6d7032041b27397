package userregister

import "session-handlers/internal/common/validation"

const validationMessage = "Email, password, and name are required"

var inputSchema = validation.MustCompile(GetInputSchema())

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"email", "password", "name"},
		Properties: map[string]validation.Property{
			"email": {
				Type:        "string",
				Description: "Login email, unique across users",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(320),
			},
			"password": {
				Type:        "string",
				Description: "Plain password, hashed before storage",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(72),
			},
			"name": {
				Type:        "string",
				Description: "Display name",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(255),
			},
		},
	}
}
