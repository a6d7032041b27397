package userlogin

import "session-handlers/internal/common/validation"

const validationMessage = "Email and password are required"

var inputSchema = validation.MustCompile(GetInputSchema())

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"email", "password"},
		Properties: map[string]validation.Property{
			"email": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
			},
			"password": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
			},
		},
	}
}
