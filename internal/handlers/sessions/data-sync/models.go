package datasync

import "session-handlers/internal/reconciler"

type Output struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Results reconciler.Result `json:"results"`
}
