package userslist

import "session-handlers/internal/models"

type Output struct {
	Success bool                `json:"success"`
	Users   []models.PublicUser `json:"users"`
	Count   int                 `json:"count"`
}
