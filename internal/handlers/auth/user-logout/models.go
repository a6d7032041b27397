package userlogout

type Input struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

type Output struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
