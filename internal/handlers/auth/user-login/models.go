package userlogin

type Input struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserSummary struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

type Output struct {
	Success   bool        `json:"success"`
	User      UserSummary `json:"user"`
	SessionID string      `json:"sessionId"`
}
