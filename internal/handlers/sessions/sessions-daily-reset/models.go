package sessionsdailyreset

type Output struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	Timestamp      string `json:"timestamp"`
	UsersReset     int    `json:"usersReset"`
	SessionsClosed int64  `json:"sessionsClosed"`
}
