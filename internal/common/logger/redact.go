package logger

// MaskEmail keeps the first three characters of an email for correlation and
// hides the rest. Login and registration never log a full address.
func MaskEmail(email string) string {
	if email == "" {
		return "missing"
	}
	runes := []rune(email)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return string(runes) + "***"
}
