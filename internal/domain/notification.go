package domain

// Actions understood by the notification service.
const (
	ActionVerifyAccount = "verify account"
	ActionResetPassword = "reset password"
)

// Notification asks the notification service to deliver a code to an address.
type Notification struct {
	Email  string `json:"email"`
	Action string `json:"action"`
	Code   string `json:"code,omitempty"`
}
