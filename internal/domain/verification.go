package domain

// CodePurpose scopes a one-time code to the single action it authorizes.
type CodePurpose string

const (
	PurposeVerifyAccount CodePurpose = "verify-account"
	PurposeResetPassword CodePurpose = "reset-password"
)

// Action is the wording the notification service expects for this purpose.
func (p CodePurpose) Action() string {
	switch p {
	case PurposeVerifyAccount:
		return ActionVerifyAccount
	case PurposeResetPassword:
		return ActionResetPassword
	}
	return string(p)
}

// VerificationCode is a single-use code. PK: code.
// EmailPurpose ("email#purpose") backs the lookup of earlier codes for the same account and action.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type VerificationCode struct {
	Code         string      `json:"code" dynamodbav:"code"`
	Email        string      `json:"email" dynamodbav:"email"`
	Purpose      CodePurpose `json:"purpose" dynamodbav:"purpose"`
	EmailPurpose string      `json:"-" dynamodbav:"email_purpose"`
	ExpiresAt    int64       `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

// EmailPurposeKey builds the composite attribute stored in EmailPurpose.
func EmailPurposeKey(email string, purpose CodePurpose) string {
	return email + "#" + string(purpose)
}
