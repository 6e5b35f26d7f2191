package dynamo

// DynamoDB attribute names used in keys and expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldAccountID    = "account_id"
	fieldEmail        = "email"
	fieldPasswordHash = "password_hash"
	fieldIsEnabled    = "is_enabled"
	fieldFirstName    = "first_name"
	fieldLastName     = "last_name"
	fieldUpdatedAt    = "updated_at"

	fieldCode         = "code"
	fieldPurpose      = "purpose"
	fieldEmailPurpose = "email_purpose"
	fieldExpiresAt    = "expires_at"

	indexEmailPurpose = "email_purpose-index"
)
