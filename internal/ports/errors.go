package ports

type errString string

func (e errString) Error() string { return string(e) }

const (
	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errString("not found")

	// ErrDuplicateIdentifier is returned when a create or update would
	// violate business-identifier uniqueness.
	ErrDuplicateIdentifier = errString("business identifier already exists")

	// Claim-token failures. None of them mutate the target profile.
	ErrTokenExpired   = errString("claim token expired")
	ErrTokenClaimed   = errString("claim token already used")
	ErrTokenExhausted = errString("claim token attempts exhausted")
)
