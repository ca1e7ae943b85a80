package query

import "errors"

var (
	// ErrStoreRequired is returned when the primary vector store is not provided.
	ErrStoreRequired = errors.New("vector store required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrQueryLogDisabled is returned when query records are written without a query log store.
	ErrQueryLogDisabled = errors.New("query log is not configured")

	// ErrUserDataDisabled is returned when user data is written without a user-data store.
	ErrUserDataDisabled = errors.New("user data store is not configured")

	// ErrFeedbackDisabled is returned when feedback is written without a feedback store.
	ErrFeedbackDisabled = errors.New("feedback store is not configured")
)
