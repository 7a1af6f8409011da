package apperrors

// Sentinels for the authorization and credential-exchange pipeline. Adapters
// wrap these with %w so callers match with errors.Is across package
// boundaries. They are typed (not errors.New) so error classification can
// tell them apart when tagging logs and metrics.

type invalidCredentialError struct{}

func (invalidCredentialError) Error() string { return "invalid credential" }

// ErrInvalidCredential marks an inbound credential that is malformed, expired,
// or fails verification. Terminal; never retried.
var ErrInvalidCredential error = invalidCredentialError{}

type sourceUnavailableError struct{}

func (sourceUnavailableError) Error() string { return "permission source unavailable" }

// ErrSourceUnavailable marks a failure of the authoritative permission source.
// Cache failures degrade to a direct load first; this surfaces only when the
// source itself cannot answer. Never reported as a denial.
var ErrSourceUnavailable error = sourceUnavailableError{}

type exchangeFailedError struct{}

func (exchangeFailedError) Error() string { return "credential exchange failed" }

// ErrExchangeFailed marks a failed delegated-credential exchange. Distinct
// from denial: exchange runs strictly after authorization succeeds.
var ErrExchangeFailed error = exchangeFailedError{}
