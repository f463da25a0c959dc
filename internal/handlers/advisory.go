// internal/handlers/advisory.go
package handlers

// Advisory severities, mirrored by the client's toast styles.
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)

// AdvisoryRateLimited is the code sent when a client exceeds its event budget.
const AdvisoryRateLimited = "rate-limited"
