package usecase

import "errors"

const (
	CodeNotFound         = "NOT_FOUND"
	CodeValidation       = "VALIDATION_FAILED"
	CodeInvalidEmail     = "INVALID_EMAIL"
	CodeWorkflowStart    = "WORKFLOW_START_FAILED"
	CodeDatabase         = "DATABASE_ERROR"
	CodeDuplicateGuard   = "EVENT_GUARD_FAILED"
	CodeInvalidLeadValue = "INVALID_LEAD_VALUE"
)

// DomainError is a failure caused by the caller's input or by state the
// caller can see, such as a missing lead.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

func IsDomainError(err error) bool {
	var d *DomainError
	return errors.As(err, &d)
}

// TechnicalError is an infrastructure failure the caller cannot fix.
type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error { return e.Err }

func IsTechnicalError(err error) bool {
	var t *TechnicalError
	return errors.As(err, &t)
}

// ErrorCode returns the code of a DomainError or TechnicalError in err's chain.
func ErrorCode(err error) string {
	var d *DomainError
	if errors.As(err, &d) {
		return d.Code
	}
	var t *TechnicalError
	if errors.As(err, &t) {
		return t.Code
	}
	return ""
}
