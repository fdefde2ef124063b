package approval

import "errors"

var (
	// ErrFinalized is returned when acting on an already approved application.
	ErrFinalized = errors.New("application already approved")
	// ErrInProgress is returned when another approval action holds the application.
	ErrInProgress = errors.New("application is being processed")
	// ErrNoCredentialStored is returned when the wallet stored nothing.
	ErrNoCredentialStored = errors.New("wallet returned no credential id")
)

// StepError reports a workflow that stopped part way. Steps in Completed
// took effect and were not undone.
type StepError struct {
	Step      string
	Completed []string
	Err       error
}

func (e *StepError) Error() string {
	return e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}
