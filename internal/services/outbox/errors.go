package outbox

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("event record not found")
	ErrPassInProgress    = errors.New("outbox pass already in progress")
	ErrInvalidEvent      = errors.New("invalid event")
	ErrEventTypeRequired = errors.New("event type is required")
	ErrHandlerRequired   = errors.New("event handler is required")
)

// StorageError reports that the record store could not durably complete an
// operation. Callers must assume nothing from the failed operation persisted.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("outbox storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// HandlerError reports that a registered handler failed for one event.
// Handler is the zero-based registration index of the failing handler.
type HandlerError struct {
	EventType string
	Handler   int
	Err       error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %d for %s failed: %v", e.Handler, e.EventType, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
