package syncer

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotConfigured  = errors.New("server url is not configured")
	ErrSyncInProgress = errors.New("sync already in progress")
)

// TransportError is a batch that did not reach the server or was refused by
// it. StatusCode is 0 when no response arrived.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("server responded with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("send batch: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
