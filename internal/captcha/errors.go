package captcha

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRejected: the service answered but refused the task. Attempt-local.
	ErrRejected = errors.New("captcha solver rejected the task")
	// ErrZeroBalance is the rejection for an exhausted account balance.
	ErrZeroBalance = errors.New("captcha solver account has no balance")
	// ErrUnsolvable is the rejection for an image the workers gave up on.
	ErrUnsolvable = errors.New("captcha is unsolvable")
	// ErrUnavailable: the service could not be reached at all.
	ErrUnavailable = errors.New("captcha solver unavailable")
)

// RejectedError carries the service's error code.
type RejectedError struct {
	Stage string // "submit" or "poll"
	Code  string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("captcha solver rejected %s: %s", e.Stage, e.Code)
}

func (e *RejectedError) Is(target error) bool {
	switch target {
	case ErrRejected:
		return true
	case ErrZeroBalance:
		return strings.Contains(e.Code, "ERROR_ZERO_BALANCE")
	case ErrUnsolvable:
		return strings.Contains(e.Code, "ERROR_CAPTCHA_UNSOLVABLE")
	}
	return false
}

func unavailable(stage string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, stage, err)
}
