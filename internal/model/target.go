package model

import (
	"net/url"
	"strings"

	apperrors "scandemo/internal/errors"
)

// Messages surfaced to the user when a target is rejected.
const (
	MsgEmptyTarget   = "Please enter a URL"
	MsgInvalidTarget = "Enter a valid URL (e.g. https://example.com)"
)

// TargetError carries the message shown in the validation toast.
type TargetError struct {
	Message string
}

func (e *TargetError) Error() string {
	return e.Message + ": " + apperrors.ErrInvalidTarget.Error()
}

func (e *TargetError) Unwrap() error {
	return apperrors.ErrInvalidTarget
}

// ValidateTarget checks URL syntax only. The target is never contacted.
func ValidateTarget(raw string) (string, error) {
	target := strings.TrimSpace(raw)
	if target == "" {
		return "", &TargetError{Message: MsgEmptyTarget}
	}

	u, err := url.Parse(target)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", &TargetError{Message: MsgInvalidTarget}
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", &TargetError{Message: MsgInvalidTarget}
	}
	return target, nil
}
