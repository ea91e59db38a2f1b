package card

import (
	"errors"
	"fmt"
)

// AuthorizationStatus is the platform's camera authorization state
type AuthorizationStatus int

const (
	StatusNotDetermined AuthorizationStatus = iota
	StatusRestricted
	StatusDenied
	StatusAuthorized
)

func (s AuthorizationStatus) String() string {
	switch s {
	case StatusNotDetermined:
		return "not_determined"
	case StatusRestricted:
		return "restricted"
	case StatusDenied:
		return "denied"
	case StatusAuthorized:
		return "authorized"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// CameraInitializationError is returned when no capture device or input is available
type CameraInitializationError struct {
	Err error
}

func (e *CameraInitializationError) Error() string {
	if e.Err == nil {
		return "camera initialization failed"
	}
	return fmt.Sprintf("camera initialization failed: %v", e.Err)
}

func (e *CameraInitializationError) Unwrap() error {
	return e.Err
}

// CameraPermissionError is returned when access to the camera is denied or restricted
type CameraPermissionError struct {
	Status AuthorizationStatus
}

func (e *CameraPermissionError) Error() string {
	return fmt.Sprintf("camera permission failed: %s", e.Status)
}

// IsCameraInitialization reports whether err is a camera initialization failure
func IsCameraInitialization(err error) bool {
	var target *CameraInitializationError
	return errors.As(err, &target)
}

// IsCameraPermission reports whether err is a camera permission failure
func IsCameraPermission(err error) bool {
	var target *CameraPermissionError
	return errors.As(err, &target)
}
