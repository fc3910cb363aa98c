package needlekit

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode uint16

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeCompositionConflict
	ErrCodeMissingRequiredParameter
	ErrCodeExtensionLoad
	ErrCodeResolutionFailed
	ErrCodeServiceNotFound
	ErrCodeCircularDependency
	ErrCodeProviderFailed
	ErrCodeBindingSetSealed
	ErrCodeConfigurationFailed
	ErrCodeStartupFailed
	ErrCodeShutdownFailed
	ErrCodeHealthCheckFailed
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:                  "UNKNOWN",
	ErrCodeCompositionConflict:      "COMPOSITION_CONFLICT",
	ErrCodeMissingRequiredParameter: "MISSING_REQUIRED_PARAMETER",
	ErrCodeExtensionLoad:            "EXTENSION_LOAD",
	ErrCodeResolutionFailed:         "RESOLUTION_FAILED",
	ErrCodeServiceNotFound:          "SERVICE_NOT_FOUND",
	ErrCodeCircularDependency:       "CIRCULAR_DEPENDENCY",
	ErrCodeProviderFailed:           "PROVIDER_FAILED",
	ErrCodeBindingSetSealed:         "BINDING_SET_SEALED",
	ErrCodeConfigurationFailed:      "CONFIGURATION_FAILED",
	ErrCodeStartupFailed:            "STARTUP_FAILED",
	ErrCodeShutdownFailed:           "SHUTDOWN_FAILED",
	ErrCodeHealthCheckFailed:        "HEALTH_CHECK_FAILED",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

type Error struct {
	Code    ErrorCode
	Message string
	Key     Key
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if e.Key != "" {
		b.WriteString(fmt.Sprintf(" key=%q:", e.Key))
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code, so callers can compare
// against sentinel values such as &Error{Code: ErrCodeCompositionConflict}.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) WithKey(key Key) *Error {
	e.Key = key
	return e
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewMissingRequiredParameter reports a feature that was switched on without
// the value it needs.
func NewMissingRequiredParameter(feature, parameter string) *Error {
	return newError(
		ErrCodeMissingRequiredParameter,
		fmt.Sprintf("%s is enabled but %s is not set", feature, parameter),
		nil,
	)
}

// NewConfigurationFailed wraps a failure to obtain the configuration value.
func NewConfigurationFailed(source string, cause error) *Error {
	return newError(
		ErrCodeConfigurationFailed,
		fmt.Sprintf("failed to load configuration from %s", source),
		cause,
	)
}

// NewResolutionFailure reports a root instance that could not be produced
// for key.
func NewResolutionFailure(key Key, cause error) *Error {
	return errResolutionFailed(key, cause)
}

func errDuplicateBinding(key Key, existing, incoming string) *Error {
	return newError(
		ErrCodeCompositionConflict,
		fmt.Sprintf("capability bound by both %s and %s", existing, incoming),
		nil,
	).WithKey(key)
}

func errExtensionConflict(key Key, extension, existing string) *Error {
	return newError(
		ErrCodeCompositionConflict,
		fmt.Sprintf("extension %s may not rebind capability already bound by %s", extension, existing),
		nil,
	).WithKey(key)
}

func errSealed(key Key) *Error {
	return newError(
		ErrCodeBindingSetSealed,
		"binding set is sealed",
		nil,
	).WithKey(key)
}

func errExtensionLoad(provider string, cause error) *Error {
	return newError(
		ErrCodeExtensionLoad,
		fmt.Sprintf("extension provider %s failed to load", provider),
		cause,
	)
}

func errResolutionFailed(key Key, cause error) *Error {
	return newError(
		ErrCodeResolutionFailed,
		fmt.Sprintf("failed to resolve %s", key),
		cause,
	).WithKey(key)
}

func errServiceNotFound(key Key) *Error {
	return newError(
		ErrCodeServiceNotFound,
		"no binding registered",
		nil,
	).WithKey(key)
}

func errTypeMismatch(key Key, want string, got any) *Error {
	return newError(
		ErrCodeResolutionFailed,
		fmt.Sprintf("expected %s, got %T", want, got),
		nil,
	).WithKey(key)
}

func errReservedKey(key Key) *Error {
	return newError(
		ErrCodeResolutionFailed,
		"capability key is reserved by the injector",
		nil,
	).WithKey(key)
}

func errStartupFailed(cause error) *Error {
	return newError(ErrCodeStartupFailed, "failed to start", cause)
}

func errShutdownFailed(cause error) *Error {
	return newError(ErrCodeShutdownFailed, "failed to stop", cause)
}

func errHealthCheckFailed(key Key, cause error) *Error {
	return newError(ErrCodeHealthCheckFailed, "health check failed", cause).WithKey(key)
}

func IsCompositionConflict(err error) bool {
	return hasCode(err, ErrCodeCompositionConflict)
}

func IsMissingRequiredParameter(err error) bool {
	return hasCode(err, ErrCodeMissingRequiredParameter)
}

func IsExtensionLoadWarning(err error) bool {
	return hasCode(err, ErrCodeExtensionLoad)
}

func IsResolutionFailure(err error) bool {
	return hasCode(err, ErrCodeResolutionFailed)
}

func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeServiceNotFound)
}

func IsCircularDependency(err error) bool {
	return hasCode(err, ErrCodeCircularDependency)
}

func IsConfigurationFailed(err error) bool {
	return hasCode(err, ErrCodeConfigurationFailed)
}

func IsStartupFailed(err error) bool {
	return hasCode(err, ErrCodeStartupFailed)
}

func IsShutdownFailed(err error) bool {
	return hasCode(err, ErrCodeShutdownFailed)
}

func IsHealthCheckFailed(err error) bool {
	return hasCode(err, ErrCodeHealthCheckFailed)
}

func hasCode(err error, code ErrorCode) bool {
	return errors.Is(err, &Error{Code: code})
}
