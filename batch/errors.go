package batch

import (
	"errors"
	"fmt"
)

// Errors returned by the builders and the materializer. All of them are
// raised synchronously at the offending call; none is recoverable without
// reconfiguring the builder.
var (
	// ErrReservedKey is returned when a parameter key collides with one of
	// the identity keys carried across the scheduler boundary.
	ErrReservedKey = errors.New("reserved parameter key")

	// ErrUnsupportedParameterType is returned when a parameter value cannot
	// be classified as text, float, int, timestamp or Param.
	ErrUnsupportedParameterType = errors.New("unsupported parameter type")

	// ErrMissingJobName is returned by JobDefinitionBuilder.Build when no
	// name was set.
	ErrMissingJobName = errors.New("missing job name")

	// ErrIncompleteTrigger is returned by TriggerBinder.Build when the cron
	// expression or the job definition is absent.
	ErrIncompleteTrigger = errors.New("incomplete trigger")
)

// reservedKeyError returns a reserved key error naming the offending key,
// which unwraps to ErrReservedKey.
func reservedKeyError(key string) error {
	return fmt.Errorf("%w: %q", ErrReservedKey, key)
}

// unsupportedParameterTypeError returns an unsupported type error naming the
// concrete Go type, which unwraps to ErrUnsupportedParameterType.
func unsupportedParameterTypeError(value any) error {
	return fmt.Errorf("%w: %T", ErrUnsupportedParameterType, value)
}

// incompleteTriggerError returns an incomplete trigger error naming the
// missing field, which unwraps to ErrIncompleteTrigger.
func incompleteTriggerError(missing string) error {
	return fmt.Errorf("%w: %s is required", ErrIncompleteTrigger, missing)
}
