package retry

import (
	"fmt"
	"log/slog"
)

// Policy decides what a failed step means to its caller. It receives the
// step name and its error and returns the error the caller should see.
type Policy func(op string, err error) error

// FailLoud surfaces every failure.
func FailLoud(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// LogAndContinue records the failure and hides it from the caller.
func LogAndContinue(log *slog.Logger) Policy {
	if log == nil {
		log = slog.Default()
	}
	return func(op string, err error) error {
		if err == nil {
			return nil
		}
		log.Warn("best-effort step failed", "op", op, "error", err)
		return nil
	}
}
