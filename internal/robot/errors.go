package robot

import (
	"errors"
	"fmt"

	"github.com/ZhangJunboX/mcp-hackathon-fall-2025/internal/bcap"
)

// Stage identifies a connection stage a precondition refers to.
type Stage string

const (
	StageNetwork    Stage = "connect"
	StageController Stage = "controller-connect"
	StageRobot      Stage = "robot-connect"
)

// PreconditionError reports that a required connection stage has not
// been established for the requested operation.
type PreconditionError struct {
	Stage Stage
}

func (e *PreconditionError) Error() string {
	switch e.Stage {
	case StageNetwork:
		return "not connected: establish the network connection first"
	case StageController:
		return "controller not connected: connect to the controller first"
	case StageRobot:
		return "robot not connected: connect to the robot first"
	default:
		return fmt.Sprintf("connection stage %q not established", string(e.Stage))
	}
}

// ValidationError reports malformed input rejected before any protocol
// call was issued.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Classify maps any failure to the user-facing description and, for
// protocol-level errors, the numeric result code for the envelope.
func Classify(err error) (string, *int32) {
	var pe *bcap.ProtocolError
	if errors.As(err, &pe) {
		code := int32(pe.Code)
		return fmt.Sprintf("protocol error: %s", bcap.Describe(pe.Code)), &code
	}
	return err.Error(), nil
}
