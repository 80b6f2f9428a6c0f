package robot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ZhangJunboX/mcp-hackathon-fall-2025/internal/bcap"
)

// RobotNamesResult lists robots known to the controller.
type RobotNamesResult struct {
	Success    bool     `json:"success"`
	RobotNames []string `json:"robot_names"`
}

// RobotNames lists the robots reachable through the controller.
func (e *Engine) RobotNames(ctx context.Context, option string) (*RobotNamesResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	args := map[string]any{"option": option}
	if err := e.requireController(); err != nil {
		e.finish(opRobotNames, args, nil, err)
		return nil, err
	}

	names, err := e.client.ControllerRobotNames(e.hCtrl, option)
	if err != nil {
		err = errors.Wrap(err, "list robot names")
		e.finish(opRobotNames, args, nil, err)
		return nil, err
	}

	result := &RobotNamesResult{Success: true, RobotNames: names}
	e.finish(opRobotNames, args, result, nil)
	return result, nil
}

// VariableNamesResult lists variable names at either scope.
type VariableNamesResult struct {
	Success       bool     `json:"success"`
	VariableNames []string `json:"variable_names"`
}

// ControllerVariableNames lists controller-scope variables.
func (e *Engine) ControllerVariableNames(ctx context.Context, option string) (*VariableNamesResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	args := map[string]any{"option": option}
	if err := e.requireController(); err != nil {
		e.finish(opCtrlVarNames, args, nil, err)
		return nil, err
	}

	names, err := e.client.ControllerVariableNames(e.hCtrl, option)
	if err != nil {
		err = errors.Wrap(err, "list controller variables")
		e.finish(opCtrlVarNames, args, nil, err)
		return nil, err
	}

	result := &VariableNamesResult{Success: true, VariableNames: names}
	e.finish(opCtrlVarNames, args, result, nil)
	return result, nil
}

// ClearError clears the controller error state.
func (e *Engine) ClearError(ctx context.Context) (*MessageResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireController(); err != nil {
		e.finish(opClearError, nil, nil, err)
		return nil, err
	}

	if _, err := e.client.ControllerExecute(e.hCtrl, bcap.CmdClearError, nil); err != nil {
		err = errors.Wrap(err, "clear controller error")
		e.finish(opClearError, nil, nil, err)
		return nil, err
	}

	result := &MessageResult{Success: true, Message: "Controller error cleared"}
	e.finish(opClearError, nil, result, nil)
	return result, nil
}

// VariableResult carries a single variable read.
type VariableResult struct {
	Success      bool   `json:"success"`
	VariableName string `json:"variable_name"`
	Value        any    `json:"value"`
}

// RobotVariable reads a robot-scope variable. Reads never require arm
// control.
func (e *Engine) RobotVariable(ctx context.Context, name, option string) (*VariableResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	args := map[string]any{"name": name, "option": option}
	if err := e.requireRobot(); err != nil {
		e.finish(opGetVariable, args, nil, err)
		return nil, err
	}
	if name == "" {
		err := validationErrorf("variable name is required")
		e.finish(opGetVariable, args, nil, err)
		return nil, err
	}

	value, err := e.client.RobotVariable(e.hRobot, name, option)
	if err != nil {
		err = errors.Wrapf(err, "read variable %q", name)
		e.finish(opGetVariable, args, nil, err)
		return nil, err
	}

	result := &VariableResult{Success: true, VariableName: name, Value: value}
	e.finish(opGetVariable, args, result, nil)
	return result, nil
}

// RobotVariableNames lists robot-scope variables.
func (e *Engine) RobotVariableNames(ctx context.Context, option string) (*VariableNamesResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	args := map[string]any{"option": option}
	if err := e.requireRobot(); err != nil {
		e.finish(opGetVariableNames, args, nil, err)
		return nil, err
	}

	names, err := e.client.RobotVariableNames(e.hRobot, option)
	if err != nil {
		err = errors.Wrap(err, "list robot variables")
		e.finish(opGetVariableNames, args, nil, err)
		return nil, err
	}

	result := &VariableNamesResult{Success: true, VariableNames: names}
	e.finish(opGetVariableNames, args, result, nil)
	return result, nil
}

// MoveResult reports a single issued motion.
type MoveResult struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Target   []float64 `json:"target"`
	Previous []float64 `json:"previous,omitempty"`
	Warning  string    `json:"warning,omitempty"`
}

const movingWarning = "Robot is moving, please wait for motion to complete and ensure safety"

// parseSpeedOption extracts the value of a Speed=NN fragment from a
// motion option string. The second return is false when no usable
// speed is present.
func parseSpeedOption(option string) (float64, bool) {
	_, rest, found := strings.Cut(option, "Speed=")
	if !found {
		return 0, false
	}
	if end := strings.IndexAny(rest, ", "); end >= 0 {
		rest = rest[:end]
	}
	v, err := strconv.ParseFloat(rest, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// MoveJoint issues a point-to-point move to six joint angles in
// degrees. A Speed=NN fragment in option sets the speed for all axes
// before the move; failure to set speed does not abort the move.
func (e *Engine) MoveJoint(ctx context.Context, angles []float64, option string) (*MoveResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	args := map[string]any{"joint_angles": angles, "option": option}
	if err := e.requireRobot(); err != nil {
		e.finish(opMoveJoint, args, nil, err)
		return nil, err
	}
	if len(angles) != 6 {
		err := validationErrorf("joint angles must be 6 values [j1..j6 in degrees], got %d", len(angles))
		e.finish(opMoveJoint, args, nil, err)
		return nil, err
	}

	// Current angles are informational; a failed read does not block
	// the move.
	previous, err := e.readFloats(bcap.VarCurrentAngle)
	if err != nil {
		e.logger.Debug("current angle read failed", "error", err)
		previous = nil
	}

	if err := e.takeArm(); err != nil {
		e.finish(opMoveJoint, args, nil, err)
		return nil, err
	}

	if speed, ok := parseSpeedOption(option); ok {
		if err := e.client.RobotSpeed(e.hRobot, 0, speed); err != nil {
			e.logger.Warn("speed set from option failed", "speed", speed, "error", err)
		}
	}

	if err := e.client.RobotMove(e.hRobot, bcap.MoveComp, []any{angles, "J", "@E"}, ""); err != nil {
		err = errors.Wrap(err, "joint move")
		e.finish(opMoveJoint, args, nil, err)
		return nil, err
	}

	result := &MoveResult{
		Success:  true,
		Message:  "Robot motion command sent",
		Target:   angles,
		Previous: previous,
		Warning:  movingWarning,
	}
	e.finish(opMoveJoint, args, result, nil)
	return result, nil
}

// MovePose issues a Cartesian move to [x, y, z, rx, ry, rz] in
// millimeters and degrees.
func (e *Engine) MovePose(ctx context.Context, pose []float64, option string) (*MoveResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.movePoseLocked(pose, option)
	e.finish(opMovePose, map[string]any{"pose": pose, "option": option}, result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// movePoseLocked is the shared Cartesian-move path, also used by the
// pick-and-place sequence. Callers must hold the lock.
func (e *Engine) movePoseLocked(pose []float64, option string) (*MoveResult, error) {
	if err := e.requireRobot(); err != nil {
		return nil, err
	}
	if len(pose) != 6 {
		return nil, validationErrorf("pose must be 6 values [x(mm), y(mm), z(mm), rx(deg), ry(deg), rz(deg)], got %d", len(pose))
	}

	previous, err := e.readFloats(bcap.VarCurrentPose)
	if err != nil {
		e.logger.Debug("current position read failed", "error", err)
		previous = nil
	}

	if err := e.takeArm(); err != nil {
		return nil, err
	}

	if err := e.client.RobotMove(e.hRobot, bcap.MoveComp, []any{pose, "P", "@E"}, option); err != nil {
		return nil, errors.Wrap(err, "pose move")
	}

	return &MoveResult{
		Success:  true,
		Message:  "Robot motion command sent",
		Target:   pose,
		Previous: previous,
		Warning:  movingWarning,
	}, nil
}

// GoHomeResult reports a go-home command.
type GoHomeResult struct {
	Success        bool      `json:"success"`
	Message        string    `json:"message"`
	PreviousAngles []float64 `json:"previous_joint_angles,omitempty"`
	Warning        string    `json:"warning"`
}

// GoHome returns the robot to its home position. Stale arm ownership is
// released first so a previous operation's hold cannot block the take.
func (e *Engine) GoHome(ctx context.Context) (*GoHomeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireRobot(); err != nil {
		e.finish(opGoHome, nil, nil, err)
		return nil, err
	}

	previous, err := e.readFloats(bcap.VarCurrentAngle)
	if err != nil {
		e.logger.Debug("current angle read failed", "error", err)
		previous = nil
	}

	e.giveArmBestEffort()

	if err := e.takeArm(); err != nil {
		e.finish(opGoHome, nil, nil, err)
		return nil, err
	}

	if err := e.client.RobotGoHome(e.hRobot); err != nil {
		err = errors.Wrap(err, "go home")
		e.finish(opGoHome, nil, nil, err)
		return nil, err
	}

	result := &GoHomeResult{
		Success:        true,
		Message:        "Robot go home command sent",
		PreviousAngles: previous,
		Warning:        "Robot is moving to home position, please wait for motion to complete",
	}
	e.finish(opGoHome, nil, result, nil)
	return result, nil
}

// SpeedResult reports a speed change.
type SpeedResult struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Axis    int     `json:"axis"`
	Speed   float64 `json:"speed"`
	Note    string  `json:"note"`
}

// SetSpeed sets the motion speed as a percentage. Axis 0 applies to all
// axes, 1 through 6 to a single axis. No arm acquisition is needed; the
// setting only affects later motions.
func (e *Engine) SetSpeed(ctx context.Context, axis int, speed float64) (*SpeedResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	args := map[string]any{"axis": axis, "speed": speed}
	if err := e.requireRobot(); err != nil {
		e.finish(opSetSpeed, args, nil, err)
		return nil, err
	}
	if axis < 0 || axis > 6 {
		err := validationErrorf("axis must be 0 (all axes) or 1-6, got %d", axis)
		e.finish(opSetSpeed, args, nil, err)
		return nil, err
	}

	if err := e.client.RobotSpeed(e.hRobot, axis, speed); err != nil {
		err = errors.Wrap(err, "set speed")
		e.finish(opSetSpeed, args, nil, err)
		return nil, err
	}

	result := &SpeedResult{
		Success: true,
		Message: "Speed set successfully",
		Axis:    axis,
		Speed:   speed,
		Note:    "Speed setting will affect subsequent motion commands",
	}
	e.finish(opSetSpeed, args, result, nil)
	return result, nil
}

// GripperResult reports a gripper actuation.
type GripperResult struct {
	Success  bool    `json:"success"`
	Message  string  `json:"message"`
	Distance float64 `json:"distance"`
	Speed    float64 `json:"speed"`
}

// OpenGripper opens the gripper to distance meters at speed percent.
// Gripper commands go through the controller, so only the controller
// stage is required.
func (e *Engine) OpenGripper(ctx context.Context, distance, speed float64) (*GripperResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.gripperLocked(distance, speed)
	args := map[string]any{"distance": distance, "speed": speed}
	if err == nil {
		result.Message = fmt.Sprintf("Gripper opened to %.3f m", distance)
	}
	e.finish(opOpenGripper, args, result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CloseGripper closes the gripper to distance meters at speed percent.
func (e *Engine) CloseGripper(ctx context.Context, distance, speed float64) (*GripperResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.gripperLocked(distance, speed)
	args := map[string]any{"distance": distance, "speed": speed}
	if err == nil {
		result.Message = fmt.Sprintf("Gripper closed to %.3f m", distance)
	}
	e.finish(opCloseGripper, args, result, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// gripperLocked validates and issues a HandMoveA. The controller takes
// the target in millimeters.
func (e *Engine) gripperLocked(distance, speed float64) (*GripperResult, error) {
	if err := e.requireController(); err != nil {
		return nil, err
	}
	if distance < 0 || distance > e.opts.GripperMax {
		return nil, validationErrorf("gripper distance must be within [0, %.3f] meters, got %.3f", e.opts.GripperMax, distance)
	}

	param := []float64{distance * 1000, speed}
	if _, err := e.client.ControllerExecute(e.hCtrl, bcap.CmdHandMoveA, param); err != nil {
		return nil, errors.Wrap(err, "gripper move")
	}

	return &GripperResult{Success: true, Distance: distance, Speed: speed}, nil
}
