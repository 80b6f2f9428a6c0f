package robot

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/ZhangJunboX/mcp-hackathon-fall-2025/internal/bcap"
)

// PointDetail describes the outcome of one trajectory point. Index is
// 1-based to match operator-facing numbering.
type PointDetail struct {
	Index  int       `json:"index"`
	Angles []float64 `json:"angles"`
	Status string    `json:"status,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// TrajectoryResult reports a batch motion. Success is true only when
// every point was accepted.
type TrajectoryResult struct {
	Success        bool          `json:"success"`
	Message        string        `json:"message"`
	TotalPoints    int           `json:"total_points"`
	ExecutedPoints int           `json:"executed_points"`
	FailedPoints   int           `json:"failed_points"`
	InitialAngles  []float64     `json:"initial_angles,omitempty"`
	Trajectory     [][]float64   `json:"trajectory,omitempty"`
	ExecutedDetail []PointDetail `json:"executed_details,omitempty"`
	FailedDetail   []PointDetail `json:"failed_details,omitempty"`
	Mode           string        `json:"mode,omitempty"`
	Error          string        `json:"error,omitempty"`
	Warning        string        `json:"warning,omitempty"`
}

func validateTrajectory(trajectory [][]float64) error {
	if len(trajectory) == 0 {
		return validationErrorf("trajectory must contain at least one point")
	}
	for i, point := range trajectory {
		if len(point) != 6 {
			return validationErrorf("trajectory point %d must have 6 joint angle values, got %d", i+1, len(point))
		}
	}
	return nil
}

// initialAnglesBestEffort captures the joint configuration before a
// batch starts. A failed read is logged and ignored.
func (e *Engine) initialAnglesBestEffort() []float64 {
	angles, err := e.readFloats(bcap.VarCurrentAngle)
	if err != nil {
		e.logger.Warn("initial joint angle read failed", "error", err)
		return nil
	}
	if len(angles) > 6 {
		angles = angles[:6]
	}
	return angles
}

// ExecuteTrajectory runs a batch of joint-space moves one point at a
// time. Points are independent: a failed point is recorded and the
// batch moves on to the next one. Arm control is taken once for the
// whole batch after releasing any stale ownership.
func (e *Engine) ExecuteTrajectory(ctx context.Context, trajectory [][]float64, option string) (*TrajectoryResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	args := map[string]any{"trajectory": trajectory, "option": option}

	if err := e.requireRobot(); err != nil {
		e.finish(opTrajectory, args, nil, err)
		return nil, err
	}
	if err := validateTrajectory(trajectory); err != nil {
		e.finish(opTrajectory, args, nil, err)
		return nil, err
	}

	initial := e.initialAnglesBestEffort()

	e.giveArmBestEffort()

	if err := e.takeArm(); err != nil {
		e.finish(opTrajectory, args, nil, err)
		return nil, err
	}

	var executed, failed []PointDetail
	for i, point := range trajectory {
		if err := ctx.Err(); err != nil {
			e.finish(opTrajectory, args, nil, err)
			return nil, err
		}
		err := e.client.RobotMove(e.hRobot, bcap.MoveComp, []any{point, "J", "@E"}, option)
		if err != nil {
			failed = append(failed, PointDetail{Index: i + 1, Angles: point, Error: err.Error()})
			recordPoint("discrete", false)
			e.logger.Error("trajectory point failed",
				"point", i+1, "total", len(trajectory), "error", err)
			continue
		}
		executed = append(executed, PointDetail{Index: i + 1, Angles: point, Status: "success"})
		recordPoint("discrete", true)
		e.logger.Info("trajectory point executed",
			"point", i+1, "total", len(trajectory))
	}

	result := &TrajectoryResult{
		Success:        len(failed) == 0,
		Message:        fmt.Sprintf("Trajectory execution completed: %d/%d points successful", len(executed), len(trajectory)),
		TotalPoints:    len(trajectory),
		ExecutedPoints: len(executed),
		FailedPoints:   len(failed),
		InitialAngles:  initial,
		Trajectory:     trajectory,
		ExecutedDetail: executed,
		FailedDetail:   failed,
		Warning:        "Robot has completed trajectory motion, please check final position",
	}
	e.finish(opTrajectory, args, result, nil)
	return result, nil
}

// slavePoint pads six joint angles to the eight values slvMove expects.
func slavePoint(angles []float64) []float64 {
	point := make([]float64, 8)
	copy(point, angles)
	return point
}

// exitSlaveBestEffort leaves slave mode and releases arm control. It is
// the cleanup for the slave-trajectory failure paths, so the robot is
// never left in slave mode with the arm held.
func (e *Engine) exitSlaveBestEffort() {
	if _, err := e.client.RobotExecute(e.hRobot, bcap.CmdSlaveMode, bcap.SlaveModeExit); err != nil {
		e.logger.Warn("slave mode exit failed", "error", err)
	}
	e.giveArmBestEffort()
}

// ExecuteSlaveTrajectory streams a trajectory through slave mode for
// continuous motion. The first point initializes the stream and its
// failure aborts the whole operation; later points are tolerated like
// discrete-mode points. Slave mode is exited and arm control released
// on every return path.
func (e *Engine) ExecuteSlaveTrajectory(ctx context.Context, trajectory [][]float64, option string) (*TrajectoryResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	args := map[string]any{"trajectory": trajectory, "option": option}

	if err := e.requireRobot(); err != nil {
		e.finish(opSlaveTrajectory, args, nil, err)
		return nil, err
	}
	if err := validateTrajectory(trajectory); err != nil {
		e.finish(opSlaveTrajectory, args, nil, err)
		return nil, err
	}

	initial := e.initialAnglesBestEffort()

	var executed, failed []PointDetail

	// abort builds the failure result after cleanup. The counts so far
	// are reported so a caller can see how far the stream got.
	abort := func(cause error, cleanup bool) (*TrajectoryResult, error) {
		if cleanup {
			e.exitSlaveBestEffort()
		}
		result := &TrajectoryResult{
			Success:        false,
			Message:        fmt.Sprintf("Trajectory execution failed: %s", cause),
			TotalPoints:    len(trajectory),
			ExecutedPoints: len(executed),
			FailedPoints:   len(failed),
			InitialAngles:  initial,
			Error:          cause.Error(),
		}
		e.finish(opSlaveTrajectory, args, result, nil)
		return result, nil
	}

	if _, err := e.client.RobotExecute(e.hRobot, bcap.CmdTakeArm, []int{0, 0}); err != nil {
		return abort(errors.Wrap(err, "take arm control"), true)
	}

	e.logger.Info("entering slave mode")
	if _, err := e.client.RobotExecute(e.hRobot, bcap.CmdSlaveMode, bcap.SlaveModeEnter); err != nil {
		return abort(errors.Wrap(err, "enter slave mode"), true)
	}

	if err := e.sleep(ctx, e.opts.SlavePause); err != nil {
		return abort(err, true)
	}

	// First point is the stream's reference; without it there is no
	// safe continuation.
	if _, err := e.client.RobotExecute(e.hRobot, bcap.CmdSlaveMove, slavePoint(trajectory[0])); err != nil {
		failed = append(failed, PointDetail{Index: 1, Angles: trajectory[0], Error: err.Error()})
		recordPoint("slave", false)
		e.logger.Error("slave trajectory initialization point failed", "error", err)
		return abort(errors.Wrap(err, "initialization point"), true)
	}
	executed = append(executed, PointDetail{Index: 1, Angles: trajectory[0], Status: "success"})
	recordPoint("slave", true)

	for i := 1; i < len(trajectory); i++ {
		if err := ctx.Err(); err != nil {
			return abort(err, true)
		}
		if _, err := e.client.RobotExecute(e.hRobot, bcap.CmdSlaveMove, slavePoint(trajectory[i])); err != nil {
			failed = append(failed, PointDetail{Index: i + 1, Angles: trajectory[i], Error: err.Error()})
			recordPoint("slave", false)
			e.logger.Error("slave trajectory point failed",
				"point", i+1, "total", len(trajectory), "error", err)
			continue
		}
		executed = append(executed, PointDetail{Index: i + 1, Angles: trajectory[i], Status: "success"})
		recordPoint("slave", true)
	}

	if err := e.sleep(ctx, e.opts.SlavePause); err != nil {
		return abort(err, true)
	}

	// A failed mode exit leaves the robot physically in slave mode, so
	// the stream cannot be reported as successful.
	e.logger.Info("exiting slave mode")
	if _, err := e.client.RobotExecute(e.hRobot, bcap.CmdSlaveMode, bcap.SlaveModeExit); err != nil {
		return abort(errors.Wrap(err, "exit slave mode"), true)
	}

	if err := e.sleep(ctx, e.opts.SlavePause); err != nil {
		return abort(err, true)
	}
	if _, err := e.client.RobotExecute(e.hRobot, bcap.CmdGiveArm, nil); err != nil {
		return abort(errors.Wrap(err, "release arm control"), true)
	}

	result := &TrajectoryResult{
		Success:        len(failed) == 0,
		Message:        fmt.Sprintf("Slave mode trajectory execution completed: %d/%d points successful", len(executed), len(trajectory)),
		TotalPoints:    len(trajectory),
		ExecutedPoints: len(executed),
		FailedPoints:   len(failed),
		InitialAngles:  initial,
		Trajectory:     trajectory,
		ExecutedDetail: executed,
		FailedDetail:   failed,
		Mode:           "slave",
		Warning:        "Robot has completed slave mode trajectory motion, please check final position",
	}
	e.finish(opSlaveTrajectory, args, result, nil)
	return result, nil
}
