package robot

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/ZhangJunboX/mcp-hackathon-fall-2025/internal/bcap"
)

// PickPlaceParams configures the pick-and-place sequence. Distances are
// in centimeters. StopOnError aborts the sequence at the first failed
// step instead of continuing through the remaining steps.
type PickPlaceParams struct {
	PickDownDistance  float64 `json:"pick_down_distance"`
	LiftUpDistance    float64 `json:"lift_up_distance"`
	PlaceYOffset      float64 `json:"place_y_offset"`
	PlaceDownDistance float64 `json:"place_down_distance"`
	GripperSpeed      float64 `json:"gripper_speed"`
	StopOnError       bool    `json:"stop_on_error,omitempty"`
}

// DefaultPickPlaceParams returns the stock geometry for the demo table
// setup.
func DefaultPickPlaceParams() PickPlaceParams {
	return PickPlaceParams{
		PickDownDistance:  4.0,
		LiftUpDistance:    9.0,
		PlaceYOffset:      2.5,
		PlaceDownDistance: 3.0,
		GripperSpeed:      100,
	}
}

// StepResult records one step of the sequence.
type StepResult struct {
	Step       int       `json:"step"`
	Action     string    `json:"action"`
	Position   []float64 `json:"position,omitempty"`
	DistanceMM float64   `json:"distance_mm,omitempty"`
	GripperMM  float64   `json:"gripper_distance_mm,omitempty"`
	Speed      float64   `json:"speed,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// PickPlaceResult reports the full sequence. Success is true only when
// no step failed.
type PickPlaceResult struct {
	Success         bool            `json:"success"`
	Message         string          `json:"message"`
	InitialPosition []float64       `json:"initial_position,omitempty"`
	FinalPosition   []float64       `json:"final_position,omitempty"`
	Parameters      PickPlaceParams `json:"parameters"`
	Steps           []StepResult    `json:"steps"`
	Errors          []string        `json:"errors,omitempty"`
	Warning         string          `json:"warning,omitempty"`
}

// Gripper openings used by the sequence, in millimeters. The grip
// closure leaves room for the object instead of closing fully.
const (
	gripOpenMM  = 30.0
	gripCloseMM = 21.0
)

// PickAndPlace runs the fixed pick-and-place sequence around the pose
// the arm currently holds:
//
//  0. capture initial pose (fatal on failure)
//  1. open gripper
//  2. move down to the pick position
//  3. close gripper onto the object
//  4. lift in three equal sub-steps (steps 4 through 6)
//  7. shift along Y to the place position
//  8. move down to place
//  9. open gripper
//  10. return to the initial pose
//
// Steps after 0 are independent: a failure is recorded and the sequence
// continues, unless StopOnError is set. No compensation is performed;
// the return at step 10 is the only built-in recovery and it runs even
// after earlier failures.
func (e *Engine) PickAndPlace(ctx context.Context, params PickPlaceParams) (*PickPlaceResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	def := DefaultPickPlaceParams()
	if params.PickDownDistance == 0 {
		params.PickDownDistance = def.PickDownDistance
	}
	if params.LiftUpDistance == 0 {
		params.LiftUpDistance = def.LiftUpDistance
	}
	if params.PlaceYOffset == 0 {
		params.PlaceYOffset = def.PlaceYOffset
	}
	if params.PlaceDownDistance == 0 {
		params.PlaceDownDistance = def.PlaceDownDistance
	}
	if params.GripperSpeed == 0 {
		params.GripperSpeed = def.GripperSpeed
	}

	args := map[string]any{
		"pick_down_distance":  params.PickDownDistance,
		"lift_up_distance":    params.LiftUpDistance,
		"place_y_offset":      params.PlaceYOffset,
		"place_down_distance": params.PlaceDownDistance,
		"gripper_speed":       params.GripperSpeed,
	}

	if err := e.requireRobot(); err != nil {
		e.finish(opPickAndPlace, args, nil, err)
		return nil, err
	}

	pickDownMM := params.PickDownDistance * 10
	liftUpMM := params.LiftUpDistance * 10
	placeYMM := params.PlaceYOffset * 10
	placeDownMM := params.PlaceDownDistance * 10

	// Without a reference pose there is no sequence to run.
	initial, err := e.readFloats(bcap.VarCurrentPose)
	if err != nil || len(initial) < 6 {
		if err == nil {
			err = errors.Errorf("initial position has %d components, need 6", len(initial))
		}
		err = errors.Wrap(err, "capture initial position")
		e.finish(opPickAndPlace, args, nil, err)
		return nil, err
	}
	initial = initial[:6]
	x, y, z := initial[0], initial[1], initial[2]
	rx, ry, rz := initial[3], initial[4], initial[5]

	seq := &pickPlaceRun{engine: e, ctx: ctx, stopOnError: params.StopOnError}
	seq.steps = append(seq.steps, StepResult{
		Step:     0,
		Action:   "get_initial_position",
		Position: initial,
		Status:   "success",
	})

	seq.gripper(1, "open_gripper", gripOpenMM, params.GripperSpeed)

	pickZ := z - pickDownMM
	seq.move(2, "move_down_to_pick", []float64{x, y, pickZ, rx, ry, rz}, pickDownMM, e.opts.SettleLong)

	seq.gripper(3, "close_gripper", gripCloseMM, params.GripperSpeed)

	// A lift sub-step that never acquired arm control has not risen, so
	// the working height advances only past that point.
	stepUpMM := liftUpMM / 3
	currentZ := pickZ
	for i := 0; i < 3; i++ {
		liftZ := currentZ + stepUpMM
		if seq.move(4+i, fmt.Sprintf("lift_up_%d", i+1), []float64{x, y, liftZ, rx, ry, rz}, stepUpMM, e.opts.SettleShort) {
			currentZ = liftZ
		}
	}

	placeY := y + placeYMM
	seq.move(7, "move_y_to_place", []float64{x, placeY, currentZ, rx, ry, rz}, placeYMM, e.opts.SettleLong)

	placeZ := currentZ - placeDownMM
	seq.move(8, "move_down_to_place", []float64{x, placeY, placeZ, rx, ry, rz}, placeDownMM, e.opts.SettleLong)

	seq.gripper(9, "open_gripper", gripOpenMM, params.GripperSpeed)

	seq.move(10, "return_to_initial_position", initial, 0, e.opts.SettleLong)

	// Final pose is informational and captured regardless of failures.
	final, err := e.readFloats(bcap.VarCurrentPose)
	if err != nil {
		e.logger.Warn("final position read failed", "error", err)
		final = nil
	} else if len(final) > 6 {
		final = final[:6]
	}

	result := &PickPlaceResult{
		Success:         len(seq.errors) == 0,
		Message:         fmt.Sprintf("Pick-and-place operation completed: %d steps (including initial position record), %d errors", len(seq.steps), len(seq.errors)),
		InitialPosition: initial,
		FinalPosition:   final,
		Parameters:      params,
		Steps:           seq.steps,
		Errors:          seq.errors,
		Warning:         "Robot has completed pick-and-place operation, please check final position",
	}
	e.finish(opPickAndPlace, args, result, nil)
	return result, nil
}

// pickPlaceRun accumulates step outcomes for one sequence. Once a step
// fails under stopOnError, or the context is canceled, later steps are
// skipped rather than attempted.
type pickPlaceRun struct {
	engine      *Engine
	ctx         context.Context
	stopOnError bool
	stopped     bool
	steps       []StepResult
	errors      []string
}

func (r *pickPlaceRun) fail(step int, action string, err error) {
	msg := fmt.Sprintf("Step %d failed: %s", step, err)
	r.errors = append(r.errors, msg)
	r.steps = append(r.steps, StepResult{Step: step, Action: action, Status: "failed", Error: msg})
	if r.stopOnError {
		r.stopped = true
	}
}

func (r *pickPlaceRun) skip(step int, action string) bool {
	if !r.stopped && r.ctx.Err() != nil {
		r.stopped = true
		r.errors = append(r.errors, fmt.Sprintf("Sequence canceled: %s", r.ctx.Err()))
	}
	if r.stopped {
		r.steps = append(r.steps, StepResult{Step: step, Action: action, Status: "skipped"})
		return true
	}
	return false
}

// gripper actuates the hand through the controller. The target is
// already in millimeters.
func (r *pickPlaceRun) gripper(step int, action string, distMM, speed float64) {
	if r.skip(step, action) {
		return
	}
	e := r.engine
	if _, err := e.client.ControllerExecute(e.hCtrl, bcap.CmdHandMoveA, []float64{distMM, speed}); err != nil {
		r.fail(step, action, err)
		return
	}
	r.steps = append(r.steps, StepResult{
		Step:      step,
		Action:    action,
		GripperMM: distMM,
		Speed:     speed,
		Status:    "success",
	})
	r.settle(e.opts.SettleShort)
}

// move takes the arm and issues a Cartesian move, then waits for the
// hardware to settle. It reports whether arm control was acquired,
// which is the point the lift loop considers its height committed.
func (r *pickPlaceRun) move(step int, action string, pose []float64, distMM float64, settle time.Duration) bool {
	if r.skip(step, action) {
		return false
	}
	e := r.engine
	if _, err := e.client.RobotExecute(e.hRobot, bcap.CmdTakeArm, []int{0, 0}); err != nil {
		r.fail(step, action, err)
		return false
	}
	if err := e.client.RobotMove(e.hRobot, bcap.MoveComp, []any{pose, "P", "@E"}, ""); err != nil {
		r.fail(step, action, err)
		return true
	}
	r.steps = append(r.steps, StepResult{
		Step:       step,
		Action:     action,
		Position:   pose,
		DistanceMM: distMM,
		Status:     "success",
	})
	r.settle(settle)
	return true
}

// settle waits out a motion delay. A canceled context surfaces at the
// next step's skip check.
func (r *pickPlaceRun) settle(d time.Duration) {
	_ = r.engine.sleep(r.ctx, d)
}
