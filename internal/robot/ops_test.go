package robot

import (
	"context"
	"errors"
	"testing"
)

func TestRobotNames(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	connectAll(t, e)

	result, err := e.RobotNames(ctx, "")
	if err != nil {
		t.Fatalf("RobotNames failed: %v", err)
	}
	if len(result.RobotNames) != 1 || result.RobotNames[0] != "Arm" {
		t.Errorf("unexpected robot names: %v", result.RobotNames)
	}
}

func TestRobotVariableRead(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	ctx := context.Background()
	connectAll(t, e)

	result, err := e.RobotVariable(ctx, "@CURRENT_ANGLE", "")
	if err != nil {
		t.Fatalf("RobotVariable failed: %v", err)
	}
	angles, ok := result.Value.([]float64)
	if !ok || len(angles) != 6 {
		t.Fatalf("unexpected value: %v", result.Value)
	}
	// Reads never take arm control.
	if sim.ArmHeld() {
		t.Error("variable read must not hold arm control")
	}
	if sim.CallCount("TakeArm") != 0 {
		t.Error("variable read must not call TakeArm")
	}
}

func TestRobotVariableEmptyName(t *testing.T) {
	e, _, _ := newTestEngine(t)
	connectAll(t, e)

	var verr *ValidationError
	if _, err := e.RobotVariable(context.Background(), "", ""); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMoveJointTakesArmBeforeMove(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	ctx := context.Background()
	connectAll(t, e)

	target := []float64{10, 20, 30, 40, 50, 60}
	result, err := e.MoveJoint(ctx, target, "")
	if err != nil {
		t.Fatalf("MoveJoint failed: %v", err)
	}
	if !result.Success {
		t.Error("expected success")
	}
	if len(result.Previous) != 6 {
		t.Errorf("expected previous angles, got %v", result.Previous)
	}

	calls := sim.Calls()
	take, move := -1, -1
	for i, op := range calls {
		switch op {
		case "TakeArm":
			take = i
		case "RobotMove":
			move = i
		}
	}
	if take == -1 || move == -1 || take > move {
		t.Errorf("TakeArm must precede the move: %v", calls)
	}
}

func TestMoveJointArityValidation(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	connectAll(t, e)

	var verr *ValidationError
	if _, err := e.MoveJoint(context.Background(), []float64{1, 2, 3}, ""); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if sim.CallCount("RobotMove") != 0 {
		t.Error("invalid arity must not reach the client")
	}
	if sim.CallCount("TakeArm") != 0 {
		t.Error("invalid arity must not take arm control")
	}
}

func TestMoveJointTakeArmFailureAborts(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	connectAll(t, e)

	sim.FailWith("TakeArm", nil)
	if _, err := e.MoveJoint(context.Background(), []float64{0, 0, 0, 0, 0, 0}, ""); err == nil {
		t.Fatal("expected take arm failure to surface")
	}
	if sim.CallCount("RobotMove") != 0 {
		t.Error("move must not be issued after failed arm acquisition")
	}
}

func TestMoveJointSpeedOption(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	connectAll(t, e)

	if _, err := e.MoveJoint(context.Background(), []float64{0, 0, 90, 0, 90, 0}, "Speed=25"); err != nil {
		t.Fatalf("MoveJoint failed: %v", err)
	}
	if sim.CallCount("RobotSpeed") != 1 {
		t.Errorf("expected speed set from option, got %d calls", sim.CallCount("RobotSpeed"))
	}
}

func TestMoveJointSpeedFailureDoesNotAbort(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	connectAll(t, e)

	sim.FailWith("RobotSpeed", nil)
	result, err := e.MoveJoint(context.Background(), []float64{0, 0, 90, 0, 90, 0}, "Speed=25")
	if err != nil {
		t.Fatalf("MoveJoint failed: %v", err)
	}
	if !result.Success {
		t.Error("speed set failure must not fail the move")
	}
	if sim.CallCount("RobotMove") != 1 {
		t.Error("move must still be issued")
	}
}

func TestMovePoseArityValidation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	connectAll(t, e)

	var verr *ValidationError
	if _, err := e.MovePose(context.Background(), []float64{1, 2, 3, 4, 5}, ""); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMovePoseUpdatesPosition(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	connectAll(t, e)

	target := []float64{400, 50, 250, 180, 0, 180}
	result, err := e.MovePose(ctx, target, "")
	if err != nil {
		t.Fatalf("MovePose failed: %v", err)
	}
	if len(result.Previous) != 6 || result.Previous[0] != 350 {
		t.Errorf("unexpected previous pose: %v", result.Previous)
	}

	read, err := e.RobotVariable(ctx, "@CURRENT_POSITION", "")
	if err != nil {
		t.Fatalf("RobotVariable failed: %v", err)
	}
	now, _ := read.Value.([]float64)
	if len(now) != 6 || now[0] != 400 || now[1] != 50 {
		t.Errorf("move did not land on target: %v", now)
	}
}

func TestGoHomeReleasesStaleOwnershipFirst(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	connectAll(t, e)

	if _, err := e.GoHome(context.Background()); err != nil {
		t.Fatalf("GoHome failed: %v", err)
	}

	calls := sim.Calls()
	give, take, home := -1, -1, -1
	for i, op := range calls {
		switch op {
		case "GiveArm":
			give = i
		case "TakeArm":
			take = i
		case "RobotGoHome":
			home = i
		}
	}
	if give == -1 || take == -1 || home == -1 {
		t.Fatalf("missing calls: %v", calls)
	}
	if !(give < take && take < home) {
		t.Errorf("expected GiveArm < TakeArm < RobotGoHome order: %v", calls)
	}
}

func TestGoHomeToleratesGiveArmFailure(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	connectAll(t, e)

	sim.FailWith("GiveArm", nil)
	result, err := e.GoHome(context.Background())
	if err != nil {
		t.Fatalf("GoHome must tolerate GiveArm failure: %v", err)
	}
	if !result.Success {
		t.Error("expected success")
	}
}

func TestSetSpeedAxisValidation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	connectAll(t, e)

	var verr *ValidationError
	for _, axis := range []int{-1, 7, 100} {
		if _, err := e.SetSpeed(ctx, axis, 50); !errors.As(err, &verr) {
			t.Errorf("axis %d: expected validation error, got %v", axis, err)
		}
	}
	for _, axis := range []int{0, 1, 6} {
		if _, err := e.SetSpeed(ctx, axis, 50); err != nil {
			t.Errorf("axis %d: unexpected error %v", axis, err)
		}
	}
}

func TestSetSpeedRequiresNoArm(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	connectAll(t, e)

	if _, err := e.SetSpeed(context.Background(), 0, 30); err != nil {
		t.Fatalf("SetSpeed failed: %v", err)
	}
	if sim.CallCount("TakeArm") != 0 {
		t.Error("speed set must not take arm control")
	}
}

func TestGripperBounds(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	connectAll(t, e)

	var verr *ValidationError
	if _, err := e.OpenGripper(ctx, 0.05, 100); !errors.As(err, &verr) {
		t.Errorf("0.05 m must be rejected, got %v", err)
	}
	if _, err := e.CloseGripper(ctx, -0.01, 20); !errors.As(err, &verr) {
		t.Errorf("negative distance must be rejected, got %v", err)
	}

	// Both interval endpoints are valid.
	if _, err := e.OpenGripper(ctx, 0.03, 100); err != nil {
		t.Errorf("0.03 m must be accepted: %v", err)
	}
	if _, err := e.CloseGripper(ctx, 0, 20); err != nil {
		t.Errorf("0 m must be accepted: %v", err)
	}
}

func TestGripperNeedsOnlyController(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := e.Connect(ctx, "192.168.0.1", 5007, 3.0); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if _, err := e.ConnectController(ctx, "", "", "", ""); err != nil {
		t.Fatalf("ConnectController failed: %v", err)
	}

	// No robot stage; the gripper goes through the controller.
	if _, err := e.OpenGripper(ctx, 0.03, 100); err != nil {
		t.Errorf("gripper must work without robot stage: %v", err)
	}
}

func TestGripperDistanceConversion(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	connectAll(t, e)

	if _, err := e.OpenGripper(context.Background(), 0.03, 100); err != nil {
		t.Fatalf("OpenGripper failed: %v", err)
	}
	if sim.CallCount("HandMoveA") != 1 {
		t.Fatalf("expected 1 HandMoveA call, got %d", sim.CallCount("HandMoveA"))
	}
}
