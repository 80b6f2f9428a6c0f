package robot

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testTrajectory(n int) [][]float64 {
	points := make([][]float64, n)
	for i := range points {
		points[i] = []float64{float64(i * 10), 0, 90, 0, 90, 0}
	}
	return points
}

func TestTrajectoryAllPointsSucceed(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	connectAll(t, e)

	result, err := e.ExecuteTrajectory(context.Background(), testTrajectory(3), "")
	if err != nil {
		t.Fatalf("ExecuteTrajectory failed: %v", err)
	}
	if !result.Success {
		t.Error("expected success")
	}
	if result.ExecutedPoints != 3 || result.FailedPoints != 0 {
		t.Errorf("expected 3 executed, 0 failed; got %d, %d", result.ExecutedPoints, result.FailedPoints)
	}
	if len(result.InitialAngles) != 6 {
		t.Errorf("expected initial angles, got %v", result.InitialAngles)
	}
	// Arm control is taken once for the whole batch.
	if got := sim.CallCount("TakeArm"); got != 1 {
		t.Errorf("expected 1 TakeArm for the batch, got %d", got)
	}
}

func TestTrajectoryArityValidatedBeforeMotion(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	connectAll(t, e)

	points := [][]float64{
		{0, 0, 90, 0, 90, 0},
		{10, 20, 30}, // short
	}
	var verr *ValidationError
	if _, err := e.ExecuteTrajectory(context.Background(), points, ""); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if sim.CallCount("RobotMove") != 0 {
		t.Error("validation must abort before any motion")
	}
	if sim.CallCount("TakeArm") != 0 {
		t.Error("validation must abort before arm acquisition")
	}
}

func TestTrajectoryEmpty(t *testing.T) {
	e, _, _ := newTestEngine(t)
	connectAll(t, e)

	var verr *ValidationError
	if _, err := e.ExecuteTrajectory(context.Background(), nil, ""); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for empty trajectory, got %v", err)
	}
}

func TestTrajectoryContinuesPastFailedPoint(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	connectAll(t, e)

	sim.FailOnCall("RobotMove", 2, nil)

	result, err := e.ExecuteTrajectory(context.Background(), testTrajectory(3), "")
	if err != nil {
		t.Fatalf("partial failure must not surface as an error: %v", err)
	}
	if result.Success {
		t.Error("a failed point must fail the batch result")
	}
	if result.ExecutedPoints != 2 || result.FailedPoints != 1 {
		t.Errorf("expected 2 executed, 1 failed; got %d, %d", result.ExecutedPoints, result.FailedPoints)
	}
	if len(result.FailedDetail) != 1 || result.FailedDetail[0].Index != 2 {
		t.Errorf("unexpected failed detail: %+v", result.FailedDetail)
	}
	if result.FailedDetail[0].Error == "" {
		t.Error("failed point must carry error text")
	}
	// All three points were attempted.
	if got := sim.CallCount("RobotMove"); got != 3 {
		t.Errorf("expected 3 move attempts, got %d", got)
	}
}

func TestTrajectoryTakeArmFailureAborts(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	connectAll(t, e)

	sim.FailWith("TakeArm", nil)
	if _, err := e.ExecuteTrajectory(context.Background(), testTrajectory(2), ""); err == nil {
		t.Fatal("expected take arm failure to surface")
	}
	if sim.CallCount("RobotMove") != 0 {
		t.Error("no points may run without arm control")
	}
}

func TestSlaveTrajectoryCleanRun(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	connectAll(t, e)

	result, err := e.ExecuteSlaveTrajectory(context.Background(), testTrajectory(4), "")
	if err != nil {
		t.Fatalf("ExecuteSlaveTrajectory failed: %v", err)
	}
	if !result.Success {
		t.Errorf("expected success, got %+v", result)
	}
	if result.Mode != "slave" {
		t.Errorf("expected slave mode tag, got %q", result.Mode)
	}
	if result.ExecutedPoints != 4 {
		t.Errorf("expected 4 executed points, got %d", result.ExecutedPoints)
	}
	if sim.SlaveActive() {
		t.Error("slave mode must be exited after a clean run")
	}
	if sim.ArmHeld() {
		t.Error("arm control must be released after a clean run")
	}
	if got := sim.CallCount("slvMove"); got != 4 {
		t.Errorf("expected 4 slvMove calls, got %d", got)
	}
}

func TestSlaveTrajectoryFirstPointFatal(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	connectAll(t, e)

	sim.FailOnCall("slvMove", 1, nil)

	result, err := e.ExecuteSlaveTrajectory(context.Background(), testTrajectory(3), "")
	if err != nil {
		t.Fatalf("fatal first point returns a structured result, not an error: %v", err)
	}
	if result.Success {
		t.Error("first point failure must fail the operation")
	}
	if result.Error == "" {
		t.Error("expected error text in result")
	}
	// Later points are never attempted.
	if got := sim.CallCount("slvMove"); got != 1 {
		t.Errorf("expected exactly 1 slvMove attempt, got %d", got)
	}
	// Cleanup still runs.
	if sim.SlaveActive() {
		t.Error("slave mode must be exited on abort")
	}
	if sim.ArmHeld() {
		t.Error("arm control must be released on abort")
	}
}

func TestSlaveTrajectoryLaterPointContinues(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	connectAll(t, e)

	sim.FailOnCall("slvMove", 2, nil)

	result, err := e.ExecuteSlaveTrajectory(context.Background(), testTrajectory(3), "")
	if err != nil {
		t.Fatalf("ExecuteSlaveTrajectory failed: %v", err)
	}
	if result.Success {
		t.Error("a failed point must fail the result")
	}
	if result.ExecutedPoints != 2 || result.FailedPoints != 1 {
		t.Errorf("expected 2 executed, 1 failed; got %d, %d", result.ExecutedPoints, result.FailedPoints)
	}
	// All points attempted despite the mid-stream failure.
	if got := sim.CallCount("slvMove"); got != 3 {
		t.Errorf("expected 3 slvMove attempts, got %d", got)
	}
	if sim.SlaveActive() || sim.ArmHeld() {
		t.Error("cleanup must run after a partial stream")
	}
}

func TestSlaveTrajectoryModeEnterFailureCleansUp(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	connectAll(t, e)

	sim.FailOnCall("slvChangeMode", 1, nil)

	result, err := e.ExecuteSlaveTrajectory(context.Background(), testTrajectory(2), "")
	if err != nil {
		t.Fatalf("mode failure returns a structured result: %v", err)
	}
	if result.Success {
		t.Error("mode enter failure must fail the operation")
	}
	if sim.CallCount("slvMove") != 0 {
		t.Error("no points may stream without slave mode")
	}
	if sim.ArmHeld() {
		t.Error("arm control must be released after mode failure")
	}
}

func TestSlaveTrajectoryPadsPointsToEight(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	connectAll(t, e)

	angles := []float64{10, 20, 30, 40, 50, 60}
	if _, err := e.ExecuteSlaveTrajectory(context.Background(), [][]float64{angles}, ""); err != nil {
		t.Fatalf("ExecuteSlaveTrajectory failed: %v", err)
	}
	moves := sim.CallsFor("slvMove")
	if len(moves) != 1 {
		t.Fatalf("expected 1 slvMove, got %d", len(moves))
	}
	sent, ok := moves[0].Param.([]float64)
	if !ok || len(sent) != 8 {
		t.Fatalf("slvMove point must carry 8 values, got %v", moves[0].Param)
	}
	for i, want := range angles {
		if sent[i] != want {
			t.Errorf("joint %d: expected %v, got %v", i, want, sent[i])
		}
	}
	if sent[6] != 0 || sent[7] != 0 {
		t.Errorf("padding values must be zero, got %v", sent[6:])
	}
}

func TestSlaveTrajectoryModeExitFailureFails(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	connectAll(t, e)

	// Enter succeeds, exit fails once; the cleanup retry then succeeds.
	sim.FailOnCall("slvChangeMode", 2, nil)

	result, err := e.ExecuteSlaveTrajectory(context.Background(), testTrajectory(2), "")
	if err != nil {
		t.Fatalf("exit failure returns a structured result: %v", err)
	}
	if result.Success {
		t.Error("a robot left in slave mode must not report success")
	}
	if result.Error == "" {
		t.Error("expected error text in result")
	}
	if result.ExecutedPoints != 2 {
		t.Errorf("expected 2 executed points before the exit failure, got %d", result.ExecutedPoints)
	}
	if sim.SlaveActive() {
		t.Error("cleanup must still retry the mode exit")
	}
	if sim.ArmHeld() {
		t.Error("arm control must be released after an exit failure")
	}
}

func TestSlaveTrajectoryCanceledBetweenPoints(t *testing.T) {
	e, sim, _ := newTestEngine(t)
	connectAll(t, e)

	ctx, cancel := context.WithCancel(context.Background())
	canceled := false
	e.sleep = func(ctx context.Context, d time.Duration) error {
		if !canceled {
			canceled = true
			cancel()
		}
		return ctx.Err()
	}

	result, err := e.ExecuteSlaveTrajectory(ctx, testTrajectory(3), "")
	if err != nil {
		t.Fatalf("cancellation returns a structured result: %v", err)
	}
	if result.Success {
		t.Error("canceled stream must not report success")
	}
	if sim.SlaveActive() || sim.ArmHeld() {
		t.Error("cleanup must run after cancellation")
	}
}
