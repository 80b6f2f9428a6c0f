// Package robot implements the stateful session manager and motion
// engine for a DENSO controller reached through the b-CAP protocol
// client.
//
// A session moves through a strict prefix chain of connection stages:
//
//	network (client) → controller handle → robot handle
//
// A later stage is only ever valid while every earlier stage is, and
// teardown releases stages in reverse order. One exclusive lock guards
// all session mutation and all protocol calls, so top-level operations
// (including multi-point trajectories and the pick-and-place sequence)
// never interleave against the same robot.
package robot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/ZhangJunboX/mcp-hackathon-fall-2025/internal/bcap"
	"github.com/ZhangJunboX/mcp-hackathon-fall-2025/internal/oplog"
)

// Operation names as they appear on the inbound interface and in the
// operation log.
const (
	opConnect           = "bcap_connect"
	opDisconnect        = "bcap_disconnect"
	opControllerConnect = "bcap_controller_connect"
	opRobotNames        = "bcap_controller_get_robot_names"
	opCtrlVarNames      = "bcap_controller_get_variable_names"
	opClearError        = "bcap_controller_clear_error"
	opRobotConnect      = "bcap_robot_connect"
	opGetVariable       = "bcap_robot_get_variable"
	opGetVariableNames  = "bcap_robot_get_variable_names"
	opMoveJoint         = "bcap_robot_move_to_joint_angles"
	opMovePose          = "bcap_robot_move_to_pose"
	opGoHome            = "bcap_robot_gohome"
	opSetSpeed          = "bcap_robot_set_speed"
	opTrajectory        = "bcap_robot_execute_trajectory"
	opSlaveTrajectory   = "bcap_robot_execute_slave_trajectory"
	opOpenGripper       = "bcap_robot_open_gripper"
	opCloseGripper      = "bcap_robot_close_gripper"
	opPickAndPlace      = "bcap_robot_pick_and_place"
)

// Options tunes engine behavior. Zero values fall back to defaults.
type Options struct {
	// Settle delays let the hardware come to rest between motion steps.
	SettleShort time.Duration
	SettleLong  time.Duration
	// SlavePause is the pause around slave-mode transitions.
	SlavePause time.Duration
	// GripperMax is the widest permitted gripper opening in meters.
	GripperMax float64
	// Connection defaults.
	DefaultRobotName string
	DefaultProvider  string
	DefaultMachine   string
}

// DefaultOptions returns the stock Cobotta timings and limits.
func DefaultOptions() Options {
	return Options{
		SettleShort:      300 * time.Millisecond,
		SettleLong:       500 * time.Millisecond,
		SlavePause:       100 * time.Millisecond,
		GripperMax:       0.03,
		DefaultRobotName: "Arm",
		DefaultProvider:  "CaoProv.DENSO.VRC",
		DefaultMachine:   "localhost",
	}
}

func (o *Options) fillDefaults() {
	def := DefaultOptions()
	if o.SettleShort == 0 {
		o.SettleShort = def.SettleShort
	}
	if o.SettleLong == 0 {
		o.SettleLong = def.SettleLong
	}
	if o.SlavePause == 0 {
		o.SlavePause = def.SlavePause
	}
	if o.GripperMax == 0 {
		o.GripperMax = def.GripperMax
	}
	if o.DefaultRobotName == "" {
		o.DefaultRobotName = def.DefaultRobotName
	}
	if o.DefaultProvider == "" {
		o.DefaultProvider = def.DefaultProvider
	}
	if o.DefaultMachine == "" {
		o.DefaultMachine = def.DefaultMachine
	}
}

// ConnectionInfo describes the active network connection.
type ConnectionInfo struct {
	Host        string    `json:"host"`
	Port        int       `json:"port"`
	Timeout     float64   `json:"timeout"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Engine owns the session state and sequences protocol-client calls.
type Engine struct {
	mu     sync.RWMutex
	dial   bcap.Dialer
	opts   Options
	log    *oplog.Log
	logger *slog.Logger

	// sleep is swappable so tests run without real delays.
	sleep func(ctx context.Context, d time.Duration) error

	client   bcap.Client
	hCtrl    bcap.Handle
	hRobot   bcap.Handle
	connInfo *ConnectionInfo
}

// New creates an engine. dial opens protocol connections on demand; log
// receives one entry per top-level operation.
func New(dial bcap.Dialer, log *oplog.Log, logger *slog.Logger, opts Options) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	opts.fillDefaults()
	return &Engine{
		dial:   dial,
		opts:   opts,
		log:    log,
		logger: logger,
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// finish records the operation outcome exactly once and feeds metrics.
func (e *Engine) finish(op string, args map[string]any, result any, err error) {
	recordOperation(op, err)
	if err != nil {
		desc, _ := Classify(err)
		e.log.Record(op, args, nil, desc)
		return
	}
	e.log.Record(op, args, result, "")
}

// ConnectResult reports a successful network connection.
type ConnectResult struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message"`
	ConnectionInfo *ConnectionInfo `json:"connection_info"`
}

// Connect establishes the network stage. An already-connected session is
// fully reset first, so reconnecting never fails on stale state.
func (e *Engine) Connect(ctx context.Context, host string, port int, timeoutSec float64) (*ConnectResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	args := map[string]any{"host": host, "port": port, "timeout": timeoutSec}

	if e.client != nil {
		e.resetLocked()
	}

	client, err := e.dial(host, port, time.Duration(timeoutSec*float64(time.Second)))
	if err != nil {
		err = errors.Wrapf(err, "connect to %s:%d", host, port)
		e.finish(opConnect, args, nil, err)
		return nil, err
	}

	e.client = client
	e.connInfo = &ConnectionInfo{
		Host:        host,
		Port:        port,
		Timeout:     timeoutSec,
		ConnectedAt: time.Now(),
	}

	result := &ConnectResult{
		Success:        true,
		Message:        fmt.Sprintf("Successfully connected to %s:%d", host, port),
		ConnectionInfo: e.connInfo,
	}
	e.finish(opConnect, args, result, nil)
	return result, nil
}

// MessageResult is the minimal success envelope.
type MessageResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Disconnect tears the session down. Calling it without a connection is
// an error; the teardown itself never fails.
func (e *Engine) Disconnect(ctx context.Context) (*MessageResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client == nil {
		err := &PreconditionError{Stage: StageNetwork}
		e.finish(opDisconnect, nil, nil, err)
		return nil, err
	}

	e.resetLocked()
	result := &MessageResult{Success: true, Message: "Disconnected"}
	e.finish(opDisconnect, nil, result, nil)
	return result, nil
}

// Reset releases all connection stages. It is safe on a never-connected
// session and safe to call repeatedly.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

// resetLocked releases handles in reverse acquisition order. Each
// release is attempted and its failure discarded: a broken link must
// never prevent local state from clearing.
func (e *Engine) resetLocked() {
	if e.client == nil {
		e.hCtrl, e.hRobot, e.connInfo = 0, 0, nil
		return
	}
	if e.hRobot != 0 {
		if err := e.client.RobotRelease(e.hRobot); err != nil {
			e.logger.Debug("robot release during reset failed", "error", err)
		}
		e.hRobot = 0
	}
	if e.hCtrl != 0 {
		if err := e.client.ControllerDisconnect(e.hCtrl); err != nil {
			e.logger.Debug("controller disconnect during reset failed", "error", err)
		}
		e.hCtrl = 0
	}
	if err := e.client.Close(); err != nil {
		e.logger.Debug("client close during reset failed", "error", err)
	}
	e.client = nil
	e.connInfo = nil
}

// StatusResult reports the three connection stages.
type StatusResult struct {
	Connected           bool            `json:"connected"`
	ControllerConnected bool            `json:"controller_connected"`
	RobotConnected      bool            `json:"robot_connected"`
	ConnectionInfo      *ConnectionInfo `json:"connection_info,omitempty"`
}

// Status is a pure read: it never mutates, never fails, and is not
// recorded in the operation log.
func (e *Engine) Status() *StatusResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	result := &StatusResult{
		Connected:           e.client != nil,
		ControllerConnected: e.hCtrl != 0,
		RobotConnected:      e.hRobot != 0,
	}
	if e.client != nil {
		result.ConnectionInfo = e.connInfo
	}
	return result
}

// ControllerConnectResult reports the acquired controller handle.
type ControllerConnectResult struct {
	Success          bool   `json:"success"`
	ControllerHandle int32  `json:"controller_handle"`
	Message          string `json:"message"`
}

// ConnectController acquires the controller stage. Empty provider and
// machine fall back to the configured defaults.
func (e *Engine) ConnectController(ctx context.Context, name, provider, machine, option string) (*ControllerConnectResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if provider == "" {
		provider = e.opts.DefaultProvider
	}
	if machine == "" {
		machine = e.opts.DefaultMachine
	}
	args := map[string]any{"name": name, "provider": provider, "machine": machine, "option": option}

	if e.client == nil {
		err := &PreconditionError{Stage: StageNetwork}
		e.finish(opControllerConnect, args, nil, err)
		return nil, err
	}

	h, err := e.client.ControllerConnect(name, provider, machine, option)
	if err != nil {
		err = errors.Wrap(err, "controller connect")
		e.finish(opControllerConnect, args, nil, err)
		return nil, err
	}
	e.hCtrl = h

	result := &ControllerConnectResult{
		Success:          true,
		ControllerHandle: int32(h),
		Message:          "Successfully connected to controller",
	}
	e.finish(opControllerConnect, args, result, nil)
	return result, nil
}

// RobotConnectResult reports the acquired robot handle.
type RobotConnectResult struct {
	Success     bool   `json:"success"`
	RobotHandle int32  `json:"robot_handle"`
	Message     string `json:"message"`
}

// ConnectRobot acquires the robot stage. Arm control is deliberately not
// taken here; each motion command takes it immediately before moving.
func (e *Engine) ConnectRobot(ctx context.Context, name, option string) (*RobotConnectResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if name == "" {
		name = e.opts.DefaultRobotName
	}
	args := map[string]any{"name": name, "option": option}

	if e.hCtrl == 0 {
		err := &PreconditionError{Stage: StageController}
		e.finish(opRobotConnect, args, nil, err)
		return nil, err
	}

	h, err := e.client.ControllerGetRobot(e.hCtrl, name, option)
	if err != nil {
		err = errors.Wrapf(err, "connect robot %q", name)
		e.finish(opRobotConnect, args, nil, err)
		return nil, err
	}
	e.hRobot = h

	result := &RobotConnectResult{
		Success:     true,
		RobotHandle: int32(h),
		Message:     fmt.Sprintf("Successfully connected to robot '%s'", name),
	}
	e.finish(opRobotConnect, args, result, nil)
	return result, nil
}

// Stage checks. Callers must hold the lock.

func (e *Engine) requireNetwork() error {
	if e.client == nil {
		return &PreconditionError{Stage: StageNetwork}
	}
	return nil
}

func (e *Engine) requireController() error {
	if err := e.requireNetwork(); err != nil {
		return err
	}
	if e.hCtrl == 0 {
		return &PreconditionError{Stage: StageController}
	}
	return nil
}

func (e *Engine) requireRobot() error {
	if err := e.requireController(); err != nil {
		return err
	}
	if e.hRobot == 0 {
		return &PreconditionError{Stage: StageRobot}
	}
	return nil
}

// takeArm acquires motion control. Failure aborts the caller.
func (e *Engine) takeArm() error {
	if _, err := e.client.RobotExecute(e.hRobot, bcap.CmdTakeArm, []int{0, 0}); err != nil {
		return errors.Wrap(err, "take arm control")
	}
	return nil
}

// giveArmBestEffort releases any stale arm ownership. The arm may not
// have been owned, so the failure is discarded after a debug note.
func (e *Engine) giveArmBestEffort() {
	if _, err := e.client.RobotExecute(e.hRobot, bcap.CmdGiveArm, nil); err != nil {
		e.logger.Debug("give arm (best effort) failed", "error", err)
	}
}

// readFloats reads a robot variable and coerces it to a float slice.
func (e *Engine) readFloats(name string) ([]float64, error) {
	value, err := e.client.RobotVariable(e.hRobot, name, "")
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return toFloats(value)
}

func toFloats(value any) ([]float64, error) {
	switch v := value.(type) {
	case []float64:
		return append([]float64(nil), v...), nil
	case []any:
		out := make([]float64, len(v))
		for i, item := range v {
			f, ok := asFloat(item)
			if !ok {
				return nil, errors.Errorf("element %d is not numeric: %v", i, item)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, errors.Errorf("value is not a numeric array: %v", value)
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
