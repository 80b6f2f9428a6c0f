// Package bcap defines the boundary to the DENSO b-CAP protocol client.
//
// The wire protocol itself lives outside this repository; everything here
// treats the client as a black box of synchronous, individually failable
// calls. Handles returned by the client are opaque and only meaningful to
// the client instance that issued them.
package bcap

import "time"

// Handle is an opaque identifier for a controller, robot or variable
// object held by the protocol client. Zero is never a valid handle.
type Handle int32

// Client is the set of primitive operations the motion engine sequences.
// All calls are blocking and may fail independently at any point.
type Client interface {
	// Controller-level operations.
	ControllerConnect(name, provider, machine, option string) (Handle, error)
	ControllerDisconnect(h Handle) error
	ControllerExecute(h Handle, command string, param any) (any, error)
	ControllerRobotNames(h Handle, option string) ([]string, error)
	ControllerVariableNames(h Handle, option string) ([]string, error)
	ControllerGetRobot(h Handle, name, option string) (Handle, error)

	// Robot-level operations.
	RobotExecute(h Handle, command string, param any) (any, error)
	RobotVariable(h Handle, name, option string) (any, error)
	RobotVariableNames(h Handle, option string) ([]string, error)
	RobotSetVariable(h Handle, name string, value any, option string) error
	RobotMove(h Handle, comp int, pose any, option string) error
	RobotSpeed(h Handle, axis int, value float64) error
	RobotGoHome(h Handle) error
	RobotRelease(h Handle) error

	// Close tears down the network connection. Outstanding handles are
	// invalid afterwards.
	Close() error
}

// Dialer opens a network connection to a controller and returns a client
// bound to it.
type Dialer func(host string, port int, timeout time.Duration) (Client, error)

// Named commands and mode values used by the engine. These mirror the
// command strings the RC8/Cobotta controller understands.
const (
	CmdTakeArm      = "TakeArm"
	CmdGiveArm      = "GiveArm"
	CmdClearError   = "ClearError"
	CmdHandMoveA    = "HandMoveA"
	CmdSlaveMode    = "slvChangeMode"
	CmdSlaveMove    = "slvMove"
	SlaveModeEnter  = 0x202
	SlaveModeExit   = 0x000
	MoveComp        = 1 // PTP interpolation
	VarCurrentAngle = "@CURRENT_ANGLE"
	VarCurrentPose  = "@CURRENT_POSITION"
)
