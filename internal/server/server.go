// Package server exposes the robot engine over MCP.
package server

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ZhangJunboX/mcp-hackathon-fall-2025/internal/oplog"
	"github.com/ZhangJunboX/mcp-hackathon-fall-2025/internal/robot"
)

const (
	toolConnect           = "bcap_connect"
	toolDisconnect        = "bcap_disconnect"
	toolConnectionStatus  = "bcap_get_connection_status"
	toolControllerConnect = "bcap_controller_connect"
	toolRobotNames        = "bcap_controller_get_robot_names"
	toolCtrlVarNames      = "bcap_controller_get_variable_names"
	toolClearError        = "bcap_controller_clear_error"
	toolRobotConnect      = "bcap_robot_connect"
	toolGetVariable       = "bcap_robot_get_variable"
	toolGetVariableNames  = "bcap_robot_get_variable_names"
	toolMoveJoint         = "bcap_robot_move_to_joint_angles"
	toolMovePose          = "bcap_robot_move_to_pose"
	toolGoHome            = "bcap_robot_gohome"
	toolSetSpeed          = "bcap_robot_set_speed"
	toolTrajectory        = "bcap_robot_execute_trajectory"
	toolSlaveTrajectory   = "bcap_robot_execute_slave_trajectory"
	toolOpenGripper       = "bcap_robot_open_gripper"
	toolCloseGripper      = "bcap_robot_close_gripper"
	toolPickAndPlace      = "bcap_robot_pick_and_place"
	toolOperationLog      = "bcap_get_operation_log"
)

// Options configures the MCP server and the connection defaults the
// tools fall back to.
type Options struct {
	Name           string
	Version        string
	DefaultHost    string
	DefaultPort    int
	DefaultTimeout float64
	DefaultSpeed   float64
}

// MCPServer wraps the mcp-go server around the robot engine.
type MCPServer struct {
	server *server.MCPServer
	engine *robot.Engine
	oplog  *oplog.Log
	logger *slog.Logger
	opts   Options
}

// NewMCPServer creates the server and registers every tool.
func NewMCPServer(opts Options, engine *robot.Engine, log *oplog.Log, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	mcpServer := server.NewMCPServer(
		opts.Name,
		opts.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	ms := &MCPServer{
		server: mcpServer,
		engine: engine,
		oplog:  log,
		logger: logger,
		opts:   opts,
	}
	ms.registerTools()
	return ms
}

// registerTools registers the fixed tool surface.
func (ms *MCPServer) registerTools() {
	ms.server.AddTool(mcp.NewTool(toolConnect,
		mcp.WithDescription("Open the network connection to the robot controller"),
		mcp.WithString("host", mcp.Description("Controller IP address")),
		mcp.WithNumber("port", mcp.Description("b-CAP port, default 5007")),
		mcp.WithNumber("timeout", mcp.Description("Connection timeout in seconds")),
	), ms.handleConnect)

	ms.server.AddTool(mcp.NewTool(toolDisconnect,
		mcp.WithDescription("Close the connection and release all handles"),
	), ms.handleDisconnect)

	ms.server.AddTool(mcp.NewTool(toolConnectionStatus,
		mcp.WithDescription("Report the network, controller and robot connection states"),
	), ms.handleConnectionStatus)

	ms.server.AddTool(mcp.NewTool(toolControllerConnect,
		mcp.WithDescription("Acquire a controller handle"),
		mcp.WithString("name", mcp.Description("Controller name")),
		mcp.WithString("provider", mcp.Description("ORiN provider, default CaoProv.DENSO.VRC")),
		mcp.WithString("machine", mcp.Description("Machine name, default localhost")),
		mcp.WithString("option", mcp.Description("Provider option string")),
	), ms.handleControllerConnect)

	ms.server.AddTool(mcp.NewTool(toolRobotNames,
		mcp.WithDescription("List robot names known to the controller"),
		mcp.WithString("option", mcp.Description("Option string")),
	), ms.handleRobotNames)

	ms.server.AddTool(mcp.NewTool(toolCtrlVarNames,
		mcp.WithDescription("List controller variable names"),
		mcp.WithString("option", mcp.Description("Option string")),
	), ms.handleControllerVariableNames)

	ms.server.AddTool(mcp.NewTool(toolClearError,
		mcp.WithDescription("Clear the controller error state"),
	), ms.handleClearError)

	ms.server.AddTool(mcp.NewTool(toolRobotConnect,
		mcp.WithDescription("Acquire a robot handle"),
		mcp.WithString("name", mcp.Description("Robot name, default Arm")),
		mcp.WithString("option", mcp.Description("Option string")),
	), ms.handleRobotConnect)

	ms.server.AddTool(mcp.NewTool(toolGetVariable,
		mcp.WithDescription("Read a robot variable such as @CURRENT_POSITION"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Variable name")),
		mcp.WithString("option", mcp.Description("Option string")),
	), ms.handleGetVariable)

	ms.server.AddTool(mcp.NewTool(toolGetVariableNames,
		mcp.WithDescription("List robot variable names"),
		mcp.WithString("option", mcp.Description("Option string")),
	), ms.handleGetVariableNames)

	ms.server.AddTool(mcp.NewTool(toolMoveJoint,
		mcp.WithDescription("Move to six joint angles in degrees"),
		mcp.WithArray("joint_angles", mcp.Required(), mcp.Description("[j1..j6] in degrees")),
		mcp.WithString("option", mcp.Description("Motion option, e.g. Speed=50")),
	), ms.handleMoveJoint)

	ms.server.AddTool(mcp.NewTool(toolMovePose,
		mcp.WithDescription("Move to a Cartesian pose [x, y, z, rx, ry, rz] in mm and degrees"),
		mcp.WithArray("pose", mcp.Required(), mcp.Description("[x, y, z, rx, ry, rz]")),
		mcp.WithString("option", mcp.Description("Motion option string")),
	), ms.handleMovePose)

	ms.server.AddTool(mcp.NewTool(toolGoHome,
		mcp.WithDescription("Return the robot to its home position"),
	), ms.handleGoHome)

	ms.server.AddTool(mcp.NewTool(toolSetSpeed,
		mcp.WithDescription("Set motion speed as a percentage"),
		mcp.WithNumber("axis", mcp.Description("0 for all axes, 1-6 for one axis")),
		mcp.WithNumber("speed", mcp.Description("Speed percentage")),
	), ms.handleSetSpeed)

	ms.server.AddTool(mcp.NewTool(toolTrajectory,
		mcp.WithDescription("Execute a batch of joint-space moves point by point"),
		mcp.WithArray("trajectory", mcp.Required(), mcp.Description("Array of [j1..j6] points")),
		mcp.WithString("option", mcp.Description("Motion option string")),
	), ms.handleTrajectory)

	ms.server.AddTool(mcp.NewTool(toolSlaveTrajectory,
		mcp.WithDescription("Stream a trajectory through slave mode for continuous motion"),
		mcp.WithArray("trajectory", mcp.Required(), mcp.Description("Array of [j1..j6] points")),
		mcp.WithString("option", mcp.Description("Motion option string")),
	), ms.handleSlaveTrajectory)

	ms.server.AddTool(mcp.NewTool(toolOpenGripper,
		mcp.WithDescription("Open the gripper"),
		mcp.WithNumber("dist", mcp.Description("Opening in meters, 0 to 0.03, default 0.03")),
		mcp.WithNumber("speed", mcp.Description("Gripper speed, default 100")),
	), ms.handleOpenGripper)

	ms.server.AddTool(mcp.NewTool(toolCloseGripper,
		mcp.WithDescription("Close the gripper"),
		mcp.WithNumber("dist", mcp.Description("Opening in meters, 0 to 0.03, default 0")),
		mcp.WithNumber("speed", mcp.Description("Gripper speed, default 20")),
	), ms.handleCloseGripper)

	ms.server.AddTool(mcp.NewTool(toolPickAndPlace,
		mcp.WithDescription("Run the fixed pick-and-place sequence around the current pose"),
		mcp.WithNumber("pick_down_distance", mcp.Description("Pick descent in cm, default 4.0")),
		mcp.WithNumber("lift_up_distance", mcp.Description("Lift in cm, default 9.0")),
		mcp.WithNumber("place_y_offset", mcp.Description("Y offset in cm, default 2.5")),
		mcp.WithNumber("place_down_distance", mcp.Description("Place descent in cm, default 3.0")),
		mcp.WithNumber("gripper_speed", mcp.Description("Gripper speed, default 100")),
		mcp.WithBoolean("stop_on_error", mcp.Description("Abort at the first failed step")),
	), ms.handlePickAndPlace)

	ms.server.AddTool(mcp.NewTool(toolOperationLog,
		mcp.WithDescription("Return recent operation log entries"),
		mcp.WithNumber("limit", mcp.Description("Number of entries, default 50")),
	), ms.handleOperationLog)
}
