package server

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ZhangJunboX/mcp-hackathon-fall-2025/internal/oplog"
	"github.com/ZhangJunboX/mcp-hackathon-fall-2025/internal/robot"
)

// jsonResult marshals a typed engine result into indented JSON text.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(data))
}

// failureResult classifies err into the structured failure envelope.
// The envelope is returned as regular text so callers always get a
// well-formed JSON document, never a transport fault.
func failureResult(err error) *mcp.CallToolResult {
	desc, code := robot.Classify(err)
	envelope := map[string]any{
		"success": false,
		"error":   desc,
	}
	if code != nil {
		envelope["code"] = *code
	}
	data, merr := json.MarshalIndent(envelope, "", "  ")
	if merr != nil {
		return mcp.NewToolResultError(desc)
	}
	return mcp.NewToolResultText(string(data))
}

func (ms *MCPServer) handleConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	host := request.GetString("host", ms.opts.DefaultHost)
	port := request.GetInt("port", ms.opts.DefaultPort)
	timeout := request.GetFloat("timeout", ms.opts.DefaultTimeout)

	result, err := ms.engine.Connect(ctx, host, port, timeout)
	if err != nil {
		return failureResult(err), nil
	}
	return jsonResult(result), nil
}

func (ms *MCPServer) handleDisconnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ms.engine.Disconnect(ctx)
	if err != nil {
		return failureResult(err), nil
	}
	return jsonResult(result), nil
}

func (ms *MCPServer) handleConnectionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(ms.engine.Status()), nil
}

func (ms *MCPServer) handleControllerConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	provider := request.GetString("provider", "")
	machine := request.GetString("machine", "")
	option := request.GetString("option", "")

	result, err := ms.engine.ConnectController(ctx, name, provider, machine, option)
	if err != nil {
		return failureResult(err), nil
	}
	return jsonResult(result), nil
}

func (ms *MCPServer) handleRobotNames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ms.engine.RobotNames(ctx, request.GetString("option", ""))
	if err != nil {
		return failureResult(err), nil
	}
	return jsonResult(result), nil
}

func (ms *MCPServer) handleControllerVariableNames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ms.engine.ControllerVariableNames(ctx, request.GetString("option", ""))
	if err != nil {
		return failureResult(err), nil
	}
	return jsonResult(result), nil
}

func (ms *MCPServer) handleClearError(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ms.engine.ClearError(ctx)
	if err != nil {
		return failureResult(err), nil
	}
	return jsonResult(result), nil
}

func (ms *MCPServer) handleRobotConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")
	option := request.GetString("option", "")

	result, err := ms.engine.ConnectRobot(ctx, name, option)
	if err != nil {
		return failureResult(err), nil
	}
	return jsonResult(result), nil
}

func (ms *MCPServer) handleGetVariable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return failureResult(err), nil
	}
	result, err := ms.engine.RobotVariable(ctx, name, request.GetString("option", ""))
	if err != nil {
		return failureResult(err), nil
	}
	return jsonResult(result), nil
}

func (ms *MCPServer) handleGetVariableNames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ms.engine.RobotVariableNames(ctx, request.GetString("option", ""))
	if err != nil {
		return failureResult(err), nil
	}
	return jsonResult(result), nil
}

func (ms *MCPServer) handleMoveJoint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	angles, err := floatSliceArg(request, "joint_angles")
	if err != nil {
		return failureResult(err), nil
	}
	result, err := ms.engine.MoveJoint(ctx, angles, request.GetString("option", ""))
	if err != nil {
		return failureResult(err), nil
	}
	return jsonResult(result), nil
}

func (ms *MCPServer) handleMovePose(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pose, err := floatSliceArg(request, "pose")
	if err != nil {
		return failureResult(err), nil
	}
	result, err := ms.engine.MovePose(ctx, pose, request.GetString("option", ""))
	if err != nil {
		return failureResult(err), nil
	}
	return jsonResult(result), nil
}

func (ms *MCPServer) handleGoHome(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ms.engine.GoHome(ctx)
	if err != nil {
		return failureResult(err), nil
	}
	return jsonResult(result), nil
}

func (ms *MCPServer) handleSetSpeed(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	axis := request.GetInt("axis", 0)
	speed := request.GetFloat("speed", ms.opts.DefaultSpeed)

	result, err := ms.engine.SetSpeed(ctx, axis, speed)
	if err != nil {
		return failureResult(err), nil
	}
	return jsonResult(result), nil
}

func (ms *MCPServer) handleTrajectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	trajectory, err := trajectoryArg(request, "trajectory")
	if err != nil {
		return failureResult(err), nil
	}
	result, err := ms.engine.ExecuteTrajectory(ctx, trajectory, request.GetString("option", ""))
	if err != nil {
		return failureResult(err), nil
	}
	return jsonResult(result), nil
}

func (ms *MCPServer) handleSlaveTrajectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	trajectory, err := trajectoryArg(request, "trajectory")
	if err != nil {
		return failureResult(err), nil
	}
	result, err := ms.engine.ExecuteSlaveTrajectory(ctx, trajectory, request.GetString("option", ""))
	if err != nil {
		return failureResult(err), nil
	}
	return jsonResult(result), nil
}

func (ms *MCPServer) handleOpenGripper(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dist := request.GetFloat("dist", 0.03)
	speed := request.GetFloat("speed", 100)

	result, err := ms.engine.OpenGripper(ctx, dist, speed)
	if err != nil {
		return failureResult(err), nil
	}
	return jsonResult(result), nil
}

func (ms *MCPServer) handleCloseGripper(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dist := request.GetFloat("dist", 0)
	speed := request.GetFloat("speed", 20)

	result, err := ms.engine.CloseGripper(ctx, dist, speed)
	if err != nil {
		return failureResult(err), nil
	}
	return jsonResult(result), nil
}

func (ms *MCPServer) handlePickAndPlace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := robot.PickPlaceParams{
		PickDownDistance:  request.GetFloat("pick_down_distance", 0),
		LiftUpDistance:    request.GetFloat("lift_up_distance", 0),
		PlaceYOffset:      request.GetFloat("place_y_offset", 0),
		PlaceDownDistance: request.GetFloat("place_down_distance", 0),
		GripperSpeed:      request.GetFloat("gripper_speed", 0),
		StopOnError:       request.GetBool("stop_on_error", false),
	}

	result, err := ms.engine.PickAndPlace(ctx, params)
	if err != nil {
		return failureResult(err), nil
	}
	return jsonResult(result), nil
}

// OperationLogResult wraps the recent log entries.
type OperationLogResult struct {
	Success         bool          `json:"success"`
	TotalOperations int           `json:"total_operations"`
	ReturnedCount   int           `json:"returned_count"`
	Logs            []oplog.Entry `json:"logs"`
}

func (ms *MCPServer) handleOperationLog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", oplog.DefaultRecentLimit)

	entries, err := ms.oplog.Recent(limit)
	if err != nil {
		return failureResult(err), nil
	}
	total, err := ms.oplog.Count()
	if err != nil {
		return failureResult(err), nil
	}

	result := OperationLogResult{
		Success:         true,
		TotalOperations: total,
		ReturnedCount:   len(entries),
		Logs:            entries,
	}
	return jsonResult(result), nil
}
