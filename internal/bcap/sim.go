package bcap

import (
	"sync"
	"time"
)

// SimClient is an in-memory stand-in for a live b-CAP connection. It
// tracks handle bookkeeping, arm ownership and slave mode, and lets
// callers inject failures per operation. It performs no kinematics: a
// move simply records the target as the new current position.
//
// It backs the -sim mode of the server binary and the engine tests.
type SimClient struct {
	mu sync.Mutex

	nextHandle  Handle
	controllers map[Handle]bool
	robots      map[Handle]bool
	variables   map[string]any

	armHeld   bool
	slaveMode bool
	closed    bool

	calls    []SimCall
	failures map[string]error
	failNth  map[string]int
	seen     map[string]int
}

// SimCall records one client invocation for later inspection.
type SimCall struct {
	Op    string // method name, or command name for Execute calls
	Param any
}

// NewSimClient returns a simulator with a plausible resting pose.
func NewSimClient() *SimClient {
	return &SimClient{
		nextHandle:  100,
		controllers: make(map[Handle]bool),
		robots:      make(map[Handle]bool),
		variables: map[string]any{
			VarCurrentPose:  []float64{350, 0, 300, 180, 0, 180},
			VarCurrentAngle: []float64{0, 0, 90, 0, 90, 0},
			"@SPEED":        50.0,
		},
		failures: make(map[string]error),
		failNth:  make(map[string]int),
		seen:     make(map[string]int),
	}
}

// SimDial is a Dialer that ignores the address and returns a fresh
// simulator.
func SimDial(host string, port int, timeout time.Duration) (Client, error) {
	return NewSimClient(), nil
}

// FailWith makes every call matching op (a method name such as
// "RobotMove", or a command name such as "TakeArm") return err.
func (c *SimClient) FailWith(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		err = NewProtocolError(op, EFail)
	}
	c.failures[op] = err
}

// FailOnCall makes only the n-th (1-based) call matching op fail.
func (c *SimClient) FailOnCall(op string, n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		err = NewProtocolError(op, EFail)
	}
	c.failures[op] = err
	c.failNth[op] = n
}

// Calls returns the recorded operation names in invocation order.
func (c *SimClient) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ops := make([]string, len(c.calls))
	for i, call := range c.calls {
		ops[i] = call.Op
	}
	return ops
}

// CallsFor returns the recorded calls matching op, in invocation order,
// including the parameter each call carried.
func (c *SimClient) CallsFor(op string) []SimCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	var matched []SimCall
	for _, call := range c.calls {
		if call.Op == op {
			matched = append(matched, call)
		}
	}
	return matched
}

// CallCount returns how many calls matched op.
func (c *SimClient) CallCount(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen[op]
}

// ArmHeld reports whether TakeArm ownership is currently held.
func (c *SimClient) ArmHeld() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armHeld
}

// SlaveActive reports whether slave mode is currently engaged.
func (c *SimClient) SlaveActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slaveMode
}

// SetVariableValue seeds a variable the engine will read back.
func (c *SimClient) SetVariableValue(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables[name] = value
}

// record notes the call and returns the injected failure, if any.
// Callers must hold no lock.
func (c *SimClient) record(op string, param any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, SimCall{Op: op, Param: param})
	c.seen[op]++
	err, ok := c.failures[op]
	if !ok {
		return nil
	}
	if n, nth := c.failNth[op]; nth && c.seen[op] != n {
		return nil
	}
	return err
}

func (c *SimClient) allocHandle() Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextHandle++
	return c.nextHandle
}

func (c *SimClient) ControllerConnect(name, provider, machine, option string) (Handle, error) {
	if err := c.record("ControllerConnect", provider); err != nil {
		return 0, err
	}
	h := c.allocHandle()
	c.mu.Lock()
	c.controllers[h] = true
	c.mu.Unlock()
	return h, nil
}

func (c *SimClient) ControllerDisconnect(h Handle) error {
	if err := c.record("ControllerDisconnect", h); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.controllers, h)
	c.mu.Unlock()
	return nil
}

func (c *SimClient) ControllerExecute(h Handle, command string, param any) (any, error) {
	if err := c.checkController(h); err != nil {
		return nil, err
	}
	if err := c.record(command, param); err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *SimClient) ControllerRobotNames(h Handle, option string) ([]string, error) {
	if err := c.checkController(h); err != nil {
		return nil, err
	}
	if err := c.record("ControllerRobotNames", option); err != nil {
		return nil, err
	}
	return []string{"Arm"}, nil
}

func (c *SimClient) ControllerVariableNames(h Handle, option string) ([]string, error) {
	if err := c.checkController(h); err != nil {
		return nil, err
	}
	if err := c.record("ControllerVariableNames", option); err != nil {
		return nil, err
	}
	return []string{"@ERROR_CODE", "@MODE", "@VERSION"}, nil
}

func (c *SimClient) ControllerGetRobot(h Handle, name, option string) (Handle, error) {
	if err := c.checkController(h); err != nil {
		return 0, err
	}
	if err := c.record("ControllerGetRobot", name); err != nil {
		return 0, err
	}
	rh := c.allocHandle()
	c.mu.Lock()
	c.robots[rh] = true
	c.mu.Unlock()
	return rh, nil
}

func (c *SimClient) RobotExecute(h Handle, command string, param any) (any, error) {
	if err := c.checkRobot(h); err != nil {
		return nil, err
	}
	if err := c.record(command, param); err != nil {
		return nil, err
	}
	c.mu.Lock()
	switch command {
	case CmdTakeArm:
		c.armHeld = true
	case CmdGiveArm:
		c.armHeld = false
	case CmdSlaveMode:
		mode, _ := param.(int)
		c.slaveMode = mode == SlaveModeEnter
	case CmdSlaveMove:
		if point, ok := param.([]float64); ok && len(point) >= 6 {
			c.variables[VarCurrentAngle] = append([]float64(nil), point[:6]...)
		}
	}
	c.mu.Unlock()
	return nil, nil
}

func (c *SimClient) RobotVariable(h Handle, name, option string) (any, error) {
	if err := c.checkRobot(h); err != nil {
		return nil, err
	}
	if err := c.record("RobotVariable:"+name, option); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.variables[name]
	if !ok {
		return nil, NewProtocolError("RobotVariable", EObjectNotFound)
	}
	return value, nil
}

func (c *SimClient) RobotVariableNames(h Handle, option string) ([]string, error) {
	if err := c.checkRobot(h); err != nil {
		return nil, err
	}
	if err := c.record("RobotVariableNames", option); err != nil {
		return nil, err
	}
	return []string{VarCurrentAngle, VarCurrentPose, "@SPEED"}, nil
}

func (c *SimClient) RobotSetVariable(h Handle, name string, value any, option string) error {
	if err := c.checkRobot(h); err != nil {
		return err
	}
	if err := c.record("RobotSetVariable:"+name, value); err != nil {
		return err
	}
	c.mu.Lock()
	c.variables[name] = value
	c.mu.Unlock()
	return nil
}

func (c *SimClient) RobotMove(h Handle, comp int, pose any, option string) error {
	if err := c.checkRobot(h); err != nil {
		return err
	}
	if err := c.record("RobotMove", pose); err != nil {
		return err
	}
	// A move lands exactly on its target.
	if parts, ok := pose.([]any); ok && len(parts) >= 2 {
		target, okTarget := parts[0].([]float64)
		kind, okKind := parts[1].(string)
		if okTarget && okKind && len(target) == 6 {
			c.mu.Lock()
			switch kind {
			case "J":
				c.variables[VarCurrentAngle] = append([]float64(nil), target...)
			case "P":
				c.variables[VarCurrentPose] = append([]float64(nil), target...)
			}
			c.mu.Unlock()
		}
	}
	return nil
}

func (c *SimClient) RobotSpeed(h Handle, axis int, value float64) error {
	if err := c.checkRobot(h); err != nil {
		return err
	}
	if err := c.record("RobotSpeed", value); err != nil {
		return err
	}
	c.mu.Lock()
	c.variables["@SPEED"] = value
	c.mu.Unlock()
	return nil
}

func (c *SimClient) RobotGoHome(h Handle) error {
	if err := c.checkRobot(h); err != nil {
		return err
	}
	return c.record("RobotGoHome", h)
}

func (c *SimClient) RobotRelease(h Handle) error {
	if err := c.record("RobotRelease", h); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.robots, h)
	c.armHeld = false
	c.mu.Unlock()
	return nil
}

func (c *SimClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Closed reports whether Close was called.
func (c *SimClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *SimClient) checkController(h Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.controllers[h] {
		return NewProtocolError("controller", ENotConnected)
	}
	return nil
}

func (c *SimClient) checkRobot(h Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.robots[h] {
		return NewProtocolError("robot", ENotConnected)
	}
	return nil
}

var _ Client = (*SimClient)(nil)
