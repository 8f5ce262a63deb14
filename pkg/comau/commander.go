package comau

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/illinois-automation/comau-gateway/pkg/datamodel"
)

// Publisher is the transport the commander publishes on. Satisfied by the
// gateway's MQTT client; tests plug in a fake.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Instr check defaults: the bridge looks for "Instr:" in the Drive block
// to confirm the cell program is executing.
const (
	driveBlockID        = 1
	instrSearchString   = "Instr:"
	instrCheckTimeoutMs = 5000
)

// DefaultTimeout bounds the wait for a bridge response.
const DefaultTimeout = 30 * time.Second

// Commander publishes bridge commands and correlates the responses coming
// back on the memory-data topic by request_id.
type Commander struct {
	pub           Publisher
	commandsTopic string
	timeout       time.Duration

	mu      sync.Mutex
	pending map[string]chan datamodel.CommandResponse
}

// NewCommander returns a commander publishing on commandsTopic. A zero
// timeout falls back to DefaultTimeout.
func NewCommander(pub Publisher, commandsTopic string, timeout time.Duration) *Commander {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Commander{
		pub:           pub,
		commandsTopic: commandsTopic,
		timeout:       timeout,
		pending:       make(map[string]chan datamodel.CommandResponse),
	}
}

// NewRequestID builds the bridge request id: <name>_<unixsecs>_<uuid8>.
func NewRequestID(name string) string {
	return fmt.Sprintf("%s_%d_%s", strings.ToLower(name), time.Now().Unix(), uuid.NewString()[:8])
}

// Execute publishes one command and blocks until the bridge responds, the
// context is done, or the commander timeout elapses.
func (c *Commander) Execute(ctx context.Context, command, requestName string, args *datamodel.CommandArgs) (*datamodel.CommandResponse, error) {
	msg := datamodel.CommandMessage{
		Command:   command,
		Timestamp: time.Now().Format("2006-01-02T15:04:05"),
		Args:      args,
		RequestID: NewRequestID(requestName),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", command, err)
	}

	ch := make(chan datamodel.CommandResponse, 1)
	c.mu.Lock()
	c.pending[msg.RequestID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, msg.RequestID)
		c.mu.Unlock()
	}()

	// QoS 2: a duplicated key sequence types twice on the terminal.
	if err = c.pub.Publish(c.commandsTopic, 2, false, payload); err != nil {
		return nil, fmt.Errorf("publishing %s: %w", command, err)
	}
	zap.S().Debugf("Sent %s (request_id %s)", command, msg.RequestID)

	// The caller's deadline wins when there is one: memory-block searches
	// legitimately outlast the commander timeout. The internal timer only
	// bounds calls that arrive without a deadline.
	var timeout <-chan time.Time
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		timeout = time.After(c.timeout)
	}

	select {
	case resp := <-ch:
		return &resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout:
		return nil, fmt.Errorf("no response for %s within %s", msg.RequestID, c.timeout)
	}
}

// HandleResponse feeds a payload received on the memory-data topic back to
// the waiting Execute call. Responses for unknown request ids are dropped;
// the bridge republishes status messages the gateway never asked for.
func (c *Commander) HandleResponse(payload []byte) {
	var resp datamodel.CommandResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		zap.S().Warnf("Undecodable bridge response: %s", err)
		return
	}
	if resp.RequestID == "" {
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[resp.RequestID]
	c.mu.Unlock()
	if !ok {
		zap.S().Debugf("No waiter for request_id %s", resp.RequestID)
		return
	}

	select {
	case ch <- resp:
	default:
		// Waiter already served; the bridge resent the response.
	}
}

// RobotStatus summarizes what a sequence execution revealed about the
// robot side.
type RobotStatus string

const (
	RobotActive     RobotStatus = "active"
	RobotInactive   RobotStatus = "inactive"
	RobotError      RobotStatus = "error"
	RobotNoResponse RobotStatus = "no_response"
)

// SequenceResult classifies one executed key sequence.
type SequenceResult struct {
	Robot    RobotStatus
	Message  string
	Response *datamodel.CommandResponse
}

// OK reports whether the sequence reached an executing cell program.
func (r SequenceResult) OK() bool {
	return r.Robot == RobotActive
}

// SendSequence wraps seq into ExecuteKeySequenceWithInstrCheck and
// classifies the outcome. name tags the request id for tracing.
func (c *Commander) SendSequence(ctx context.Context, name string, seq []datamodel.KeyAction) (SequenceResult, error) {
	args := &datamodel.CommandArgs{
		Sequence: seq,
		InstrCheck: &datamodel.InstrCheck{
			Enabled:      true,
			BlockID:      driveBlockID,
			SearchString: instrSearchString,
			TimeoutMs:    instrCheckTimeoutMs,
		},
		Options: &datamodel.Options{
			VerifyFocus:  true,
			RestoreFocus: false,
			AbortOnError: true,
			DryRun:       false,
		},
	}

	resp, err := c.Execute(ctx, datamodel.CmdExecuteWithInstrCheck, name, args)
	if err != nil {
		return SequenceResult{
			Robot:   RobotNoResponse,
			Message: fmt.Sprintf("%s: %s", name, err),
		}, err
	}

	return classify(name, resp), nil
}

// SendRawSequence types seq without the Instr: verification. Maintenance
// sequences use it: they must work precisely when the cell program is not
// running.
func (c *Commander) SendRawSequence(ctx context.Context, name string, seq []datamodel.KeyAction) (SequenceResult, error) {
	args := &datamodel.CommandArgs{
		Sequence: seq,
		Options: &datamodel.Options{
			VerifyFocus:  true,
			RestoreFocus: false,
			AbortOnError: true,
			DryRun:       false,
		},
	}

	resp, err := c.Execute(ctx, datamodel.CmdExecuteKeySequence, name, args)
	if err != nil {
		return SequenceResult{
			Robot:   RobotNoResponse,
			Message: fmt.Sprintf("%s: %s", name, err),
		}, err
	}
	if resp.Status == datamodel.StatusSuccess {
		return SequenceResult{
			Robot:    RobotActive,
			Message:  fmt.Sprintf("%s typed", name),
			Response: resp,
		}, nil
	}
	msg := resp.ErrorMessage
	if msg == "" {
		msg = "unknown bridge error"
	}
	return SequenceResult{
		Robot:    RobotError,
		Message:  fmt.Sprintf("%s failed: %s", name, msg),
		Response: resp,
	}, nil
}

// classify folds an instr-checked response into the robot state.
func classify(name string, resp *datamodel.CommandResponse) SequenceResult {
	switch {
	case resp.Status == datamodel.StatusSuccess && resp.InstrCheckPassed:
		return SequenceResult{
			Robot:    RobotActive,
			Message:  fmt.Sprintf("%s executed", name),
			Response: resp,
		}
	case resp.Status == datamodel.StatusSuccess:
		// Sequence typed, but the Drive block shows no Instr: line. The
		// keystrokes went nowhere useful.
		return SequenceResult{
			Robot:    RobotInactive,
			Message:  "cell program not running (Instr: not found)",
			Response: resp,
		}
	default:
		msg := resp.ErrorMessage
		if msg == "" {
			msg = "unknown bridge error"
		}
		return SequenceResult{
			Robot:    RobotError,
			Message:  fmt.Sprintf("%s failed: %s", name, msg),
			Response: resp,
		}
	}
}
