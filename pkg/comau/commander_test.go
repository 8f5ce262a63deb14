package comau

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illinois-automation/comau-gateway/pkg/datamodel"
	"github.com/illinois-automation/comau-gateway/pkg/words"
)

// fakeBridge stands in for the WinC5G bridge: it decodes published
// commands and answers through HandleResponse like the real one would over
// the memory-data topic.
type fakeBridge struct {
	cmd *Commander

	mu       sync.Mutex
	commands []datamodel.CommandMessage

	onCommand func(msg datamodel.CommandMessage) *datamodel.CommandResponse
}

func (f *fakeBridge) Publish(topic string, qos byte, retained bool, payload []byte) error {
	var msg datamodel.CommandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}

	f.mu.Lock()
	f.commands = append(f.commands, msg)
	f.mu.Unlock()

	if f.onCommand == nil {
		return nil
	}
	resp := f.onCommand(msg)
	if resp == nil {
		return nil
	}
	resp.RequestID = msg.RequestID
	out, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	go f.cmd.HandleResponse(out)
	return nil
}

func (f *fakeBridge) sent() []datamodel.CommandMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]datamodel.CommandMessage, len(f.commands))
	copy(out, f.commands)
	return out
}

func newTestCommander(timeout time.Duration) (*Commander, *fakeBridge) {
	bridge := &fakeBridge{}
	cmd := NewCommander(bridge, "COMAU/commands", timeout)
	bridge.cmd = cmd
	return cmd, bridge
}

func TestSendSequenceRobotActive(t *testing.T) {
	cmd, bridge := newTestCommander(time.Second)
	bridge.onCommand = func(msg datamodel.CommandMessage) *datamodel.CommandResponse {
		return &datamodel.CommandResponse{
			Status:           datamodel.StatusSuccess,
			InstrCheckPassed: true,
		}
	}

	res, err := cmd.SendSequence(context.Background(), "MOVE_TO_HOME",
		AppendWord(nil, words.MOVE_TO_HOME, 1))
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, RobotActive, res.Robot)

	sent := bridge.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, datamodel.CmdExecuteWithInstrCheck, sent[0].Command)
	require.NotNil(t, sent[0].Args)
	assert.Equal(t, "Instr:", sent[0].Args.InstrCheck.SearchString)
	assert.True(t, sent[0].Args.Options.AbortOnError)
	assert.Contains(t, sent[0].RequestID, "move_to_home_")
}

func TestSendSequenceRobotInactive(t *testing.T) {
	cmd, bridge := newTestCommander(time.Second)
	bridge.onCommand = func(msg datamodel.CommandMessage) *datamodel.CommandResponse {
		// Typed fine, but no Instr: in the Drive block.
		return &datamodel.CommandResponse{Status: datamodel.StatusSuccess}
	}

	res, err := cmd.SendSequence(context.Background(), "SET_ID_COM",
		AppendWord(nil, words.ID_COM, 42))
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, RobotInactive, res.Robot)
}

func TestSendSequenceBridgeError(t *testing.T) {
	cmd, bridge := newTestCommander(time.Second)
	bridge.onCommand = func(msg datamodel.CommandMessage) *datamodel.CommandResponse {
		return &datamodel.CommandResponse{
			Status:       datamodel.StatusError,
			ErrorCode:    "FOCUS_LOST",
			ErrorMessage: "terminal window lost focus",
		}
	}

	res, err := cmd.SendSequence(context.Background(), "SET_ID_COM",
		AppendWord(nil, words.ID_COM, 42))
	require.NoError(t, err)
	assert.Equal(t, RobotError, res.Robot)
	assert.Contains(t, res.Message, "terminal window lost focus")
}

func TestSendRawSequenceSkipsInstrCheck(t *testing.T) {
	cmd, bridge := newTestCommander(time.Second)
	bridge.onCommand = func(msg datamodel.CommandMessage) *datamodel.CommandResponse {
		// No instr_check_passed flag: the cell program may well be down.
		return &datamodel.CommandResponse{Status: datamodel.StatusSuccess}
	}

	res, err := cmd.SendRawSequence(context.Background(), "CLEAR_ERRORS", ClearErrorsSequence())
	require.NoError(t, err)
	assert.True(t, res.OK())

	sent := bridge.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, datamodel.CmdExecuteKeySequence, sent[0].Command)
	require.NotNil(t, sent[0].Args)
	assert.Nil(t, sent[0].Args.InstrCheck)
}

func TestExecuteCallerDeadlineOverridesTimeout(t *testing.T) {
	cmd, bridge := newTestCommander(20 * time.Millisecond)
	bridge.onCommand = func(msg datamodel.CommandMessage) *datamodel.CommandResponse {
		go func() {
			time.Sleep(80 * time.Millisecond)
			out, err := json.Marshal(datamodel.CommandResponse{
				Status:    datamodel.StatusSuccess,
				RequestID: msg.RequestID,
			})
			if err == nil {
				cmd.HandleResponse(out)
			}
		}()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	resp, err := cmd.Execute(ctx, datamodel.CmdExecuteKeySequence, "slow", nil)
	require.NoError(t, err)
	assert.Equal(t, datamodel.StatusSuccess, resp.Status)
}

func TestExecuteTimesOutWithoutResponse(t *testing.T) {
	cmd, _ := newTestCommander(50 * time.Millisecond)

	_, err := cmd.Execute(context.Background(), datamodel.CmdInitWinC5G, "init", nil)
	assert.Error(t, err)
}

func TestExecuteHonorsContextCancel(t *testing.T) {
	cmd, _ := newTestCommander(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := cmd.Execute(ctx, datamodel.CmdInitWinC5G, "init", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHandleResponseIgnoresUnknownAndGarbage(t *testing.T) {
	cmd, _ := newTestCommander(time.Second)

	// Neither of these may panic or block.
	cmd.HandleResponse([]byte("not json"))
	cmd.HandleResponse([]byte(`{"status":"success","request_id":"nobody_waiting"}`))
}

func TestNewRequestIDShape(t *testing.T) {
	id := NewRequestID("MOVE_TO_HOME")
	assert.Regexp(t, `^move_to_home_\d+_[0-9a-f-]{8}$`, id)
}
