package comau

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/illinois-automation/comau-gateway/pkg/datamodel"
	"github.com/illinois-automation/comau-gateway/pkg/words"
)

// Replies the cell program writes into the memory block.
const (
	replyHomeDone   = "$HOME done!"
	replyFeederDone = "Move to Feeder done!"
	replyTakePhoto  = "Take a Photo!"
	replyPunchDone  = "Troqueles hechos!"
)

// Cell program states written to MAQUINA_ESTADOS.
const (
	stateFeederRoutine = 10
	statePunchNotches  = 40
)

// The feeder approach height: dZ = feederBaseZ - gasket height in tenths.
const feederBaseZ = 2200

// Reply wait timeouts, following the motion they cover.
const (
	homeReplyTimeoutMs   = 10000
	motionReplyTimeoutMs = 30000
)

// Robot executes the cell routines on top of a Commander.
type Robot struct {
	cmd *Commander
}

// NewRobot wraps a commander.
func NewRobot(cmd *Commander) *Robot {
	return &Robot{cmd: cmd}
}

// MMToTenths converts millimeters to the tenth-of-millimeter integers the
// word table carries.
func MMToTenths(mm float64) int {
	return int(math.Round(mm * 10))
}

// TenthsToMM is the inverse of MMToTenths.
func TenthsToMM(tenths int) float64 {
	return float64(tenths) / 10
}

// NewSequenceID derives the 4-digit correlation id written to ID_COM.
func NewSequenceID() int {
	return int(time.Now().Unix() % 10000)
}

// MoveToHome sends the arm to its HOME position and waits for the
// confirmation reply.
func (r *Robot) MoveToHome(ctx context.Context) (int, error) {
	id := NewSequenceID()
	zap.S().Infof("MOVE TO HOME, sequence id %d", id)

	res, err := r.cmd.SendSequence(ctx, "SET_ID_COM", AppendWord(nil, words.ID_COM, id))
	if err != nil {
		return id, err
	}
	if !res.OK() {
		return id, fmt.Errorf("setting sequence id: %s", res.Message)
	}

	res, err = r.cmd.SendSequence(ctx, "MOVE_TO_HOME", AppendWord(nil, words.MOVE_TO_HOME, 1))
	if err != nil {
		return id, err
	}
	if !res.OK() {
		return id, fmt.Errorf("sending MOVE_TO_HOME: %s", res.Message)
	}

	reply, err := r.cmd.WaitRobotResponse(ctx, id, replyHomeDone, homeReplyTimeoutMs)
	if err != nil {
		return id, err
	}
	if !reply.Success {
		return id, fmt.Errorf("waiting for %q: %s", replyHomeDone, reply.ErrMessage)
	}
	zap.S().Infof("Robot reached HOME (sequence id %d)", id)
	return id, nil
}

// SayHello triggers the greeting command and returns whatever the robot
// answers. Used as a liveness probe for the cell program.
func (r *Robot) SayHello(ctx context.Context) (string, error) {
	id := NewSequenceID()

	seq := AppendWord(nil, words.ID_COM, id)
	seq = AppendWord(seq, words.SAY_HELLO, 1)

	res, err := r.cmd.SendSequence(ctx, "SAY_HELLO", seq)
	if err != nil {
		return "", err
	}
	if !res.OK() {
		return "", fmt.Errorf("sending SAY_HELLO: %s", res.Message)
	}

	reply, err := r.cmd.WaitRobotResponse(ctx, id, "", homeReplyTimeoutMs)
	if err != nil {
		return "", err
	}
	if !reply.Success {
		return "", fmt.Errorf("no greeting: %s", reply.ErrMessage)
	}
	return reply.Text, nil
}

// FeederRoutine drives the arm to the feeder: one combined sequence sets
// the correlation id, switches the state machine to the feeder routine and
// passes the gasket parameters. It returns the sequence id so the caller
// can correlate the follow-up notch transfer, and blocks until the robot
// asks for the photo.
func (r *Robot) FeederRoutine(ctx context.Context, notchCount int, heightMM float64) (int, error) {
	id := NewSequenceID()
	zap.S().Infof("Feeder routine, sequence id %d, %d notches, gasket height %.1f mm", id, notchCount, heightMM)

	seq := AppendWord(nil, words.ID_COM, id)
	seq = AppendWord(seq, words.MAQUINA_ESTADOS, stateFeederRoutine)
	seq = AppendWord(seq, words.CANTIDAD_MUESCAS, notchCount)

	dz := 0
	if heightMM > 0 {
		dz = feederBaseZ - MMToTenths(heightMM)
	}
	seq = AppendWord(seq, words.DZ, dz)

	res, err := r.cmd.SendSequence(ctx, "FEEDER_ROUTINE", seq)
	if err != nil {
		return id, err
	}
	if !res.OK() {
		return id, fmt.Errorf("sending feeder sequence: %s", res.Message)
	}

	reply, err := r.cmd.WaitRobotResponse(ctx, id, replyFeederDone, motionReplyTimeoutMs)
	if err != nil {
		return id, err
	}
	if !reply.Success {
		return id, fmt.Errorf("waiting for %q: %s", replyFeederDone, reply.ErrMessage)
	}

	reply, err = r.cmd.WaitRobotResponse(ctx, id+1, replyTakePhoto, motionReplyTimeoutMs)
	if err != nil {
		return id, err
	}
	if !reply.Success {
		return id, fmt.Errorf("waiting for %q: %s", replyTakePhoto, reply.ErrMessage)
	}
	zap.S().Infof("Robot at feeder, photo requested (sequence id %d)", id)
	return id, nil
}

// SendNotchMatrix transfers the notch coordinates into the word table and
// releases the punch state. Coordinates go out in tenths of a millimeter,
// X,Y interleaved starting at MUESCAS_MATRIX_XY; baseID is the sequence id
// the feeder routine ran under, the punch confirmation arrives on
// baseID+2.
func (r *Robot) SendNotchMatrix(ctx context.Context, baseID int, notches []datamodel.NotchMM) error {
	if len(notches) == 0 {
		zap.S().Warn("No notches to send")
	}

	seq := AppendWord(nil, words.MAQUINA_ESTADOS, statePunchNotches)
	for i, n := range notches {
		idxX := words.MUESCAS_MATRIX_XY + i*2
		seq = AppendWord(seq, idxX, MMToTenths(n.X))
		seq = AppendWord(seq, idxX+1, MMToTenths(n.Y))
	}

	res, err := r.cmd.SendSequence(ctx, "SET_MUESCAS", seq)
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("sending notch matrix: %s", res.Message)
	}

	reply, err := r.cmd.WaitRobotResponse(ctx, baseID+2, replyPunchDone, motionReplyTimeoutMs)
	if err != nil {
		return err
	}
	if !reply.Success {
		return fmt.Errorf("waiting for %q: %s", replyPunchDone, reply.ErrMessage)
	}
	zap.S().Infof("Punching confirmed for %d notches", len(notches))
	return nil
}

// SetPressDelay writes the stamping press delay in milliseconds.
func (r *Robot) SetPressDelay(ctx context.Context, delayMs int) error {
	res, err := r.cmd.SendSequence(ctx, "SET_PRESS_DELAY",
		AppendWord(nil, words.DELAY_TROQUELADORA, delayMs))
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("setting press delay: %s", res.Message)
	}
	return nil
}

// SetGripper drives the gripper solenoid on $DOUT[EV_PINZA].
func (r *Robot) SetGripper(ctx context.Context, on bool) error {
	res, err := r.cmd.SendSequence(ctx, "SET_GRIPPER",
		AppendOutput(nil, words.EV_PINZA, on))
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("driving gripper: %s", res.Message)
	}
	return nil
}

// Maintenance operations below go out without the Instr: check: they are
// exactly what operators reach for when the cell program is down.

// ResetRobot types the $FMI reset sequence.
func (r *Robot) ResetRobot(ctx context.Context) error {
	res, err := r.cmd.SendRawSequence(ctx, "RESET_ROBOT", ResetRobotSequence())
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("resetting robot: %s", res.Message)
	}
	return nil
}

// ClearErrors dismisses the active pendant error.
func (r *Robot) ClearErrors(ctx context.Context) error {
	res, err := r.cmd.SendRawSequence(ctx, "CLEAR_ERRORS", ClearErrorsSequence())
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("clearing errors: %s", res.Message)
	}
	return nil
}

// HomeByKeyboard types HOME directly on the terminal, the fallback when
// the word-table MOVE_TO_HOME command has nothing listening.
func (r *Robot) HomeByKeyboard(ctx context.Context) error {
	res, err := r.cmd.SendRawSequence(ctx, "HOME_KEY", HomeKeySequence())
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("typing HOME: %s", res.Message)
	}
	return nil
}

// StartProgram starts the loaded cell program.
func (r *Robot) StartProgram(ctx context.Context) error {
	res, err := r.cmd.SendRawSequence(ctx, "START_PROGRAM", StartProgramSequence())
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("starting program: %s", res.Message)
	}
	return nil
}

// StopProgram halts the running cell program.
func (r *Robot) StopProgram(ctx context.Context) error {
	res, err := r.cmd.SendRawSequence(ctx, "STOP_PROGRAM", StopProgramSequence())
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("stopping program: %s", res.Message)
	}
	return nil
}
