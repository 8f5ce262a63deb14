// Package comau builds and executes the key sequences and memory reads
// that drive a COMAU C5G controller through the WinC5G terminal bridge.
package comau

import (
	"fmt"

	"github.com/illinois-automation/comau-gateway/pkg/datamodel"
)

// Inter-key delays in milliseconds. The terminal drops keystrokes when
// typed faster; the last ENTER needs the longer pause before the Drive
// block refreshes.
const (
	keyDelayMs        = 10
	finalEnterDelayMs = 500
)

func typeText(text, description string, delayMs int) datamodel.KeyAction {
	return datamodel.KeyAction{
		Action:      datamodel.ActionTypeText,
		Text:        text,
		Description: description,
		DelayAfter:  delayMs,
	}
}

func pressKey(key, description string, delayMs int) datamodel.KeyAction {
	return datamodel.KeyAction{
		Action:      datamodel.ActionPressKey,
		Key:         key,
		Description: description,
		DelayAfter:  delayMs,
	}
}

// tripleEnter confirms an assignment on the terminal. Two ENTER for the
// statement, a third one to dismiss the echo.
func tripleEnter(lastDelayMs int) []datamodel.KeyAction {
	return []datamodel.KeyAction{
		pressKey(datamodel.KeyEnter, "first ENTER", keyDelayMs),
		pressKey(datamodel.KeyEnter, "second ENTER", keyDelayMs),
		pressKey(datamodel.KeyEnter, "third ENTER", lastDelayMs),
	}
}

// AppendWord appends the typing sequence that assigns value to
// $WORD[index]. The statement is typed in four chunks so a dropped
// keystroke aborts before the value, not inside it.
func AppendWord(seq []datamodel.KeyAction, index, value int) []datamodel.KeyAction {
	seq = append(seq,
		typeText("$WORD[", "open word assignment", keyDelayMs),
		typeText(fmt.Sprintf("%d", index), fmt.Sprintf("word index %d", index), keyDelayMs),
		typeText("]:=", "assignment operator", keyDelayMs),
		typeText(fmt.Sprintf("%d", value), fmt.Sprintf("value %d", value), keyDelayMs),
	)
	return append(seq, tripleEnter(finalEnterDelayMs)...)
}

// AppendOutput appends the typing sequence that drives the digital output
// $DOUT[port], e.g. the gripper solenoid.
func AppendOutput(seq []datamodel.KeyAction, port int, on bool) []datamodel.KeyAction {
	state := "OFF"
	if on {
		state = "ON"
	}
	seq = append(seq,
		typeText("$DOUT[", "open output assignment", keyDelayMs),
		typeText(fmt.Sprintf("%d", port), fmt.Sprintf("output port %d", port), keyDelayMs),
		typeText("]:=", "assignment operator", keyDelayMs),
		typeText(state, state, keyDelayMs),
	)
	return append(seq, tripleEnter(finalEnterDelayMs)...)
}

// Predefined maintenance sequences, typed verbatim by the operators before
// the gateway existed.

// ResetRobotSequence clears the motion flag via $FMI[1].
func ResetRobotSequence() []datamodel.KeyAction {
	seq := []datamodel.KeyAction{
		typeText("$FMI[1]:=0", "reset motion flag", 200),
	}
	return append(seq,
		pressKey(datamodel.KeyEnter, "first ENTER", 200),
		pressKey(datamodel.KeyEnter, "second ENTER", 200),
		pressKey(datamodel.KeyEnter, "third ENTER", finalEnterDelayMs),
	)
}

// HomeKeySequence types the HOME command directly on the terminal. The
// word-table MOVE_TO_HOME command is preferred; this is the fallback when
// the cell program is not loaded.
func HomeKeySequence() []datamodel.KeyAction {
	return []datamodel.KeyAction{
		typeText("HOME", "type HOME", 200),
		pressKey(datamodel.KeyEnter, "execute HOME", 1000),
	}
}

// ClearErrorsSequence dismisses the active error on the pendant.
func ClearErrorsSequence() []datamodel.KeyAction {
	return []datamodel.KeyAction{
		pressKey(datamodel.KeyEsc, "clear errors", 200),
		pressKey(datamodel.KeyEnter, "confirm", finalEnterDelayMs),
	}
}

// StartProgramSequence starts the loaded program.
func StartProgramSequence() []datamodel.KeyAction {
	return []datamodel.KeyAction{
		pressKey(datamodel.KeyF1, "start program", 1000),
	}
}

// StopProgramSequence halts the running program.
func StopProgramSequence() []datamodel.KeyAction {
	return []datamodel.KeyAction{
		pressKey(datamodel.KeyEsc, "stop program", finalEnterDelayMs),
	}
}
