package comau

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/illinois-automation/comau-gateway/pkg/datamodel"
	"github.com/illinois-automation/comau-gateway/pkg/words"
)

func TestAppendWordTypesAssignmentInChunks(t *testing.T) {
	seq := AppendWord(nil, words.ID_COM, 2255)

	assert.Len(t, seq, 7)
	assert.Equal(t, "$WORD[", seq[0].Text)
	assert.Equal(t, "1", seq[1].Text)
	assert.Equal(t, "]:=", seq[2].Text)
	assert.Equal(t, "2255", seq[3].Text)
	for _, a := range seq[:4] {
		assert.Equal(t, datamodel.ActionTypeText, a.Action)
		assert.Equal(t, keyDelayMs, a.DelayAfter)
	}
	for _, a := range seq[4:] {
		assert.Equal(t, datamodel.ActionPressKey, a.Action)
		assert.Equal(t, datamodel.KeyEnter, a.Key)
	}
	// The last ENTER waits for the Drive block refresh.
	assert.Equal(t, finalEnterDelayMs, seq[6].DelayAfter)
}

func TestAppendWordExtendsExistingSequence(t *testing.T) {
	seq := AppendWord(nil, words.ID_COM, 1)
	seq = AppendWord(seq, words.MAQUINA_ESTADOS, 10)

	assert.Len(t, seq, 14)
	assert.Equal(t, "3", seq[8].Text)
	assert.Equal(t, "10", seq[10].Text)
}

func TestAppendOutputDrivesDout(t *testing.T) {
	seq := AppendOutput(nil, words.EV_PINZA, true)

	assert.Len(t, seq, 7)
	assert.Equal(t, "$DOUT[", seq[0].Text)
	assert.Equal(t, "7", seq[1].Text)
	assert.Equal(t, "ON", seq[3].Text)

	seq = AppendOutput(nil, words.EV_PINZA, false)
	assert.Equal(t, "OFF", seq[3].Text)
}

func TestPredefinedSequences(t *testing.T) {
	assert.Equal(t, "$FMI[1]:=0", ResetRobotSequence()[0].Text)
	assert.Len(t, ResetRobotSequence(), 4)

	home := HomeKeySequence()
	assert.Equal(t, "HOME", home[0].Text)
	assert.Equal(t, datamodel.KeyEnter, home[1].Key)

	assert.Equal(t, datamodel.KeyEsc, ClearErrorsSequence()[0].Key)
	assert.Equal(t, datamodel.KeyF1, StartProgramSequence()[0].Key)
	assert.Equal(t, datamodel.KeyEsc, StopProgramSequence()[0].Key)
}
