package words

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignmentRendering(t *testing.T) {
	r := NewRegistry()

	s, err := r.Assignment(ID_COM, 2255)
	assert.NoError(t, err)
	assert.Equal(t, "$WORD[1]:=2255", s)

	s, err = r.Assignment(DZ, 1980)
	assert.NoError(t, err)
	assert.Equal(t, "$WORD[24]:=1980", s)
}

func TestAssignmentRejectsUnknownIndex(t *testing.T) {
	r := NewRegistry()
	_, err := r.Assignment(99, 1)
	assert.Error(t, err)
}

func TestCommandVariablesOnlyAcceptOne(t *testing.T) {
	r := NewRegistry()

	_, err := r.Assignment(MOVE_TO_HOME, 1)
	assert.NoError(t, err)

	_, err = r.Assignment(MOVE_TO_HOME, 0)
	assert.Error(t, err)

	_, err = r.Assignment(SAY_HELLO, 2)
	assert.Error(t, err)
}

func TestStateMachineRange(t *testing.T) {
	r := NewRegistry()

	_, err := r.Assignment(MAQUINA_ESTADOS, 40)
	assert.NoError(t, err)

	_, err = r.Assignment(MAQUINA_ESTADOS, 100)
	assert.Error(t, err)
}

func TestByClass(t *testing.T) {
	r := NewRegistry()

	params := r.ByClass(ClassParameter)
	assert.Len(t, params, 9)
	assert.Contains(t, params, DX)
	assert.Contains(t, params, DELAY_TROQUELADORA)

	commands := r.ByClass(ClassCommand)
	assert.Len(t, commands, 2)
}

func TestByNameUsesControllerSymbols(t *testing.T) {
	r := NewRegistry()

	// The controller symbols for the coordinate block are lower-case d.
	for name, want := range map[string]int{"dX": 22, "dY": 23, "dZ": 24} {
		v, ok := r.ByName(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, v.Index)
	}

	_, ok := r.ByName("DX")
	assert.False(t, ok)
}
