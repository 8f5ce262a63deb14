package words

import (
	"fmt"
)

// Class groups variables by their role in the cell program.
type Class string

const (
	ClassControl   Class = "control"
	ClassCommand   Class = "command"
	ClassState     Class = "state"
	ClassParameter Class = "parameter"
	ClassIO        Class = "io"
)

// Variable describes one entry of the word table: the controller symbol,
// its index and the values the robot side accepts for it. An empty
// ValidValues slice means any integer is accepted.
type Variable struct {
	Index       int
	Name        string
	Description string
	Class       Class
	ValidValues []int
}

// Assignment renders the PDL2 statement that sets this variable.
func (v Variable) Assignment(value int) string {
	return fmt.Sprintf("$WORD[%d]:=%d", v.Index, value)
}

// Valid reports whether the robot side accepts value for this variable.
func (v Variable) Valid(value int) bool {
	if len(v.ValidValues) == 0 {
		return true
	}
	for _, vv := range v.ValidValues {
		if vv == value {
			return true
		}
	}
	return false
}

// Registry resolves word-table variables by index or by controller symbol.
type Registry struct {
	byIndex map[int]Variable
	byName  map[string]int
}

// NewRegistry builds the registry of all word-table variables. Output
// ports (EV_PINZA) are intentionally absent: they address $DOUT, not
// $WORD.
func NewRegistry() *Registry {
	r := &Registry{
		byIndex: make(map[int]Variable),
		byName:  make(map[string]int),
	}

	for _, v := range []Variable{
		{ID_COM, "ID_COM", "response correlation index", ClassControl, nil},
		{SAY_HELLO, "SAY_HELLO", "greeting command", ClassCommand, []int{1}},
		{MAQUINA_ESTADOS, "MAQUINA_ESTADOS", "state machine index", ClassState, validStates()},
		{MOVE_TO_HOME, "MOVE_TO_HOME", "send the arm to HOME", ClassCommand, []int{1}},
		{DX, "dX", "argument X coordinate", ClassParameter, nil},
		{DY, "dY", "argument Y coordinate", ClassParameter, nil},
		{DZ, "dZ", "argument Z coordinate", ClassParameter, nil},
		{DA, "dA", "argument angle A", ClassParameter, nil},
		{DE, "dE", "argument angle E", ClassParameter, nil},
		{DR, "dR", "argument angle R", ClassParameter, nil},
		{CANTIDAD_MUESCAS, "CANTIDAD_MUESCAS", "number of detected notches", ClassParameter, nil},
		{MUESCAS_MATRIX_XY, "MUESCAS_MATRIX_XY", "notch matrix, interleaved X,Y pairs", ClassParameter, nil},
		{DELAY_TROQUELADORA, "DELAY_TROQUELADORA", "stamping press delay in ms", ClassParameter, nil},
	} {
		r.register(v)
	}
	return r
}

// valid cell program states are 0..99
func validStates() []int {
	states := make([]int, 100)
	for i := range states {
		states[i] = i
	}
	return states
}

func (r *Registry) register(v Variable) {
	r.byIndex[v.Index] = v
	r.byName[v.Name] = v.Index
}

// ByIndex returns the variable at the given word index.
func (r *Registry) ByIndex(index int) (Variable, bool) {
	v, ok := r.byIndex[index]
	return v, ok
}

// ByName returns the variable with the given controller symbol, e.g. "dX".
func (r *Registry) ByName(name string) (Variable, bool) {
	index, ok := r.byName[name]
	if !ok {
		return Variable{}, false
	}
	return r.byIndex[index], true
}

// ByClass returns all variables of the given class, keyed by index.
func (r *Registry) ByClass(class Class) map[int]Variable {
	out := make(map[int]Variable)
	for index, v := range r.byIndex {
		if v.Class == class {
			out[index] = v
		}
	}
	return out
}

// All returns a copy of the full table, keyed by index.
func (r *Registry) All() map[int]Variable {
	out := make(map[int]Variable, len(r.byIndex))
	for index, v := range r.byIndex {
		out[index] = v
	}
	return out
}

// Assignment renders "$WORD[index]:=value" after validating the value
// against the variable at index.
func (r *Registry) Assignment(index, value int) (string, error) {
	v, ok := r.byIndex[index]
	if !ok {
		return "", fmt.Errorf("no variable at word index %d", index)
	}
	if !v.Valid(value) {
		return "", fmt.Errorf("value %d not accepted for %s ($WORD[%d])", value, v.Name, index)
	}
	return v.Assignment(value), nil
}
