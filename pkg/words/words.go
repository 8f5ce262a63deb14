// Package words fixes the wire-level addressing scheme of the COMAU
// controller's $WORD table. The controller firmware addresses registers by
// these literal numbers; changing any value breaks compatibility with the
// PDL2 program running on the robot side.
package words

// Control variables (0X).
const (
	ID_COM          = 1 // echoed back by the robot to correlate responses
	SAY_HELLO       = 2 // write 1 to request a greeting
	MAQUINA_ESTADOS = 3 // state machine index of the cell program
	MOVE_TO_HOME    = 4 // write 1 to send the arm to HOME
)

// Coordinate argument offsets (2X). The controller symbols are dX..dR;
// six consecutive slots, X/Y/Z block first.
const (
	DX = 22
	DY = 23
	DZ = 24
	DA = 25
	DE = 26
	DR = 27
)

// Notch (muesca) parameters (3X). The matrix buffer immediately follows
// the count: interleaved X,Y pairs starting at MUESCAS_MATRIX_XY.
const (
	CANTIDAD_MUESCAS  = 30
	MUESCAS_MATRIX_XY = 31
)

// Timing parameters (4X).
const (
	DELAY_TROQUELADORA = 40 // stamping press delay, milliseconds
)

// Output ports ($DOUT). Separate address space from the word table, so the
// numeric value may coincide with a word index without referring to the
// same register.
const (
	EV_PINZA = 7 // $DOUT[7], gripper solenoid
)

// WordIndices lists every word-table index defined above, in ascending
// order. Output ports are not part of this list.
var WordIndices = []int{
	ID_COM,
	SAY_HELLO,
	MAQUINA_ESTADOS,
	MOVE_TO_HOME,
	DX,
	DY,
	DZ,
	DA,
	DE,
	DR,
	CANTIDAD_MUESCAS,
	MUESCAS_MATRIX_XY,
	DELAY_TROQUELADORA,
}
