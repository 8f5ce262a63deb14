// Package datamodel holds the JSON structs exchanged with the WinC5G
// bridge over MQTT. Field names are fixed by the bridge protocol.
package datamodel

// Commands understood by the WinC5G bridge.
const (
	CmdInitWinC5G            = "InitWinC5G"
	CmdExecuteKeySequence    = "ExecuteKeySequence"
	CmdExecuteWithInstrCheck = "ExecuteKeySequenceWithInstrCheck"
	CmdFindStringLenInBlock  = "FindStringLenInBlock"
	CmdVerifyInstr           = "VerifyInstr"
	CmdResetRobot            = "ResetRobot"
)

// Key sequence action kinds.
const (
	ActionTypeText = "type_text"
	ActionPressKey = "press_key"
	ActionWait     = "wait"
)

// Special keys of the WinC5G terminal.
const (
	KeyEnter = "ENTER"
	KeyEsc   = "ESC"
	KeyTab   = "TAB"
	KeyF1    = "F1"
)

// CommandMessage is the envelope published on the commands topic.
type CommandMessage struct {
	Command   string       `json:"command"`
	Timestamp string       `json:"timestamp"`
	Args      *CommandArgs `json:"args,omitempty"`
	RequestID string       `json:"request_id"`
}

// CommandArgs carries the arguments of either command flavour. The bridge
// ignores fields that do not apply to the command.
type CommandArgs struct {
	// ExecuteKeySequence*
	Sequence   []KeyAction `json:"sequence,omitempty"`
	InstrCheck *InstrCheck `json:"instr_check,omitempty"`
	Options    *Options    `json:"options,omitempty"`

	// FindStringLenInBlock
	BlockID      int    `json:"block_id,omitempty"`
	SearchString string `json:"search_string,omitempty"`
	Length       int    `json:"length,omitempty"`
	TimeoutMs    int    `json:"timeout_ms,omitempty"`
}

// KeyAction is one step of a key sequence typed into the WinC5G terminal.
type KeyAction struct {
	Action      string `json:"action"`
	Text        string `json:"text,omitempty"`
	Key         string `json:"key,omitempty"`
	Description string `json:"description,omitempty"`
	DelayAfter  int    `json:"delay_after"`
}

// InstrCheck asks the bridge to verify the Drive block shows "Instr:"
// after the sequence, i.e. that the robot program is actually running.
type InstrCheck struct {
	Enabled      bool   `json:"enabled"`
	BlockID      int    `json:"block_id"`
	SearchString string `json:"search_string"`
	TimeoutMs    int    `json:"timeout_ms"`
}

// Options control how the bridge executes a key sequence.
type Options struct {
	VerifyFocus  bool `json:"verify_focus"`
	RestoreFocus bool `json:"restore_focus"`
	AbortOnError bool `json:"abort_on_error"`
	DryRun       bool `json:"dry_run"`
}

// Response statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// CommandResponse is what the bridge publishes on the memory-data topic
// for every executed command.
type CommandResponse struct {
	Status           string       `json:"status"`
	Command          string       `json:"command,omitempty"`
	RequestID        string       `json:"request_id"`
	InstrCheckPassed bool         `json:"instr_check_passed,omitempty"`
	Occurrences      []Occurrence `json:"occurrences,omitempty"`
	Message          string       `json:"message,omitempty"`
	ErrorCode        string       `json:"error_code,omitempty"`
	ErrorMessage     string       `json:"error_message,omitempty"`
	ExecutionTime    float64      `json:"execution_time,omitempty"`
	BlockAddress     string       `json:"block_address,omitempty"`
	BlockSize        int          `json:"block_size,omitempty"`
}

// Occurrence is one match of a FindStringLenInBlock search inside the
// shared memory block of the terminal.
type Occurrence struct {
	FullContext string `json:"full_context"`
}

// RoutineRequest triggers a robot routine; published by operators or the
// line controller on the routines topic.
type RoutineRequest struct {
	Routine   string       `json:"routine"`
	RequestID string       `json:"request_id,omitempty"`
	Args      *RoutineArgs `json:"args,omitempty"`
}

// RoutineArgs carries the routine parameters that come from the vision
// side: notch coordinates in millimeters and the gasket height.
type RoutineArgs struct {
	Notches     []NotchMM `json:"notches,omitempty"`
	HeightMM    float64   `json:"height_mm,omitempty"`
	DelayMs     int       `json:"delay_ms,omitempty"`
	GripperOpen *bool     `json:"gripper_open,omitempty"`
	NotchCount  int       `json:"notch_count,omitempty"`
}

// NotchMM is a detected notch center in millimeters.
type NotchMM struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RoutineResult is published on <routines topic>/result after execution.
type RoutineResult struct {
	Routine     string `json:"routine"`
	RequestID   string `json:"request_id,omitempty"`
	Status      string `json:"status"`
	SequenceID  int    `json:"sequence_id,omitempty"`
	Message     string `json:"message,omitempty"`
	RobotStatus string `json:"robot_status,omitempty"`
}
