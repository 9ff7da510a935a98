package ofp13

// InstructionType enumerates a flow entry's instruction set members. A
// flow entry holds at most one instruction of each type.
type InstructionType uint8

const (
	InstructionGotoTable InstructionType = iota
	InstructionWriteMetadata
	InstructionWriteActions
	InstructionApplyActions
	InstructionClearActions
	InstructionMeter
)

// Instruction is one member of a flow entry's instruction set.
type Instruction struct {
	Type InstructionType

	// GOTO_TABLE
	TableID uint8

	// WRITE_METADATA
	Metadata     uint64
	MetadataMask uint64

	// WRITE_ACTIONS / APPLY_ACTIONS
	Actions []Action

	// METER
	MeterID uint32
}

func NewGotoTable(tableID uint8) Instruction {
	return Instruction{Type: InstructionGotoTable, TableID: tableID}
}
func NewWriteMetadata(value, mask uint64) Instruction {
	return Instruction{Type: InstructionWriteMetadata, Metadata: value, MetadataMask: mask}
}
func NewWriteActions(acts []Action) Instruction {
	return Instruction{Type: InstructionWriteActions, Actions: acts}
}
func NewApplyActions(acts []Action) Instruction {
	return Instruction{Type: InstructionApplyActions, Actions: acts}
}
func NewClearActions() Instruction { return Instruction{Type: InstructionClearActions} }
func NewMeter(id uint32) Instruction {
	return Instruction{Type: InstructionMeter, MeterID: id}
}

// InstructionSet is the ordered set of instructions a flow entry carries,
// at most one of each type.
type InstructionSet []Instruction

// Find returns the instruction of type t, if present.
func (s InstructionSet) Find(t InstructionType) (Instruction, bool) {
	for _, ins := range s {
		if ins.Type == t {
			return ins, true
		}
	}
	return Instruction{}, false
}
