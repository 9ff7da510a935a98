package ofp13

// ActionType enumerates the OF1.3 action list entries. Unlike OF1.0's flat
// action list, 1.3 actions only ever appear inside an ApplyActions or
// WriteActions instruction.
type ActionType uint8

const (
	ActionOutput ActionType = iota
	ActionGroup
	ActionSetField
	ActionPushVlan
	ActionPopVlan
	ActionSetQueue
	ActionCopyTtlIn
	ActionCopyTtlOut
	ActionDecNwTtl
)

// Action is one action-list entry.
type Action struct {
	Type ActionType

	// OUTPUT
	OutPort uint32
	MaxLen  uint16

	// GROUP
	GroupID uint32

	// SET_FIELD
	Field MatchField

	// PUSH_VLAN
	EtherType uint16

	// SET_QUEUE
	QueueID uint32
}

func NewOutput(port uint32, maxLen uint16) Action { return Action{Type: ActionOutput, OutPort: port, MaxLen: maxLen} }
func NewGroup(id uint32) Action                   { return Action{Type: ActionGroup, GroupID: id} }
func NewSetField(f MatchField) Action             { return Action{Type: ActionSetField, Field: f} }
func NewPushVlan(etherType uint16) Action         { return Action{Type: ActionPushVlan, EtherType: etherType} }
func NewPopVlan() Action                          { return Action{Type: ActionPopVlan} }
func NewSetQueue(id uint32) Action                { return Action{Type: ActionSetQueue, QueueID: id} }
func NewDecNwTtl() Action                         { return Action{Type: ActionDecNwTtl} }

// ActionSet is the per-packet accumulator instructions write into, keyed
// by action type so WriteActions overwrites rather than appends and so
// execution order is fixed (OUTPUT always last) regardless of the order
// instructions ran in.
type ActionSet struct {
	byType map[ActionType]Action
	order  []ActionType
}

func NewActionSet() *ActionSet {
	return &ActionSet{byType: make(map[ActionType]Action)}
}

// Write merges acts into the set, replacing any existing entry of the
// same type and appending new types to the execution order.
func (s *ActionSet) Write(acts []Action) {
	for _, a := range acts {
		if _, exists := s.byType[a.Type]; !exists {
			s.order = append(s.order, a.Type)
		}
		s.byType[a.Type] = a
	}
}

// Clear empties the set (ClearActions instruction).
func (s *ActionSet) Clear() {
	s.byType = make(map[ActionType]Action)
	s.order = nil
}

// Ordered returns the set's actions in canonical execution order: every
// non-OUTPUT, non-GROUP action in the order it was first written, then
// GROUP, then OUTPUT last (OUTPUT terminates the pipeline).
func (s *ActionSet) Ordered() []Action {
	var out, group, output []Action
	for _, t := range s.order {
		a := s.byType[t]
		switch t {
		case ActionOutput:
			output = append(output, a)
		case ActionGroup:
			group = append(group, a)
		default:
			out = append(out, a)
		}
	}
	out = append(out, group...)
	out = append(out, output...)
	return out
}
