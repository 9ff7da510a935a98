package ofp10

import "net"

// ActionType distinguishes the OF1.0 action list entries // names. VLAN actions are accepted but executed as no-ops.
type ActionType uint8

const (
	ActionOutput ActionType = iota
	ActionSetDlSrc
	ActionSetDlDst
	ActionSetNwSrc
	ActionSetNwDst
	ActionSetNwTos
	ActionSetTpSrc
	ActionSetTpDst
	ActionSetVlanVid
	ActionSetVlanPcp
	ActionStripVlan
)

// Action is one entry of a flow's action list, executed in list order
//.
type Action struct {
	Type ActionType

	// OUTPUT
	OutPort uint16
	MaxLen  uint16

	// SET_DL_SRC / SET_DL_DST
	DlAddr net.HardwareAddr

	// SET_NW_SRC / SET_NW_DST
	NwAddr net.IP

	// SET_NW_TOS
	NwTos uint8

	// SET_TP_SRC / SET_TP_DST
	TpPort uint16

	// SET_VLAN_VID / SET_VLAN_PCP
	VlanVid uint16
	VlanPcp uint8
}

// NewOutput builds an OUTPUT action. maxLen is carried in the action, but
// output does not apply it: no copy is truncated, CONTROLLER included.
func NewOutput(port uint16, maxLen uint16) Action {
	return Action{Type: ActionOutput, OutPort: port, MaxLen: maxLen}
}

func NewSetDlSrc(addr net.HardwareAddr) Action { return Action{Type: ActionSetDlSrc, DlAddr: addr} }
func NewSetDlDst(addr net.HardwareAddr) Action { return Action{Type: ActionSetDlDst, DlAddr: addr} }
func NewSetNwSrc(ip net.IP) Action             { return Action{Type: ActionSetNwSrc, NwAddr: ip} }
func NewSetNwDst(ip net.IP) Action             { return Action{Type: ActionSetNwDst, NwAddr: ip} }
func NewSetNwTos(tos uint8) Action             { return Action{Type: ActionSetNwTos, NwTos: tos} }
func NewSetTpSrc(port uint16) Action           { return Action{Type: ActionSetTpSrc, TpPort: port} }
func NewSetTpDst(port uint16) Action           { return Action{Type: ActionSetTpDst, TpPort: port} }
func NewSetVlanVid(vid uint16) Action          { return Action{Type: ActionSetVlanVid, VlanVid: vid} }
func NewSetVlanPcp(pcp uint8) Action           { return Action{Type: ActionSetVlanPcp, VlanPcp: pcp} }
func NewStripVlan() Action                     { return Action{Type: ActionStripVlan} }
