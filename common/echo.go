package common

// EchoRequest/EchoReply are the keepalive pair used to detect a dead
// control channel (ofctrl/ofswitch.go's periodic echo loop, generalized
// here into a scheduler-driven timer instead of a goroutine sleep). Both
// dialects share one wire shape since the echo payload carries no
// dialect-specific fields.
type EchoRequest struct {
	Header
	Data []byte
}

type EchoReply struct {
	Header
	Data []byte
}

const (
	TypeEchoRequest uint8 = 2
	TypeEchoReply   uint8 = 3
)

func NewEchoRequest(version uint8, xid uint32) *EchoRequest {
	e := &EchoRequest{Header: NewHeader(version, TypeEchoRequest, xid)}
	e.Header.Length = e.Len()
	return e
}

func NewEchoReply(version uint8, xid uint32, data []byte) *EchoReply {
	e := &EchoReply{Header: NewHeader(version, TypeEchoReply, xid), Data: data}
	e.Header.Length = e.Len()
	return e
}

func (e *EchoRequest) Len() uint16 { return e.Header.Len() + uint16(len(e.Data)) }
func (e *EchoRequest) MarshalBinary() ([]byte, error) {
	e.Header.Length = e.Len()
	data, err := e.Header.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(data, e.Data...), nil
}
func (e *EchoRequest) UnmarshalBinary(data []byte) error {
	if err := e.Header.UnmarshalBinary(data); err != nil {
		return err
	}
	e.Data = append([]byte(nil), data[8:]...)
	return nil
}

func (e *EchoReply) Len() uint16 { return e.Header.Len() + uint16(len(e.Data)) }
func (e *EchoReply) MarshalBinary() ([]byte, error) {
	e.Header.Length = e.Len()
	data, err := e.Header.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(data, e.Data...), nil
}
func (e *EchoReply) UnmarshalBinary(data []byte) error {
	if err := e.Header.UnmarshalBinary(data); err != nil {
		return err
	}
	e.Data = append([]byte(nil), data[8:]...)
	return nil
}
