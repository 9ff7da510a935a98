// Package common holds the pieces shared by the ofp10 and ofp13 dialects:
// the 8-byte OpenFlow header, the Hello handshake message and version
// negotiation, and the error-message taxonomy. Grounded on the ofctrl
// package's usage pattern, which imports a sibling "common" package for
// exactly these (common.Header, common.Hello, common.NewHello).
package common

import (
	"encoding/binary"
	"fmt"
)

// Protocol version numbers this module negotiates.
const (
	VersionOF10 uint8 = 0x01
	VersionOF13 uint8 = 0x04
)

// Message types shared by both dialects (OFPT_HELLO, OFPT_ERROR, ...). Each
// dialect package extends this with its own type space starting where its
// header length requires; the constants here only cover the handshake
// messages that are demultiplexed before a version has been chosen.
const (
	TypeHello uint8 = 0
	TypeError uint8 = 1
)

// Header is the 8-byte preamble in front of every OpenFlow message:
// version, type, total length (including this header), transaction id.
type Header struct {
	Version uint8
	Type    uint8
	Length  uint16
	Xid     uint32
}

// NewHeader builds a header for a message of the given type, xid assigned
// by the caller (normally from the simulation context's counter, see
// simtime.Context.NextXid).
func NewHeader(version, msgType uint8, xid uint32) Header {
	return Header{Version: version, Type: msgType, Xid: xid}
}

func (h *Header) Len() uint16 {
	return 8
}

func (h *Header) MarshalBinary() ([]byte, error) {
	data := make([]byte, 8)
	data[0] = h.Version
	data[1] = h.Type
	binary.BigEndian.PutUint16(data[2:4], h.Length)
	binary.BigEndian.PutUint32(data[4:8], h.Xid)
	return data, nil
}

func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("common: header too short: %d bytes", len(data))
	}
	h.Version = data[0]
	h.Type = data[1]
	h.Length = binary.BigEndian.Uint16(data[2:4])
	h.Xid = binary.BigEndian.Uint32(data[4:8])
	return nil
}

// Hello is the first message exchanged on a new connection. Version
// negotiation succeeds only when both ends advertise the
// same major version handled by this module (OF1.0 or OF1.3).
type Hello struct {
	Header
}

// NewHello builds a Hello advertising the given protocol version.
func NewHello(version uint8) (*Hello, error) {
	if version != VersionOF10 && version != VersionOF13 {
		return nil, fmt.Errorf("common: unsupported hello version %d", version)
	}
	h := &Hello{Header: NewHeader(version, TypeHello, 0)}
	h.Header.Length = h.Len()
	return h, nil
}

func (h *Hello) Len() uint16 {
	return h.Header.Len()
}

func (h *Hello) MarshalBinary() ([]byte, error) {
	h.Header.Length = h.Len()
	return h.Header.MarshalBinary()
}

func (h *Hello) UnmarshalBinary(data []byte) error {
	return h.Header.UnmarshalBinary(data)
}

// Negotiate returns the agreed version, or an error describing why
// negotiation failed.
func Negotiate(local, peer uint8) (uint8, error) {
	if local != peer {
		return 0, fmt.Errorf("common: hello version mismatch: local=%d peer=%d", local, peer)
	}
	return local, nil
}

// Error reason codes used by the taxonomy below: a type selects the
// broad category (hello failure, flow-mod failure, group-mod failure),
// a code narrows it within that category.
const (
	ErrTypeHelloFailed    uint16 = 0
	ErrTypeFlowModFailed  uint16 = 3
	ErrTypeGroupModFailed uint16 = 9

	ErrHelloFailedIncompatible uint16 = 0
	ErrFlowModFailedOverlap    uint16 = 5
	ErrGroupModFailedExists    uint16 = 4
)

// ErrorMsg is the common encoding for OFPT_ERROR across both dialects: a
// type/code pair plus the offending request bytes, echoed back verbatim.
type ErrorMsg struct {
	Header
	Type uint16
	Code uint16
	Data []byte
}

// NewErrorMsg builds an error reply correlated to xid, echoing the
// offending request's bytes back to the controller for diagnosis.
func NewErrorMsg(version uint8, xid uint32, errType, code uint16, data []byte) *ErrorMsg {
	e := &ErrorMsg{
		Header: NewHeader(version, TypeError, xid),
		Type:   errType,
		Code:   code,
		Data:   data,
	}
	e.Header.Length = e.Len()
	return e
}

func (e *ErrorMsg) Len() uint16 {
	return e.Header.Len() + 4 + uint16(len(e.Data))
}

func (e *ErrorMsg) MarshalBinary() ([]byte, error) {
	e.Header.Length = e.Len()
	data, err := e.Header.MarshalBinary()
	if err != nil {
		return nil, err
	}
	tail := make([]byte, 4)
	binary.BigEndian.PutUint16(tail[0:2], e.Type)
	binary.BigEndian.PutUint16(tail[2:4], e.Code)
	data = append(data, tail...)
	data = append(data, e.Data...)
	return data, nil
}

func (e *ErrorMsg) UnmarshalBinary(data []byte) error {
	if err := e.Header.UnmarshalBinary(data); err != nil {
		return err
	}
	if len(data) < 12 {
		return fmt.Errorf("common: error message too short: %d bytes", len(data))
	}
	e.Type = binary.BigEndian.Uint16(data[8:10])
	e.Code = binary.BigEndian.Uint16(data[10:12])
	e.Data = append([]byte(nil), data[12:]...)
	return nil
}
