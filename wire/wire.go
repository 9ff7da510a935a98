// Package wire holds the one thing ofp10, ofp13 and common share: the
// Message interface every top-level message implements, request or
// reply. Nested parts (actions, instructions, OXM fields, stats bodies)
// do not implement it. Named and shaped after ofbase's Message/encoding
// conventions.
package wire

// Message is implemented by every OpenFlow protocol data unit this module
// understands.
type Message interface {
	Len() uint16
	MarshalBinary() (data []byte, err error)
	UnmarshalBinary(data []byte) error
}
