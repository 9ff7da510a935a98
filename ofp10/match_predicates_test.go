package ofp10

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func wildAll() Wildcards { return ^Wildcards(0) }

func TestPktMatchWildcardFlowMatchesAnyPacket(t *testing.T) {
	flow := Match{Wildcards: wildAll()}
	pkt := Match{InPort: 3, DlType: 0x0800}
	assert.True(t, PktMatch(&flow, &pkt))
}

func TestPktMatchExactFieldMustAgree(t *testing.T) {
	flow := Match{InPort: 1, Wildcards: wildAll() &^ WildcardInPort}
	assert.True(t, PktMatch(&flow, &Match{InPort: 1}))
	assert.False(t, PktMatch(&flow, &Match{InPort: 2}))
}

func TestPktMatchIPv4PrefixMask(t *testing.T) {
	flow := Match{
		NwSrc:     net.ParseIP("10.0.0.0"),
		NwSrcMask: net.CIDRMask(24, 32),
		Wildcards: wildAll(),
	}
	assert.True(t, PktMatch(&flow, &Match{NwSrc: net.ParseIP("10.0.0.42")}))
	assert.False(t, PktMatch(&flow, &Match{NwSrc: net.ParseIP("10.0.1.42")}))
}

func TestNonStrictMatchGeneralitySubsumesSpecific(t *testing.T) {
	general := Match{Wildcards: wildAll()}
	specific := Match{InPort: 7, Wildcards: wildAll() &^ WildcardInPort}
	assert.True(t, NonStrictMatch(&general, &specific))
	assert.False(t, NonStrictMatch(&specific, &general))
}

func TestStrictMatchRequiresIdenticalWildcards(t *testing.T) {
	a := Match{InPort: 1, Wildcards: wildAll() &^ WildcardInPort}
	b := Match{InPort: 1, Wildcards: wildAll() &^ WildcardInPort}
	assert.True(t, StrictMatch(&a, &b))

	c := Match{InPort: 1, Wildcards: wildAll()}
	assert.False(t, StrictMatch(&a, &c))
}

func TestMacEqualTreatsEmptyAddressesAsWildcardEqual(t *testing.T) {
	a := Match{Wildcards: wildAll() &^ WildcardDlSrc}
	b := Match{Wildcards: wildAll() &^ WildcardDlSrc}
	assert.True(t, StrictMatch(&a, &b))
}
