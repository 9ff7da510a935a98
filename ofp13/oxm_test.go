package ofp13

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindFieldByName(t *testing.T) {
	ft, ok := FindFieldByName("OXM_OF_ETH_TYPE")
	assert.True(t, ok)
	assert.Equal(t, FieldEthType, ft)

	_, ok = FindFieldByName("OXM_OF_NONSENSE")
	assert.False(t, ok)
}

func TestMatchSetReplacesExistingField(t *testing.T) {
	m := NewMatch()
	m.SetInPort(1)
	m.SetInPort(2)

	assert.Len(t, m.Fields, 1)
	f, ok := m.Find(FieldInPort)
	assert.True(t, ok)
	assert.Equal(t, u32Bytes(2), f.Value)
}

func TestSetEthSrcAllOnesMaskCollapsesToExact(t *testing.T) {
	m := NewMatch()
	mac := net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	m.SetEthSrc(mac, net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff})

	f, ok := m.Find(FieldEthSrc)
	assert.True(t, ok)
	assert.Nil(t, f.Mask)
}

func TestPktMatchHonorsMaskedField(t *testing.T) {
	flow := NewMatch()
	flow.SetIPv4Src(net.ParseIP("10.0.0.0"), net.CIDRMask(24, 32))

	inside := NewMatch()
	inside.SetIPv4Src(net.ParseIP("10.0.0.42"), nil)
	assert.True(t, PktMatch(flow, inside))

	outside := NewMatch()
	outside.SetIPv4Src(net.ParseIP("10.0.1.42"), nil)
	assert.False(t, PktMatch(flow, outside))
}

func TestPktMatchMissingFieldFails(t *testing.T) {
	flow := NewMatch()
	flow.SetEthType(0x0800)

	pkt := NewMatch()
	pkt.SetInPort(1)
	assert.False(t, PktMatch(flow, pkt))
}

func TestNonStrictMatchRequiresEqualOrNarrowerMask(t *testing.T) {
	general := NewMatch()
	general.SetIPv4Src(net.ParseIP("10.0.0.0"), net.CIDRMask(16, 32))

	specific := NewMatch()
	specific.SetIPv4Src(net.ParseIP("10.0.0.0"), net.CIDRMask(24, 32))

	assert.True(t, NonStrictMatch(general, specific))
	assert.False(t, NonStrictMatch(specific, general))
}

func TestStrictMatchRequiresSameFieldCountAndValues(t *testing.T) {
	a := NewMatch()
	a.SetInPort(1)
	a.SetEthType(0x0800)

	b := NewMatch()
	b.SetInPort(1)
	b.SetEthType(0x0800)
	assert.True(t, StrictMatch(a, b))

	c := NewMatch()
	c.SetInPort(1)
	assert.False(t, StrictMatch(a, c))
}

func TestMaskMoreSpecific(t *testing.T) {
	assert.True(t, maskMoreSpecific(nil, nil))
	assert.True(t, maskMoreSpecific(nil, []byte{0xff}))
	assert.False(t, maskMoreSpecific([]byte{0xff}, nil))
	assert.False(t, maskMoreSpecific([]byte{0x0f}, []byte{0xff}))
	assert.True(t, maskMoreSpecific([]byte{0xff}, []byte{0x0f}))
}
