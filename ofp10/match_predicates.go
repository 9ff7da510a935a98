package ofp10

// field captures one match field's wildcard bit alongside value equality,
// so Strict/NonStrict/Pkt matching can all be expressed as one fold over
// the same field list.
type field struct {
	bit      Wildcards
	aWild    bool
	bWild    bool
	equal    bool // values are equal whenever that's meaningful regardless of wildcards
}

func fieldsOf(a, b *Match) []field {
	return []field{
		{WildcardInPort, a.Wildcards&WildcardInPort != 0, b.Wildcards&WildcardInPort != 0, a.InPort == b.InPort},
		{WildcardDlSrc, a.Wildcards&WildcardDlSrc != 0, b.Wildcards&WildcardDlSrc != 0, macEqual(a.DlSrc, b.DlSrc)},
		{WildcardDlDst, a.Wildcards&WildcardDlDst != 0, b.Wildcards&WildcardDlDst != 0, macEqual(a.DlDst, b.DlDst)},
		{WildcardDlVlan, a.Wildcards&WildcardDlVlan != 0, b.Wildcards&WildcardDlVlan != 0, a.DlVlan == b.DlVlan},
		{WildcardDlVlanPcp, a.Wildcards&WildcardDlVlanPcp != 0, b.Wildcards&WildcardDlVlanPcp != 0, a.DlVlanPcp == b.DlVlanPcp},
		{WildcardDlType, a.Wildcards&WildcardDlType != 0, b.Wildcards&WildcardDlType != 0, a.DlType == b.DlType},
		{WildcardNwTos, a.Wildcards&WildcardNwTos != 0, b.Wildcards&WildcardNwTos != 0, a.NwTos == b.NwTos},
		{WildcardNwProto, a.Wildcards&WildcardNwProto != 0, b.Wildcards&WildcardNwProto != 0, a.NwProto == b.NwProto},
		{WildcardTpSrc, a.Wildcards&WildcardTpSrc != 0, b.Wildcards&WildcardTpSrc != 0, a.TpSrc == b.TpSrc},
		{WildcardTpDst, a.Wildcards&WildcardTpDst != 0, b.Wildcards&WildcardTpDst != 0, a.TpDst == b.TpDst},
	}
}

// StrictMatch reports whether a and b are equal for every field: the
// wildcard bits must agree and values must agree wherever the field isn't
// wildcarded. IPv4 addresses compare under the flow's nw_src/nw_dst mask.
func StrictMatch(a, b *Match) bool {
	for _, f := range fieldsOf(a, b) {
		if f.aWild != f.bWild {
			return false
		}
		if !f.aWild && !f.equal {
			return false
		}
	}
	if a.NwSrc != nil || b.NwSrc != nil {
		if !ipv4EqualMasked(a.NwSrc, b.NwSrc, a.EffectiveNwSrcMask()) {
			return false
		}
		if a.Wildcards.NwSrcMaskBits() != b.Wildcards.NwSrcMaskBits() {
			return false
		}
	}
	if a.NwDst != nil || b.NwDst != nil {
		if !ipv4EqualMasked(a.NwDst, b.NwDst, a.EffectiveNwDstMask()) {
			return false
		}
		if a.Wildcards.NwDstMaskBits() != b.Wildcards.NwDstMaskBits() {
			return false
		}
	}
	return true
}

// NonStrictMatch reports whether a is at least as general as b: for every
// field either both are wildcarded, or a is wildcarded, or neither is
// wildcarded and the values agree.
func NonStrictMatch(a, b *Match) bool {
	for _, f := range fieldsOf(a, b) {
		if f.aWild {
			continue
		}
		if f.bWild {
			return false
		}
		if !f.equal {
			return false
		}
	}
	if a.Wildcards.NwSrcMaskBits() > 0 && a.NwSrc != nil && b.NwSrc != nil {
		if a.Wildcards.NwSrcMaskBits() > b.Wildcards.NwSrcMaskBits() {
			return false // a demands a narrower prefix than b offers
		}
		if !ipv4EqualMasked(a.NwSrc, b.NwSrc, a.EffectiveNwSrcMask()) {
			return false
		}
	}
	if a.Wildcards.NwDstMaskBits() > 0 && a.NwDst != nil && b.NwDst != nil {
		if a.Wildcards.NwDstMaskBits() > b.Wildcards.NwDstMaskBits() {
			return false
		}
		if !ipv4EqualMasked(a.NwDst, b.NwDst, a.EffectiveNwDstMask()) {
			return false
		}
	}
	return true
}

// PktMatch is NonStrictMatch's one-sided variant for matching an
// on-the-wire packet against an installed flow: pkt carries no wildcards
// or masks, so a field matches if either flow wildcards it, or the values
// agree.
func PktMatch(flow *Match, pkt *Match) bool {
	for _, f := range fieldsOf(flow, pkt) {
		if f.aWild {
			continue
		}
		if !f.equal {
			return false
		}
	}
	if flow.NwSrc != nil {
		if !ipv4EqualMasked(flow.NwSrc, pkt.NwSrc, flow.EffectiveNwSrcMask()) {
			return false
		}
	}
	if flow.NwDst != nil {
		if !ipv4EqualMasked(flow.NwDst, pkt.NwDst, flow.EffectiveNwDstMask()) {
			return false
		}
	}
	return true
}
