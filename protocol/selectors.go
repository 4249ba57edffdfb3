package protocol

import (
	"net"

	"github.com/msgboxio/packets"
)

type SelectorType uint8

const (
	TS_IPV4_ADDR_RANGE SelectorType = 7
	TS_IPV6_ADDR_RANGE SelectorType = 8
)

const minLenSelector = 8

// Selector is a single traffic selector: an address range and port range
// for one IP protocol. The 8-byte sub-header (type, IP protocol, length,
// start port, end port) precedes the two addresses; length is always
// 8 + 2*len(StartAddress).
type Selector struct {
	Type         SelectorType
	IpProtocolId uint8
	StartPort    uint16
	EndPort      uint16
	StartAddress net.IP
	EndAddress   net.IP
}

func decodeSelector(b []byte) (sel *Selector, used int, err error) {
	if len(b) < minLenSelector {
		return nil, 0, ErrSyntax("selector too short: %d bytes", len(b))
	}
	st, _ := packets.ReadB8(b, 0)
	proto, _ := packets.ReadB8(b, 1)
	slen, _ := packets.ReadB16(b, 2)
	if int(slen) < minLenSelector || len(b) < int(slen) {
		return nil, 0, ErrSyntax("selector length %d invalid (buf %d)", slen, len(b))
	}
	startPort, _ := packets.ReadB16(b, 4)
	endPort, _ := packets.ReadB16(b, 6)
	addrLen := (int(slen) - minLenSelector) / 2
	if addrLen != 4 && addrLen != 16 {
		return nil, 0, ErrSyntax("selector address length %d invalid", addrLen)
	}
	start := b[minLenSelector : minLenSelector+addrLen]
	end := b[minLenSelector+addrLen : minLenSelector+2*addrLen]
	sel = &Selector{
		Type:         SelectorType(st),
		IpProtocolId: proto,
		StartPort:    startPort,
		EndPort:      endPort,
		StartAddress: append(net.IP{}, start...),
		EndAddress:   append(net.IP{}, end...),
	}
	return sel, int(slen), nil
}

func encodeSelector(sel *Selector) []byte {
	addrLen := len(sel.StartAddress)
	b := make([]byte, minLenSelector+2*addrLen)
	packets.WriteB8(b, 0, uint8(sel.Type))
	packets.WriteB8(b, 1, sel.IpProtocolId)
	packets.WriteB16(b, 2, uint16(len(b)))
	packets.WriteB16(b, 4, sel.StartPort)
	packets.WriteB16(b, 6, sel.EndPort)
	copy(b[minLenSelector:], sel.StartAddress)
	copy(b[minLenSelector+addrLen:], sel.EndAddress)
	return b
}

// TrafficSelectorPayload is used for both TSi and TSr; tsType records which.
type TrafficSelectorPayload struct {
	Critical  bool
	tsType    PayloadType
	Selectors []*Selector
}

func NewTsiPayload(sels ...*Selector) *TrafficSelectorPayload {
	return &TrafficSelectorPayload{tsType: PayloadTypeTSi, Selectors: sels}
}
func NewTsrPayload(sels ...*Selector) *TrafficSelectorPayload {
	return &TrafficSelectorPayload{tsType: PayloadTypeTSr, Selectors: sels}
}

func (s *TrafficSelectorPayload) Type() PayloadType { return s.tsType }
func (s *TrafficSelectorPayload) IsCritical() bool  { return s.Critical }

func (s *TrafficSelectorPayload) Encode() []byte {
	b := []byte{uint8(len(s.Selectors)), 0, 0, 0}
	for _, sel := range s.Selectors {
		b = append(b, encodeSelector(sel)...)
	}
	return b
}

func (s *TrafficSelectorPayload) Decode(b []byte) error {
	if len(b) < 4 {
		return ErrSyntax("TS payload too short: %d bytes", len(b))
	}
	count, _ := packets.ReadB8(b, 0)
	rest := b[4:]
	for len(rest) > 0 {
		sel, used, err := decodeSelector(rest)
		if err != nil {
			return err
		}
		s.Selectors = append(s.Selectors, sel)
		rest = rest[used:]
	}
	if len(s.Selectors) != int(count) {
		return ErrSyntax("selector count %d != declared %d", len(s.Selectors), count)
	}
	return nil
}
