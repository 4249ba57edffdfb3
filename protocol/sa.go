package protocol

import (
	"github.com/msgboxio/log"
	"github.com/msgboxio/packets"
)

type AttributeType uint16

const AttributeTypeKeyLength AttributeType = 14

// Transform carries a negotiated algorithm (encryption, PRF, integrity,
// DH-group or ESN) and an optional key-length attribute.
type Transform struct {
	Type      TransformType
	Id        uint16
	KeyLength uint16 // bits; 0 means "no attribute"
	isLast    bool
}

const minLenTransform = 8
const minLenAttribute = 4

func decodeAttribute(b []byte) (keyLen uint16, used int, err error) {
	if len(b) < minLenAttribute {
		return 0, 0, ErrSyntax("transform attribute too short: %d bytes", len(b))
	}
	at, _ := packets.ReadB16(b, 0)
	if AttributeType(at&0x7fff) != AttributeTypeKeyLength {
		return 0, 0, ErrSyntax("unexpected attribute type 0x%x", at)
	}
	keyLen, _ = packets.ReadB16(b, 2)
	return keyLen, minLenAttribute, nil
}

func decodeTransform(b []byte) (tr *Transform, used int, err error) {
	if len(b) < minLenTransform {
		return nil, 0, ErrSyntax("transform too short: %d bytes", len(b))
	}
	last, _ := packets.ReadB8(b, 0)
	trLen, _ := packets.ReadB16(b, 2)
	if int(trLen) < minLenTransform || len(b) < int(trLen) {
		return nil, 0, ErrSyntax("transform length %d invalid (buf %d)", trLen, len(b))
	}
	ttype, _ := packets.ReadB8(b, 4)
	tid, _ := packets.ReadB16(b, 6)
	tr = &Transform{Type: TransformType(ttype), Id: tid, isLast: last == 0}
	rest := b[minLenTransform:trLen]
	for len(rest) > 0 {
		kl, used, aerr := decodeAttribute(rest)
		if aerr != nil {
			return nil, 0, aerr
		}
		tr.KeyLength = kl
		rest = rest[used:]
	}
	return tr, int(trLen), nil
}

func encodeTransform(tr *Transform, isLast bool) []byte {
	b := make([]byte, minLenTransform)
	if !isLast {
		packets.WriteB8(b, 0, 3)
	}
	packets.WriteB8(b, 4, uint8(tr.Type))
	packets.WriteB16(b, 6, tr.Id)
	if tr.KeyLength != 0 {
		attr := make([]byte, minLenAttribute)
		packets.WriteB16(attr, 0, 0x8000|uint16(AttributeTypeKeyLength))
		packets.WriteB16(attr, 2, tr.KeyLength)
		b = append(b, attr...)
	}
	packets.WriteB16(b, 2, uint16(len(b)))
	return b
}

// Proposal is a single SA proposal: a protocol, an SPI, and its ordered
// transform set.
type Proposal struct {
	Number     uint8
	ProtocolId ProtocolId
	Spi        []byte
	Transforms []*Transform
	isLast     bool
}

const minLenProposal = 8

func decodeProposal(b []byte) (p *Proposal, used int, err error) {
	if len(b) < minLenProposal {
		return nil, 0, ErrSyntax("proposal too short: %d bytes", len(b))
	}
	last, _ := packets.ReadB8(b, 0)
	plen, _ := packets.ReadB16(b, 2)
	if int(plen) < minLenProposal || len(b) < int(plen) {
		return nil, 0, ErrSyntax("proposal length %d invalid (buf %d)", plen, len(b))
	}
	num, _ := packets.ReadB8(b, 4)
	pid, _ := packets.ReadB8(b, 5)
	spiSize, _ := packets.ReadB8(b, 6)
	numTransforms, _ := packets.ReadB8(b, 7)
	if len(b) < minLenProposal+int(spiSize) {
		return nil, 0, ErrSyntax("proposal spi overruns buffer")
	}
	p = &Proposal{
		Number:     num,
		ProtocolId: ProtocolId(pid),
		Spi:        append([]byte{}, b[minLenProposal:minLenProposal+int(spiSize)]...),
		isLast:     last == 0,
	}
	rest := b[minLenProposal+int(spiSize) : plen]
	for len(rest) > 0 {
		tr, used, terr := decodeTransform(rest)
		if terr != nil {
			return nil, 0, terr
		}
		p.Transforms = append(p.Transforms, tr)
		rest = rest[used:]
	}
	if len(p.Transforms) != int(numTransforms) {
		return nil, 0, ErrSyntax("transform count %d != declared %d", len(p.Transforms), numTransforms)
	}
	return p, int(plen), nil
}

func encodeProposal(p *Proposal, isLast bool) []byte {
	b := make([]byte, minLenProposal)
	if !isLast {
		packets.WriteB8(b, 0, 2)
	}
	packets.WriteB8(b, 4, p.Number)
	packets.WriteB8(b, 5, uint8(p.ProtocolId))
	packets.WriteB8(b, 6, uint8(len(p.Spi)))
	packets.WriteB8(b, 7, uint8(len(p.Transforms)))
	b = append(b, p.Spi...)
	for i, tr := range p.Transforms {
		b = append(b, encodeTransform(tr, i == len(p.Transforms)-1)...)
	}
	packets.WriteB16(b, 2, uint16(len(b)))
	return b
}

// SaPayload is an ordered list of proposals.
type SaPayload struct {
	Critical  bool
	Proposals []*Proposal
}

func (s *SaPayload) Type() PayloadType  { return PayloadTypeSA }
func (s *SaPayload) IsCritical() bool   { return s.Critical }
func (s *SaPayload) Encode() (b []byte) {
	for i, p := range s.Proposals {
		b = append(b, encodeProposal(p, i == len(s.Proposals)-1)...)
	}
	return
}
func (s *SaPayload) Decode(b []byte) error {
	for len(b) > 0 {
		p, used, err := decodeProposal(b)
		if err != nil {
			return err
		}
		s.Proposals = append(s.Proposals, p)
		b = b[used:]
		if p.isLast && len(b) > 0 {
			return ErrSyntax("bytes remain after last proposal")
		}
	}
	log.V(LogCodec).Infof("decoded SA payload: %d proposals", len(s.Proposals))
	return nil
}
