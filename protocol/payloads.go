package protocol

import (
	"math/big"

	"github.com/msgboxio/packets"
)

// KePayload carries the DH group number and the sender's public value,
// padded to the group's modulus length on the wire.
type KePayload struct {
	Critical bool
	Group    DhTransformId
	Public   *big.Int
	// ModLen is the byte length the public value is padded to; set on
	// decode from the buffer length, and must be supplied by the
	// caller on encode (the session knows its negotiated group).
	ModLen int
}

func (s *KePayload) Type() PayloadType { return PayloadTypeKE }
func (s *KePayload) IsCritical() bool  { return s.Critical }
func (s *KePayload) Encode() []byte {
	b := make([]byte, 4)
	packets.WriteB16(b, 0, uint16(s.Group))
	return append(b, leftPad(s.Public.Bytes(), s.ModLen)...)
}
func (s *KePayload) Decode(b []byte) error {
	if len(b) < 4 {
		return ErrSyntax("KE payload too short: %d bytes", len(b))
	}
	gn, _ := packets.ReadB16(b, 0)
	s.Group = DhTransformId(gn)
	s.ModLen = len(b) - 4
	s.Public = new(big.Int).SetBytes(b[4:])
	return nil
}

func leftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}

type IdType uint8

const (
	ID_IPV4_ADDR   IdType = 1
	ID_FQDN        IdType = 2
	ID_RFC822_ADDR IdType = 3
	ID_IPV6_ADDR   IdType = 5
)

// IdPayload is used for both IDi and IDr; idType records which.
type IdPayload struct {
	Critical bool
	idType   PayloadType
	IdType   IdType
	Data     []byte
}

func NewIdiPayload(idType IdType, data []byte) *IdPayload {
	return &IdPayload{idType: PayloadTypeIDi, IdType: idType, Data: data}
}
func NewIdrPayload(idType IdType, data []byte) *IdPayload {
	return &IdPayload{idType: PayloadTypeIDr, IdType: idType, Data: data}
}

func (s *IdPayload) Type() PayloadType { return s.idType }
func (s *IdPayload) IsCritical() bool  { return s.Critical }

// Body returns the payload's bytes excluding the 4-byte payload header,
// i.e. starting at the id-type byte -- this is exactly the IDi_body term
// folded into the AUTH transcript.
func (s *IdPayload) Body() []byte { return s.Encode() }

func (s *IdPayload) Encode() []byte {
	b := []byte{uint8(s.IdType), 0, 0, 0}
	return append(b, s.Data...)
}
func (s *IdPayload) Decode(b []byte) error {
	if len(b) < 4 {
		return ErrSyntax("ID payload too short: %d bytes", len(b))
	}
	idt, _ := packets.ReadB8(b, 0)
	s.IdType = IdType(idt)
	s.Data = append([]byte{}, b[4:]...)
	return nil
}

type AuthMethod uint8

const (
	RSA_DIGITAL_SIGNATURE             AuthMethod = 1
	SHARED_KEY_MESSAGE_INTEGRITY_CODE AuthMethod = 2
)

type AuthPayload struct {
	Critical bool
	Method   AuthMethod
	Data     []byte
}

func (s *AuthPayload) Type() PayloadType { return PayloadTypeAUTH }
func (s *AuthPayload) IsCritical() bool  { return s.Critical }
func (s *AuthPayload) Encode() []byte {
	b := []byte{uint8(s.Method), 0, 0, 0}
	return append(b, s.Data...)
}
func (s *AuthPayload) Decode(b []byte) error {
	if len(b) < 4 {
		return ErrSyntax("AUTH payload too short: %d bytes", len(b))
	}
	m, _ := packets.ReadB8(b, 0)
	s.Method = AuthMethod(m)
	s.Data = append([]byte{}, b[4:]...)
	return nil
}

// NoncePayload carries Ni or Nr: 16-256 bytes of randomness.
type NoncePayload struct {
	Critical bool
	Data     []byte
}

func (s *NoncePayload) Type() PayloadType { return PayloadTypeNonce }
func (s *NoncePayload) IsCritical() bool  { return s.Critical }
func (s *NoncePayload) Encode() []byte    { return s.Data }
func (s *NoncePayload) Decode(b []byte) error {
	if len(b) < 16 || len(b) > 256 {
		return ErrSyntax("nonce length %d out of [16,256]", len(b))
	}
	s.Data = append([]byte{}, b...)
	return nil
}

// NotifyPayload signals status or an error (NotificationType < 2^14).
type NotifyPayload struct {
	Critical         bool
	ProtocolId       ProtocolId
	NotificationType NotificationType
	Spi              []byte
	Data             []byte
}

func (s *NotifyPayload) Type() PayloadType { return PayloadTypeN }
func (s *NotifyPayload) IsCritical() bool  { return s.Critical }
func (s *NotifyPayload) Encode() []byte {
	b := []byte{uint8(s.ProtocolId), uint8(len(s.Spi)), 0, 0}
	packets.WriteB16(b, 2, uint16(s.NotificationType))
	b = append(b, s.Spi...)
	b = append(b, s.Data...)
	return b
}
func (s *NotifyPayload) Decode(b []byte) error {
	if len(b) < 4 {
		return ErrSyntax("notify payload too short: %d bytes", len(b))
	}
	pid, _ := packets.ReadB8(b, 0)
	s.ProtocolId = ProtocolId(pid)
	spiLen, _ := packets.ReadB8(b, 1)
	if len(b) < 4+int(spiLen) {
		return ErrSyntax("notify spi overruns buffer")
	}
	nt, _ := packets.ReadB16(b, 2)
	s.NotificationType = NotificationType(nt)
	s.Spi = append([]byte{}, b[4:4+spiLen]...)
	s.Data = append([]byte{}, b[4+spiLen:]...)
	return nil
}

// Unknown carries any payload type this core does not implement,
// preserving the critical flag so the receive path's policy (skip
// non-critical, abort on critical) has something to act on.
type Unknown struct {
	PayloadType PayloadType
	Critical    bool
	Body        []byte
}

func (s *Unknown) Type() PayloadType { return s.PayloadType }
func (s *Unknown) IsCritical() bool  { return s.Critical }
func (s *Unknown) Encode() []byte    { return s.Body }
func (s *Unknown) Decode(b []byte) error {
	s.Body = append([]byte{}, b...)
	return nil
}
