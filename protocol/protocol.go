// Package protocol implements the IKEv2 wire format: the 28-byte IKE
// header, the 4-byte payload header chain, and the payload bodies
// needed by an initiator driving IKE_SA_INIT and IKE_AUTH.
package protocol

import (
	"encoding/hex"

	"github.com/msgboxio/log"
	"github.com/msgboxio/packets"
)

const (
	IkePort     = 500
	IkeNattPort = 4500
)

// LogCodec gates verbose wire-level tracing at log.V(LogCodec).
const LogCodec = 3

const (
	IkeMajorVersion = 2
	IkeMinorVersion = 0
	IkeVersionByte  = IkeMajorVersion<<4 | IkeMinorVersion
)

// Spi is an 8-byte Security Parameter Index. The responder's Spi in an
// outbound IKE_SA_INIT request is the zero value.
type Spi [8]byte

func (s Spi) IsZero() bool {
	return s == Spi{}
}

func (s Spi) Bytes() []byte {
	b := make([]byte, 8)
	copy(b, s[:])
	return b
}

func SpiFromBytes(b []byte) (s Spi) {
	copy(s[:], b)
	return
}

type ExchangeType uint8

const (
	IKE_SA_INIT     ExchangeType = 34
	IKE_AUTH        ExchangeType = 35
	CREATE_CHILD_SA ExchangeType = 36
	INFORMATIONAL   ExchangeType = 37
)

type PayloadType uint8

const (
	PayloadTypeNone    PayloadType = 0
	PayloadTypeSA      PayloadType = 33
	PayloadTypeKE      PayloadType = 34
	PayloadTypeIDi     PayloadType = 35
	PayloadTypeIDr     PayloadType = 36
	PayloadTypeCERT    PayloadType = 37
	PayloadTypeCERTREQ PayloadType = 38
	PayloadTypeAUTH    PayloadType = 39
	PayloadTypeNonce   PayloadType = 40
	PayloadTypeN       PayloadType = 41
	PayloadTypeD       PayloadType = 42
	PayloadTypeV       PayloadType = 43
	PayloadTypeTSi     PayloadType = 44
	PayloadTypeTSr     PayloadType = 45
	PayloadTypeSK      PayloadType = 46
	PayloadTypeCP      PayloadType = 47
	PayloadTypeEAP     PayloadType = 48
)

type IkeFlags uint8

const (
	RESPONSE  IkeFlags = 1 << 5
	VERSION   IkeFlags = 1 << 4
	INITIATOR IkeFlags = 1 << 3
)

func (f IkeFlags) IsResponse() bool  { return f&RESPONSE != 0 }
func (f IkeFlags) IsInitiator() bool { return f&INITIATOR != 0 }

type ProtocolId uint8

const (
	IKE ProtocolId = 1
	AH  ProtocolId = 2
	ESP ProtocolId = 3
)

type TransformType uint8

const (
	TRANSFORM_TYPE_ENCR  TransformType = 1
	TRANSFORM_TYPE_PRF   TransformType = 2
	TRANSFORM_TYPE_INTEG TransformType = 3
	TRANSFORM_TYPE_DH    TransformType = 4
	TRANSFORM_TYPE_ESN   TransformType = 5
)

type EncrTransformId uint16

const (
	ENCR_AES_CBC      EncrTransformId = 12
	ENCR_NULL         EncrTransformId = 11
	ENCR_CAMELLIA_CBC EncrTransformId = 23
)

type PrfTransformId uint16

const (
	PRF_HMAC_SHA1     PrfTransformId = 2
	PRF_HMAC_SHA2_256 PrfTransformId = 5
)

type AuthTransformId uint16

const (
	AUTH_HMAC_SHA1_96      AuthTransformId = 2
	AUTH_HMAC_SHA2_256_128 AuthTransformId = 12
)

type DhTransformId uint16

const (
	MODP_1024 DhTransformId = 2
	MODP_2048 DhTransformId = 14
)

type EsnTransformId uint16

const (
	ESN_NONE EsnTransformId = 0
	ESN      EsnTransformId = 1
)

const IkeHeaderLen = 28

// IkeHeader is the 28-byte fixed header prepended to every IKE message.
type IkeHeader struct {
	SpiI, SpiR   Spi
	NextPayload  PayloadType
	ExchangeType ExchangeType
	Flags        IkeFlags
	MsgId        uint32
	MsgLength    uint32
}

func DecodeIkeHeader(b []byte) (*IkeHeader, error) {
	if len(b) < IkeHeaderLen {
		log.V(LogCodec).Infof("ike header too short: %d", len(b))
		return nil, ErrSyntax("ike header too short: %d bytes", len(b))
	}
	h := &IkeHeader{}
	h.SpiI = SpiFromBytes(b[0:8])
	h.SpiR = SpiFromBytes(b[8:16])
	pt, _ := packets.ReadB8(b, 16)
	h.NextPayload = PayloadType(pt)
	ver, _ := packets.ReadB8(b, 17)
	if ver != IkeVersionByte {
		return nil, ErrF(ERR_INVALID_MAJOR_VERSION, "unsupported version byte 0x%x", ver)
	}
	et, _ := packets.ReadB8(b, 18)
	h.ExchangeType = ExchangeType(et)
	flags, _ := packets.ReadB8(b, 19)
	h.Flags = IkeFlags(flags)
	h.MsgId, _ = packets.ReadB32(b, 20)
	h.MsgLength, _ = packets.ReadB32(b, 24)
	if h.MsgLength < IkeHeaderLen {
		return nil, ErrSyntax("message length %d shorter than header", h.MsgLength)
	}
	log.V(LogCodec).Infof("ike header: %+v\n%s", *h, hex.Dump(b[:IkeHeaderLen]))
	return h, nil
}

func (h *IkeHeader) Encode() []byte {
	b := make([]byte, IkeHeaderLen)
	copy(b, h.SpiI[:])
	copy(b[8:], h.SpiR[:])
	packets.WriteB8(b, 16, uint8(h.NextPayload))
	packets.WriteB8(b, 17, IkeVersionByte)
	packets.WriteB8(b, 18, uint8(h.ExchangeType))
	packets.WriteB8(b, 19, uint8(h.Flags))
	packets.WriteB32(b, 20, h.MsgId)
	packets.WriteB32(b, 24, h.MsgLength)
	return b
}

const PayloadHeaderLength = 4

// PayloadHeader is the 4-byte header prepended to every payload.
type PayloadHeader struct {
	NextPayload   PayloadType
	IsCritical    bool
	PayloadLength uint16
}

func (h *PayloadHeader) NextPayloadType() PayloadType { return h.NextPayload }

func encodePayloadHeader(pt PayloadType, critical bool, bodyLen int) []byte {
	b := make([]byte, PayloadHeaderLength)
	packets.WriteB8(b, 0, uint8(pt))
	if critical {
		b[1] = 0x80
	}
	packets.WriteB16(b, 2, uint16(bodyLen+PayloadHeaderLength))
	return b
}

// EncodePayloadHeader is encodePayloadHeader exported for callers outside
// this package that build the Encrypted (SK) payload's framing by hand,
// since its trailing MAC must be computed after the header is fixed.
func EncodePayloadHeader(pt PayloadType, critical bool, bodyLen int) []byte {
	return encodePayloadHeader(pt, critical, bodyLen)
}

func (h *PayloadHeader) Decode(b []byte) error {
	if len(b) < PayloadHeaderLength {
		return ErrSyntax("payload header too short: %d bytes", len(b))
	}
	pt, _ := packets.ReadB8(b, 0)
	h.NextPayload = PayloadType(pt)
	c, _ := packets.ReadB8(b, 1)
	h.IsCritical = c&0x80 != 0
	h.PayloadLength, _ = packets.ReadB16(b, 2)
	if h.PayloadLength < PayloadHeaderLength {
		return ErrSyntax("payload length %d below minimum", h.PayloadLength)
	}
	log.V(LogCodec).Infof("payload header: %+v", *h)
	return nil
}

// Payload is implemented by every IKEv2 payload body; the 4-byte
// header is handled uniformly by the codec in message.go.
type Payload interface {
	Type() PayloadType
	IsCritical() bool
	Encode() []byte
	Decode(b []byte) error
}
