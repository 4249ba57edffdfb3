package protocol

import (
	"github.com/msgboxio/log"
)

// newPayload constructs the zero value for a known payload type; unknown
// types are handled separately by the caller via Unknown.
func newPayload(pt PayloadType) Payload {
	switch pt {
	case PayloadTypeSA:
		return &SaPayload{}
	case PayloadTypeKE:
		return &KePayload{}
	case PayloadTypeIDi:
		return &IdPayload{idType: PayloadTypeIDi}
	case PayloadTypeIDr:
		return &IdPayload{idType: PayloadTypeIDr}
	case PayloadTypeAUTH:
		return &AuthPayload{}
	case PayloadTypeNonce:
		return &NoncePayload{}
	case PayloadTypeN:
		return &NotifyPayload{}
	case PayloadTypeTSi:
		return &TrafficSelectorPayload{tsType: PayloadTypeTSi}
	case PayloadTypeTSr:
		return &TrafficSelectorPayload{tsType: PayloadTypeTSr}
	case PayloadTypeSK:
		return &EncryptedPayload{}
	default:
		return nil
	}
}

// EncryptedPayload is the SK payload: an IV, the ciphertext (which itself
// begins with the encoded payload chain once decrypted), padding, and a
// trailing integrity checksum. Encryption and verification are driven by
// the session/crypto layers, which know the negotiated suite; this type
// only carries the framed bytes.
type EncryptedPayload struct {
	Critical    bool
	IvLen       int
	ChecksumLen int
	Iv          []byte
	Data        []byte // ciphertext, excludes IV and trailing checksum
	Checksum    []byte
}

func (s *EncryptedPayload) Type() PayloadType { return PayloadTypeSK }
func (s *EncryptedPayload) IsCritical() bool  { return s.Critical }

func (s *EncryptedPayload) Encode() []byte {
	b := append([]byte{}, s.Iv...)
	b = append(b, s.Data...)
	b = append(b, s.Checksum...)
	return b
}

// Decode splits the raw SK body into IV / ciphertext / checksum using the
// lengths the caller has set from the negotiated suite before calling it.
func (s *EncryptedPayload) Decode(b []byte) error {
	if s.IvLen == 0 || s.ChecksumLen == 0 {
		return ErrF(ERR_CONFIG_ERROR, "encrypted payload decoded without suite lengths set")
	}
	if len(b) < s.IvLen+s.ChecksumLen {
		return ErrSyntax("encrypted payload too short: %d bytes", len(b))
	}
	s.Iv = append([]byte{}, b[:s.IvLen]...)
	s.Checksum = append([]byte{}, b[len(b)-s.ChecksumLen:]...)
	s.Data = append([]byte{}, b[s.IvLen:len(b)-s.ChecksumLen]...)
	return nil
}

// Payloads is an ordered, type-indexed set of decoded payloads, in wire
// order, as chained together by each payload header's next-payload field.
type Payloads struct {
	Array []Payload
}

func (p *Payloads) Get(pt PayloadType) Payload {
	for _, pl := range p.Array {
		if pl.Type() == pt {
			return pl
		}
	}
	return nil
}

func (p *Payloads) Add(pl Payload) { p.Array = append(p.Array, pl) }

// EncodeChain writes every payload in order, wiring each payload header's
// next-payload field to the type of the following payload, and the last
// entry's to PayloadTypeNone. The enclosing IKE header or SK payload
// carries the first entry's type separately (see FirstPayloadType).
func (p *Payloads) EncodeChain() []byte {
	var out []byte
	for i, pl := range p.Array {
		nextType := PayloadTypeNone
		if i+1 < len(p.Array) {
			nextType = p.Array[i+1].Type()
		}
		body := pl.Encode()
		out = append(out, encodePayloadHeader(nextType, pl.IsCritical(), len(body))...)
		out = append(out, body...)
	}
	return out
}

// FirstPayloadType returns the next-payload value the IKE header (or the
// enclosing SK payload) should carry to point at the first entry, or
// PayloadTypeNone if there are no payloads.
func (p *Payloads) FirstPayloadType() PayloadType {
	if len(p.Array) == 0 {
		return PayloadTypeNone
	}
	return p.Array[0].Type()
}

// DecodeChain walks a payload chain starting with firstType, consuming b
// fully. Critical unknown payloads abort with ERR_UNSUPPORTED_CRITICAL_PAYLOAD;
// non-critical unknown payloads are kept as Unknown so callers can still see
// them, but otherwise do not block decoding.
func DecodeChain(firstType PayloadType, b []byte) (*Payloads, error) {
	payloads := &Payloads{}
	next := firstType
	for next != PayloadTypeNone {
		var hdr PayloadHeader
		if err := hdr.Decode(b); err != nil {
			return nil, err
		}
		if len(b) < int(hdr.PayloadLength) {
			return nil, ErrSyntax("payload body overruns buffer: need %d have %d", hdr.PayloadLength, len(b))
		}
		body := b[PayloadHeaderLength:hdr.PayloadLength]
		pl := newPayload(next)
		if pl == nil {
			if hdr.IsCritical {
				return nil, ErrF(ERR_UNSUPPORTED_CRITICAL_PAYLOAD, "unsupported critical payload type %d", next)
			}
			pl = &Unknown{PayloadType: next, Critical: hdr.IsCritical}
		}
		if err := pl.Decode(body); err != nil {
			return nil, err
		}
		payloads.Add(pl)
		log.V(LogCodec).Infof("decoded payload %d len %d next %d", next, hdr.PayloadLength, hdr.NextPayload)
		b = b[hdr.PayloadLength:]
		next = hdr.NextPayload
	}
	if len(b) != 0 {
		return nil, ErrSyntax("%d trailing bytes after payload chain", len(b))
	}
	return payloads, nil
}

// Message ties together a decoded/constructed IKE header with its
// (already-decrypted, if applicable) payload chain.
type Message struct {
	IkeHeader *IkeHeader
	Payloads  *Payloads
}
