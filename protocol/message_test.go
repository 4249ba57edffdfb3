package protocol

import (
	"bytes"
	"testing"
)

// TestDecodeChainSingleEmptyPayload covers a first payload declaring
// length 4 (empty body) and next_payload 0: exactly one payload, zero
// remainder.
func TestDecodeChainSingleEmptyPayload(t *testing.T) {
	body := []byte{
		uint8(PayloadTypeNone), 0x00, 0x00, 0x04, // header of an empty-bodied payload
	}
	// Nonce payload requires 16-256 bytes so use Unknown's type instead,
	// which accepts any length including zero.
	payloads, err := DecodeChain(PayloadType(200), body)
	if err != nil {
		t.Fatal(err)
	}
	if len(payloads.Array) != 1 {
		t.Fatalf("got %d payloads, want 1", len(payloads.Array))
	}
	u, ok := payloads.Array[0].(*Unknown)
	if !ok {
		t.Fatalf("payload type %T, want *Unknown", payloads.Array[0])
	}
	if len(u.Body) != 0 {
		t.Fatalf("body length %d, want 0", len(u.Body))
	}
}

func TestDecodeChainRejectsTrailingBytes(t *testing.T) {
	body := []byte{
		uint8(PayloadTypeNone), 0x00, 0x00, 0x04,
		0xde, 0xad, 0xbe, 0xef, // trailing garbage not covered by any payload
	}
	if _, err := DecodeChain(PayloadType(200), body); err == nil {
		t.Fatal("expected trailing-bytes error")
	}
}

func TestDecodeChainRejectsUnsupportedCriticalPayload(t *testing.T) {
	body := []byte{
		uint8(PayloadTypeNone), 0x80, 0x00, 0x04, // critical bit set on unknown type
	}
	if _, err := DecodeChain(PayloadType(201), body); err == nil {
		t.Fatal("expected unsupported-critical-payload error")
	}
}

func TestDecodeChainAllowsUnsupportedNonCriticalPayload(t *testing.T) {
	body := []byte{
		uint8(PayloadTypeNone), 0x00, 0x00, 0x06,
		0xaa, 0xbb,
	}
	payloads, err := DecodeChain(PayloadType(201), body)
	if err != nil {
		t.Fatal(err)
	}
	u := payloads.Array[0].(*Unknown)
	if !bytes.Equal(u.Body, []byte{0xaa, 0xbb}) {
		t.Fatalf("body %x, want aabb", u.Body)
	}
}

func TestEncodeDecodeChainRoundTrip(t *testing.T) {
	payloads := &Payloads{}
	payloads.Add(&NoncePayload{Data: bytes.Repeat([]byte{0x42}, 32)})
	payloads.Add(&NotifyPayload{ProtocolId: IKE, NotificationType: NAT_DETECTION_SOURCE_IP, Data: []byte("hash")})

	encoded := payloads.EncodeChain()
	decoded, err := DecodeChain(payloads.FirstPayloadType(), encoded)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded.Array) != 2 {
		t.Fatalf("got %d payloads, want 2", len(decoded.Array))
	}
	nonce := decoded.Get(PayloadTypeNonce).(*NoncePayload)
	if !bytes.Equal(nonce.Data, bytes.Repeat([]byte{0x42}, 32)) {
		t.Fatalf("nonce roundtrip mismatch")
	}
	notify := decoded.Get(PayloadTypeN).(*NotifyPayload)
	if notify.NotificationType != NAT_DETECTION_SOURCE_IP {
		t.Fatalf("notify type %v, want NAT_DETECTION_SOURCE_IP", notify.NotificationType)
	}
}

func TestIkeHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := &IkeHeader{
		SpiI:         SpiFromBytes([]byte{1, 2, 3, 4, 5, 6, 7, 8}),
		SpiR:         SpiFromBytes([]byte{8, 7, 6, 5, 4, 3, 2, 1}),
		NextPayload:  PayloadTypeSA,
		ExchangeType: IKE_SA_INIT,
		Flags:        INITIATOR,
		MsgId:        7,
		MsgLength:    IkeHeaderLen,
	}
	enc := h.Encode()
	got, err := DecodeIkeHeader(enc)
	if err != nil {
		t.Fatal(err)
	}
	if got.SpiI != h.SpiI || got.SpiR != h.SpiR || got.NextPayload != h.NextPayload ||
		got.ExchangeType != h.ExchangeType || got.Flags != h.Flags || got.MsgId != h.MsgId {
		t.Fatalf("roundtrip mismatch: got %+v want %+v", *got, *h)
	}
}
