package exchange

import (
	"bytes"
	"testing"

	"github.com/scottk212/ike/protocol"
	"github.com/scottk212/ike/session"
)

// fixedReader yields a repeating byte value, giving deterministic SPIs,
// nonces and DH private exponents for reproducible wire output.
type fixedReader struct{ b byte }

func (r fixedReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.b
	}
	return len(p), nil
}

func newTestConfig() *Config {
	return &Config{
		Auth: session.AuthConfig{
			Local: session.Identity{IdType: protocol.ID_RFC822_ADDR, Data: []byte("initiator@example.com")},
			Remote: session.Identity{IdType: protocol.ID_RFC822_ADDR, Data: []byte("responder@example.com")},
			Psk: []byte("foo"),
		},
	}
}

// TestInitEmitsDeterministicHeader exercises the empty-init determinism
// scenario: a fixed RNG drives fixed SPIs/nonce/DH exponent, and Init
// always emits the same 28-byte header followed by SA+KE+Nonce.
func TestInitEmitsDeterministicHeader(t *testing.T) {
	in, err := NewInitiator(newTestConfig(), fixedReader{0xAA})
	if err != nil {
		t.Fatal(err)
	}

	out, err := in.Init()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) < protocol.IkeHeaderLen {
		t.Fatalf("output too short: %d bytes", len(out))
	}

	hdr, err := protocol.DecodeIkeHeader(out)
	if err != nil {
		t.Fatal(err)
	}
	if hdr.NextPayload != protocol.PayloadTypeSA {
		t.Fatalf("first payload %v, want PayloadTypeSA", hdr.NextPayload)
	}
	if hdr.ExchangeType != protocol.IKE_SA_INIT {
		t.Fatalf("exchange type %v, want IKE_SA_INIT", hdr.ExchangeType)
	}
	if hdr.Flags != protocol.INITIATOR {
		t.Fatalf("flags %v, want INITIATOR (0x08)", hdr.Flags)
	}
	if hdr.MsgId != 0 {
		t.Fatalf("msgid %d, want 0", hdr.MsgId)
	}
	if int(hdr.MsgLength) != len(out) {
		t.Fatalf("declared length %d, actual %d", hdr.MsgLength, len(out))
	}
	if in.State != SA_INIT_SENT {
		t.Fatalf("state %v, want SA_INIT_SENT", in.State)
	}

	payloads, err := protocol.DecodeChain(hdr.NextPayload, out[protocol.IkeHeaderLen:])
	if err != nil {
		t.Fatal(err)
	}
	if payloads.Get(protocol.PayloadTypeSA) == nil {
		t.Fatal("missing SA payload")
	}
	if payloads.Get(protocol.PayloadTypeKE) == nil {
		t.Fatal("missing KE payload")
	}
	nonce, ok := payloads.Get(protocol.PayloadTypeNonce).(*protocol.NoncePayload)
	if !ok {
		t.Fatal("missing Nonce payload")
	}
	if !bytes.Equal(nonce.Data, in.Sa.Ni) {
		t.Fatal("nonce payload does not match session's stored Ni")
	}

	// Running Init a second time from a fresh initiator built with the
	// same deterministic RNG byte must reproduce the same bytes.
	in2, err := NewInitiator(newTestConfig(), fixedReader{0xAA})
	if err != nil {
		t.Fatal(err)
	}
	out2, err := in2.Init()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, out2) {
		t.Fatal("Init output is not deterministic given identical RNG input")
	}
}

func TestInitRejectsWrongState(t *testing.T) {
	in, err := NewInitiator(newTestConfig(), fixedReader{0x01})
	if err != nil {
		t.Fatal(err)
	}
	in.State = ESTABLISHED
	if _, err := in.Init(); err == nil {
		t.Fatal("expected error calling Init outside START state")
	}
}

// TestHandleInitResponseSurfacesNotifyError covers a synthesized
// IKE_SA_INIT response carrying only a NO_PROPOSAL_CHOSEN notify: the
// initiator must fail with NotifyError and transition to FAILED.
func TestHandleInitResponseSurfacesNotifyError(t *testing.T) {
	in, err := NewInitiator(newTestConfig(), fixedReader{0x02})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := in.Init(); err != nil {
		t.Fatal(err)
	}

	notify := &protocol.NotifyPayload{ProtocolId: protocol.IKE, NotificationType: protocol.NO_PROPOSAL_CHOSEN}
	notifyBody := notify.Encode()
	body := append(protocol.EncodePayloadHeader(protocol.PayloadTypeNone, false, len(notifyBody)), notifyBody...)

	hdr := &protocol.IkeHeader{
		SpiI:         in.Sa.SpiI,
		SpiR:         protocol.SpiFromBytes(bytes.Repeat([]byte{0x09}, 8)),
		NextPayload:  protocol.PayloadTypeN,
		ExchangeType: protocol.IKE_SA_INIT,
		Flags:        protocol.RESPONSE,
		MsgId:        0,
	}
	hdr.MsgLength = uint32(protocol.IkeHeaderLen + len(body))
	raw := append(hdr.Encode(), body...)

	err = in.HandleInitResponse(raw)
	if err == nil {
		t.Fatal("expected NotifyError")
	}
	notifyErr, ok := err.(protocol.NotifyError)
	if !ok {
		t.Fatalf("expected protocol.NotifyError, got %T: %v", err, err)
	}
	if notifyErr.Type != protocol.NO_PROPOSAL_CHOSEN {
		t.Fatalf("notify type %v, want NO_PROPOSAL_CHOSEN", notifyErr.Type)
	}
	if in.State != FAILED {
		t.Fatalf("state %v, want FAILED", in.State)
	}
}
