package exchange

import (
	"testing"

	ikecrypto "github.com/scottk212/ike/crypto"
	"github.com/scottk212/ike/protocol"
)

// establishedInitiator drives an Initiator through Init/HandleInitResponse/
// Auth against a synthesized peer, using the peer's own DH keypair and
// nonce so the derived keys are genuine, and returns both the initiator
// and the raw IKE_AUTH request it produced.
func establishedInitiator(t *testing.T) (*Initiator, []byte) {
	t.Helper()
	in, err := NewInitiator(newTestConfig(), fixedReader{0x10})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := in.Init(); err != nil {
		t.Fatal(err)
	}

	_, peerPub, err := ikecrypto.DhCreate(protocol.MODP_2048, fixedReader{0x20})
	if err != nil {
		t.Fatal(err)
	}
	modLen, err := in.Sa.ModLen()
	if err != nil {
		t.Fatal(err)
	}

	spiR := protocol.SpiFromBytes([]byte{9, 8, 7, 6, 5, 4, 3, 2})
	peerNonce := make([]byte, 32)
	for i := range peerNonce {
		peerNonce[i] = 0x55
	}

	initResp := &protocol.Payloads{}
	initResp.Add(&protocol.KePayload{Group: protocol.MODP_2048, Public: peerPub, ModLen: modLen})
	initResp.Add(&protocol.NoncePayload{Data: peerNonce})
	body := initResp.EncodeChain()

	hdr := &protocol.IkeHeader{
		SpiI:         in.Sa.SpiI,
		SpiR:         spiR,
		NextPayload:  initResp.FirstPayloadType(),
		ExchangeType: protocol.IKE_SA_INIT,
		Flags:        protocol.RESPONSE,
		MsgId:        0,
	}
	hdr.MsgLength = uint32(protocol.IkeHeaderLen + len(body))
	raw := append(hdr.Encode(), body...)

	if err := in.HandleInitResponse(raw); err != nil {
		t.Fatal(err)
	}
	if in.State != SA_INIT_RECEIVED {
		t.Fatalf("state %v, want SA_INIT_RECEIVED", in.State)
	}

	authReq, err := in.Auth()
	if err != nil {
		t.Fatal(err)
	}
	if in.State != AUTH_SENT {
		t.Fatalf("state %v, want AUTH_SENT", in.State)
	}
	return in, authReq
}

// buildAuthResponse encrypts and macs a minimal IKE_AUTH response with
// the responder-direction keys ("r" keys) the initiator's Sa already
// holds, exactly as a real peer would.
func buildAuthResponse(t *testing.T, in *Initiator, inner *protocol.Payloads) []byte {
	t.Helper()
	suite, err := newSuite()
	if err != nil {
		t.Fatal(err)
	}
	keys := in.Sa.Keys()

	plaintext := inner.EncodeChain()
	iv, ciphertext, err := suite.Encrypt(keys.SkEr, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	skBody := append(append([]byte{}, iv...), ciphertext...)
	skBodyLen := len(skBody) + suite.MacLen
	skHeader := protocol.EncodePayloadHeader(inner.FirstPayloadType(), false, skBodyLen)

	hdr := &protocol.IkeHeader{
		SpiI:         in.Sa.SpiI,
		SpiR:         in.Sa.SpiR,
		NextPayload:  protocol.PayloadTypeSK,
		ExchangeType: protocol.IKE_AUTH,
		Flags:        protocol.RESPONSE,
		MsgId:        1,
	}
	hdr.MsgLength = uint32(protocol.IkeHeaderLen + len(skHeader) + skBodyLen)

	unsigned := append(hdr.Encode(), skHeader...)
	unsigned = append(unsigned, skBody...)
	mac := suite.Mac(keys.SkAr, unsigned)
	return append(unsigned, mac...)
}

func TestHandleAuthResponseEstablishesSession(t *testing.T) {
	in, _ := establishedInitiator(t)

	inner := &protocol.Payloads{}
	inner.Add(&protocol.AuthPayload{Method: protocol.SHARED_KEY_MESSAGE_INTEGRITY_CODE, Data: make([]byte, 16)})
	raw := buildAuthResponse(t, in, inner)

	established, err := in.HandleAuthResponse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if in.State != ESTABLISHED {
		t.Fatalf("state %v, want ESTABLISHED", in.State)
	}
	keys := in.Sa.Keys()
	if string(established.SkEi) != string(keys.SkEi) || string(established.SkD) != string(keys.SkD) {
		t.Fatal("Established keys do not match the session's derived keys")
	}
	if established.SpiR != in.Sa.SpiR {
		t.Fatal("Established SpiR mismatch")
	}
	if len(established.IkeTransforms) == 0 || len(established.ChildTransforms) == 0 {
		t.Fatal("Established must report the negotiated transform sets")
	}
}

// TestHandleAuthResponseRejectsTamperedMac covers the integrity rejection
// scenario: flipping the last byte of the trailing MAC must fail
// verification and move the session to FAILED, not ESTABLISHED.
func TestHandleAuthResponseRejectsTamperedMac(t *testing.T) {
	in, _ := establishedInitiator(t)

	inner := &protocol.Payloads{}
	inner.Add(&protocol.AuthPayload{Method: protocol.SHARED_KEY_MESSAGE_INTEGRITY_CODE, Data: make([]byte, 16)})
	raw := buildAuthResponse(t, in, inner)
	raw[len(raw)-1] ^= 0xff

	_, err := in.HandleAuthResponse(raw)
	if err == nil {
		t.Fatal("expected integrity check failure on tampered auth response")
	}
	ikeErr, ok := err.(protocol.IkeError)
	if !ok || ikeErr.Code != protocol.ERR_INTEGRITY_CHECK_FAILED {
		t.Fatalf("expected ERR_INTEGRITY_CHECK_FAILED, got %v", err)
	}
	if in.State != FAILED {
		t.Fatalf("state %v, want FAILED", in.State)
	}
}

func TestHandleAuthResponseSurfacesNotifyError(t *testing.T) {
	in, _ := establishedInitiator(t)

	inner := &protocol.Payloads{}
	inner.Add(&protocol.NotifyPayload{ProtocolId: protocol.IKE, NotificationType: protocol.AUTHENTICATION_FAILED})
	raw := buildAuthResponse(t, in, inner)

	_, err := in.HandleAuthResponse(raw)
	if err == nil {
		t.Fatal("expected NotifyError")
	}
	notifyErr, ok := err.(protocol.NotifyError)
	if !ok || notifyErr.Type != protocol.AUTHENTICATION_FAILED {
		t.Fatalf("expected AUTHENTICATION_FAILED NotifyError, got %v", err)
	}
	if in.State != FAILED {
		t.Fatalf("state %v, want FAILED", in.State)
	}
}

func TestHandleAuthResponseRejectsWrongState(t *testing.T) {
	in, err := NewInitiator(newTestConfig(), fixedReader{0x30})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := in.HandleAuthResponse(make([]byte, protocol.IkeHeaderLen)); err == nil {
		t.Fatal("expected error calling HandleAuthResponse outside AUTH_SENT state")
	}
}

func TestDecryptMessageRejectsNonEncryptedFirstPayload(t *testing.T) {
	in, _ := establishedInitiator(t)

	hdr := &protocol.IkeHeader{
		SpiI:         in.Sa.SpiI,
		SpiR:         in.Sa.SpiR,
		NextPayload:  protocol.PayloadTypeN,
		ExchangeType: protocol.IKE_AUTH,
		Flags:        protocol.RESPONSE,
		MsgId:        1,
		MsgLength:    protocol.IkeHeaderLen,
	}
	raw := hdr.Encode()
	if _, err := in.decryptMessage(raw); err == nil {
		t.Fatal("expected error for response not carrying an SK payload first")
	}
}
