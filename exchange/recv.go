package exchange

import (
	"github.com/scottk212/ike/protocol"
)

// HandleAuthResponse parses the IKE_AUTH response: verifies its HMAC,
// decrypts the SK payload, walks the inner chain, and on success
// transitions the session to ESTABLISHED and returns the SA record.
// On a Notify error it transitions to FAILED and returns NotifyError.
func (in *Initiator) HandleAuthResponse(raw []byte) (*Established, error) {
	if in.State != AUTH_SENT {
		return nil, in.fail(protocol.ErrF(protocol.ERR_PROTOCOL_ERROR, "unexpected auth response in state %s", in.State))
	}

	inner, err := in.decryptMessage(raw)
	if err != nil {
		return nil, in.fail(err)
	}

	if n := inner.Get(protocol.PayloadTypeN); n != nil {
		notify := n.(*protocol.NotifyPayload)
		if notify.NotificationType.IsError() {
			return nil, in.fail(protocol.NotifyError{Type: notify.NotificationType})
		}
	}

	// The responder's AUTH payload is not recomputed or verified here;
	// this initiator only confirms the payload is present.
	if inner.Get(protocol.PayloadTypeAUTH) == nil {
		return nil, in.fail(protocol.ErrF(protocol.ERR_MALFORMED_PACKET, "auth response missing AUTH payload"))
	}

	keys := in.Sa.Keys()
	in.State = ESTABLISHED
	return &Established{
		SpiI:            in.Sa.SpiI,
		SpiR:            in.Sa.SpiR,
		EspSpiOut:       in.childSpi,
		SkEi:            keys.SkEi,
		SkEr:            keys.SkEr,
		SkAi:            keys.SkAi,
		SkAr:            keys.SkAr,
		SkD:             keys.SkD,
		IkeTransforms:   ikeTransforms(),
		ChildTransforms: in.childTransforms,
	}, nil
}

// decryptMessage parses the header, verifies the MAC over the outer
// packet minus its trailing tag, decrypts the SK payload, strips
// padding, and walks the resulting inner chain.
func (in *Initiator) decryptMessage(raw []byte) (*protocol.Payloads, error) {
	hdr, err := protocol.DecodeIkeHeader(raw)
	if err != nil {
		return nil, err
	}
	if !hdr.Flags.IsResponse() {
		return nil, protocol.ErrF(protocol.ERR_PROTOCOL_ERROR, "expected response flag")
	}
	if hdr.NextPayload != protocol.PayloadTypeSK {
		return nil, protocol.ErrF(protocol.ERR_PROTOCOL_ERROR, "expected encrypted response, got first-payload %d", hdr.NextPayload)
	}

	body := raw[protocol.IkeHeaderLen:]
	var skHdr protocol.PayloadHeader
	if err := skHdr.Decode(body); err != nil {
		return nil, err
	}
	if len(body) < int(skHdr.PayloadLength) {
		return nil, protocol.ErrSyntax("SK payload overruns buffer")
	}

	if len(raw) < in.Sa.Suite.MacLen {
		return nil, protocol.ErrSyntax("message shorter than mac")
	}

	// The SK payload's own declared length covers its IV, ciphertext and
	// trailing integrity checksum (RFC 7296 §3.14); EncryptedPayload.Decode
	// is the single place that framing is parsed back apart.
	sk := &protocol.EncryptedPayload{IvLen: in.Sa.Suite.IvLen, ChecksumLen: in.Sa.Suite.MacLen}
	if err := sk.Decode(body[protocol.PayloadHeaderLength:skHdr.PayloadLength]); err != nil {
		return nil, err
	}

	clear, err := in.Sa.VerifyAndDecrypt(raw, sk.Iv, sk.Data)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeChain(skHdr.NextPayload, clear)
}
