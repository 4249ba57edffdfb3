package exchange

import (
	"github.com/scottk212/ike/protocol"
)

// Init builds the IKE_SA_INIT request: SA, KE, Nonce, exchange-type 34,
// flags 0x08 (initiator), message-id 0. The emitted bytes are retained
// verbatim on the session for later transcript signing.
func (in *Initiator) Init() ([]byte, error) {
	if in.State != START {
		return nil, protocol.ErrF(protocol.ERR_PROTOCOL_ERROR, "init called in state %s", in.State)
	}

	modLen, err := in.Sa.ModLen()
	if err != nil {
		return nil, in.fail(err)
	}

	payloads := &protocol.Payloads{}
	payloads.Add(&protocol.SaPayload{Proposals: []*protocol.Proposal{defaultIkeProposal(in.Sa.SpiI)}})
	payloads.Add(&protocol.KePayload{Group: protocol.MODP_2048, Public: in.Sa.DhPublic, ModLen: modLen})
	payloads.Add(&protocol.NoncePayload{Data: in.Sa.Ni})

	body := payloads.EncodeChain()

	hdr := &protocol.IkeHeader{
		SpiI:         in.Sa.SpiI,
		NextPayload:  payloads.FirstPayloadType(),
		ExchangeType: protocol.IKE_SA_INIT,
		Flags:        protocol.INITIATOR,
		MsgId:        0,
	}
	hdr.MsgLength = uint32(protocol.IkeHeaderLen + len(body))

	out := append(hdr.Encode(), body...)
	in.Sa.InitIb = out
	in.State = SA_INIT_SENT
	return out, nil
}

// HandleInitResponse parses the IKE_SA_INIT response, stores the
// responder SPI and nonce, completes the DH exchange and derives the
// SK_* keys. A Notify carrying an error message-type fails the session
// with NotifyError.
func (in *Initiator) HandleInitResponse(raw []byte) error {
	if in.State != SA_INIT_SENT {
		return in.fail(protocol.ErrF(protocol.ERR_PROTOCOL_ERROR, "unexpected init response in state %s", in.State))
	}
	hdr, err := protocol.DecodeIkeHeader(raw)
	if err != nil {
		return in.fail(err)
	}
	if !hdr.Flags.IsResponse() {
		return in.fail(protocol.ErrF(protocol.ERR_PROTOCOL_ERROR, "expected response flag"))
	}
	if hdr.MsgId != 0 {
		return in.fail(protocol.ErrF(protocol.ERR_PROTOCOL_ERROR, "unexpected msgid %d in init response", hdr.MsgId))
	}

	payloads, err := protocol.DecodeChain(hdr.NextPayload, raw[protocol.IkeHeaderLen:])
	if err != nil {
		return in.fail(err)
	}

	if n := payloads.Get(protocol.PayloadTypeN); n != nil {
		notify := n.(*protocol.NotifyPayload)
		if notify.NotificationType.IsError() {
			return in.fail(protocol.NotifyError{Type: notify.NotificationType})
		}
	}

	nonce, ok := payloads.Get(protocol.PayloadTypeNonce).(*protocol.NoncePayload)
	if !ok {
		return in.fail(protocol.ErrF(protocol.ERR_MALFORMED_PACKET, "init response missing nonce"))
	}
	ke, ok := payloads.Get(protocol.PayloadTypeKE).(*protocol.KePayload)
	if !ok {
		return in.fail(protocol.ErrF(protocol.ERR_MALFORMED_PACKET, "init response missing KE"))
	}

	if err := in.Sa.SetPeerResponse(hdr.SpiR, nonce.Data, ke.Public); err != nil {
		return in.fail(err)
	}
	if err := in.Sa.DeriveKeys(); err != nil {
		return in.fail(err)
	}
	in.Sa.InitRb = raw

	in.State = SA_INIT_RECEIVED
	return nil
}
