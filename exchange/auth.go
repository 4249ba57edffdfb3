package exchange

import (
	ikecrypto "github.com/scottk212/ike/crypto"
	"github.com/scottk212/ike/protocol"
)

// Auth builds the IKE_AUTH request: a plaintext IDi/AUTH/SA/TSi/TSr chain,
// signed over the transcript of the first exchanged messages, then
// encrypted and wrapped in a single Encrypted (SK) payload. Exchange
// type 35, flags 0x08, message-id 1.
func (in *Initiator) Auth() ([]byte, error) {
	if in.State != SA_INIT_RECEIVED {
		return nil, protocol.ErrF(protocol.ERR_PROTOCOL_ERROR, "auth called in state %s", in.State)
	}

	idType := in.cfg.Auth.Local.IdType
	if idType == 0 {
		idType = protocol.ID_RFC822_ADDR
	}
	idi := protocol.NewIdiPayload(idType, in.cfg.Auth.Local.Data)
	in.idi = idi

	signedOctets := append(append([]byte{}, in.Sa.InitIb...), in.Sa.Nr...)
	signedOctets = append(signedOctets, in.Sa.SignedOctetsSuffix(idi.Body(), true)...)

	authData, method, err := in.computeAuth(signedOctets)
	if err != nil {
		return nil, in.fail(err)
	}
	authPayload := &protocol.AuthPayload{Method: method, Data: authData}

	childProposal, espSpi, err := defaultChildProposal(in.rnd)
	if err != nil {
		return nil, in.fail(err)
	}
	in.childSpi = espSpi
	in.childTransforms = childProposal.Transforms

	tsi := in.cfg.TsI
	if tsi == nil {
		tsi = defaultSelector()
	}
	tsr := in.cfg.TsR
	if tsr == nil {
		tsr = defaultSelector()
	}

	inner := &protocol.Payloads{}
	inner.Add(idi)
	inner.Add(authPayload)
	inner.Add(&protocol.SaPayload{Proposals: []*protocol.Proposal{childProposal}})
	inner.Add(protocol.NewTsiPayload(tsi))
	inner.Add(protocol.NewTsrPayload(tsr))
	plaintext := inner.EncodeChain()

	// skBodyLen is the SK payload's own length field: iv + padded
	// ciphertext + trailing MAC (RFC 7296 §3.14 -- "Integrity Checksum
	// Data" is part of the Encrypted payload, not the outer header).
	skBodyLen := skBodyLength(in.Sa.Suite, len(plaintext))
	skHeader := protocol.EncodePayloadHeader(inner.FirstPayloadType(), false, skBodyLen)

	hdr := &protocol.IkeHeader{
		SpiI:         in.Sa.SpiI,
		SpiR:         in.Sa.SpiR,
		NextPayload:  protocol.PayloadTypeSK,
		ExchangeType: protocol.IKE_AUTH,
		Flags:        protocol.INITIATOR,
		MsgId:        1,
	}
	hdr.MsgLength = uint32(protocol.IkeHeaderLen + len(skHeader) + skBodyLen)

	header := append(hdr.Encode(), skHeader...)
	full, err := in.Sa.EncryptAndMac(header, plaintext)
	if err != nil {
		return nil, in.fail(err)
	}

	in.State = AUTH_SENT
	return full, nil
}

// skBodyLength predicts the encrypted SK payload body length (iv +
// padded ciphertext + trailing MAC) from the plaintext length, so the
// payload header's length field can be fixed before encryption actually
// runs. Per spec.md §4.2 the SK payload's length field covers all three
// of IV, ciphertext and the terminal integrity MAC.
func skBodyLength(suite *ikecrypto.Suite, plainLen int) int {
	if suite.IvLen == 0 {
		return plainLen + suite.MacLen
	}
	pad := suite.IvLen - plainLen%suite.IvLen
	return suite.IvLen + plainLen + pad + suite.MacLen
}

// computeAuth dispatches to the PSK or signature AUTH computation per
// the configured credential.
func (in *Initiator) computeAuth(signedOctets []byte) (data []byte, method protocol.AuthMethod, err error) {
	if in.cfg.Auth.Sign != nil {
		sig, serr := in.cfg.Auth.Sign(signedOctets)
		if serr != nil {
			return nil, 0, protocol.ErrF(protocol.ERR_AUTHENTICATION_FAILED, "%s", serr)
		}
		return sig, protocol.RSA_DIGITAL_SIGNATURE, nil
	}
	return in.Sa.AuthCompute(in.cfg.Auth.Psk, signedOctets, true), protocol.SHARED_KEY_MESSAGE_INTEGRITY_CODE, nil
}
