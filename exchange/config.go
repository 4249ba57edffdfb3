// Package exchange drives the initiator side of the two IKEv2 exchanges:
// IKE_SA_INIT and IKE_AUTH. It owns no transport; every call consumes
// and produces opaque byte buffers.
package exchange

import (
	"net"

	ikecrypto "github.com/scottk212/ike/crypto"
	"github.com/scottk212/ike/protocol"
	"github.com/scottk212/ike/session"
)

// Config fixes the negotiated suite and the optional identity/selector
// overrides an initiator may supply; the suite (Camellia-256-CBC,
// PRF-HMAC-SHA-256, HMAC-SHA-256-128, MODP group 14) is not configurable,
// since this core proposes exactly one suite.
type Config struct {
	Auth session.AuthConfig

	// TsI/TsR override the default wildcard IPv4 selector pair.
	TsI, TsR *protocol.Selector
}

const (
	espKeyLengthBits = 256
	childSpiLen      = 4
)

func defaultIkeProposal(spiI protocol.Spi) *protocol.Proposal {
	return &protocol.Proposal{
		Number:     1,
		ProtocolId: protocol.IKE,
		Spi:        nil, // IKE SPI during SA_INIT travels in the header, not the proposal
		Transforms: ikeTransforms(),
	}
}

func ikeTransforms() []*protocol.Transform {
	return []*protocol.Transform{
		{Type: protocol.TRANSFORM_TYPE_ENCR, Id: uint16(protocol.ENCR_CAMELLIA_CBC), KeyLength: espKeyLengthBits},
		{Type: protocol.TRANSFORM_TYPE_PRF, Id: uint16(protocol.PRF_HMAC_SHA2_256)},
		{Type: protocol.TRANSFORM_TYPE_INTEG, Id: uint16(protocol.AUTH_HMAC_SHA2_256_128)},
		{Type: protocol.TRANSFORM_TYPE_DH, Id: uint16(protocol.MODP_2048)},
	}
}

// defaultChildProposal builds the ESP proposal carried in IKE_AUTH, with a
// freshly drawn 4-byte outbound SPI.
func defaultChildProposal(rnd randReader) (*protocol.Proposal, []byte, error) {
	spi, err := randomSpi(rnd, childSpiLen)
	if err != nil {
		return nil, nil, err
	}
	trs := []*protocol.Transform{
		{Type: protocol.TRANSFORM_TYPE_ENCR, Id: uint16(protocol.ENCR_CAMELLIA_CBC), KeyLength: espKeyLengthBits},
		{Type: protocol.TRANSFORM_TYPE_INTEG, Id: uint16(protocol.AUTH_HMAC_SHA2_256_128)},
		{Type: protocol.TRANSFORM_TYPE_ESN, Id: uint16(protocol.ESN_NONE)},
	}
	return &protocol.Proposal{
		Number:     1,
		ProtocolId: protocol.ESP,
		Spi:        spi,
		Transforms: trs,
	}, spi, nil
}

// defaultSelector is the wildcard IPv4 range used unless the caller
// supplies an explicit pair.
func defaultSelector() *protocol.Selector {
	return &protocol.Selector{
		Type:         protocol.TS_IPV4_ADDR_RANGE,
		IpProtocolId: 0,
		StartPort:    0,
		EndPort:      65535,
		StartAddress: net.IPv4(0, 0, 0, 0).To4(),
		EndAddress:   net.IPv4(255, 255, 255, 255).To4(),
	}
}

func newSuite() (*ikecrypto.Suite, error) {
	return ikecrypto.NewSuite(protocol.PRF_HMAC_SHA2_256, protocol.ENCR_CAMELLIA_CBC, espKeyLengthBits, protocol.AUTH_HMAC_SHA2_256_128)
}
