// Package ike is the caller-facing facade over session and exchange: it
// accepts credentials and optional selector overrides, and turns that
// into an initiator that drives IKE_SA_INIT and IKE_AUTH over whatever
// transport the caller owns.
package ike

import (
	"io"

	"github.com/scottk212/ike/exchange"
	"github.com/scottk212/ike/protocol"
	"github.com/scottk212/ike/session"
)

// Re-exported so callers never need to import the session/protocol
// packages directly for ordinary use.
type (
	Identity    = session.Identity
	AuthConfig  = session.AuthConfig
	Selector    = protocol.Selector
	Established = exchange.Established
)

const (
	ID_IPV4_ADDR   = protocol.ID_IPV4_ADDR
	ID_FQDN        = protocol.ID_FQDN
	ID_RFC822_ADDR = protocol.ID_RFC822_ADDR
	ID_IPV6_ADDR   = protocol.ID_IPV6_ADDR
)

// Config is the caller-supplied setup for one initiator session.
type Config struct {
	Auth AuthConfig

	// TsI/TsR override the default wildcard IPv4 traffic selector pair
	// carried in IKE_AUTH.
	TsI, TsR *Selector
}

// Initiator drives one IKE SA from its initiator side. It is not safe
// for concurrent use: Init, HandleInitResponse, Auth and
// HandleAuthResponse must be called in that order, one at a time.
type Initiator struct {
	in *exchange.Initiator
}

// NewInitiator builds a fresh initiator. rnd is the source of
// randomness for SPIs, nonces, the DH exponent and IVs; pass nil to use
// crypto/rand.
func NewInitiator(cfg *Config, rnd io.Reader) (*Initiator, error) {
	in, err := exchange.NewInitiator(&exchange.Config{
		Auth: cfg.Auth,
		TsI:  cfg.TsI,
		TsR:  cfg.TsR,
	}, rnd)
	if err != nil {
		return nil, err
	}
	return &Initiator{in: in}, nil
}

// Init returns the bytes of the IKE_SA_INIT request.
func (s *Initiator) Init() ([]byte, error) { return s.in.Init() }

// HandleInitResponse consumes the IKE_SA_INIT response, completing the
// Diffie-Hellman exchange and deriving the session's keys.
func (s *Initiator) HandleInitResponse(raw []byte) error {
	return s.in.HandleInitResponse(raw)
}

// Auth returns the bytes of the IKE_AUTH request, encrypted under the
// keys derived by HandleInitResponse.
func (s *Initiator) Auth() ([]byte, error) { return s.in.Auth() }

// HandleAuthResponse consumes the IKE_AUTH response. On success the
// session is ESTABLISHED and the returned record carries the IKE SA's
// SPIs and SK_d/SK_ai/SK_ar/SK_ei/SK_er keys, the outbound ESP SPI and the
// proposed transform sets.
func (s *Initiator) HandleAuthResponse(raw []byte) (*Established, error) {
	return s.in.HandleAuthResponse(raw)
}

// State reports the session's current position in the exchange.
func (s *Initiator) State() exchange.State { return s.in.State }
