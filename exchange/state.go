package exchange

import (
	"crypto/rand"
	"io"

	"github.com/pkg/errors"

	"github.com/scottk212/ike/protocol"
	"github.com/scottk212/ike/session"
)

type State int

const (
	START State = iota
	SA_INIT_SENT
	SA_INIT_RECEIVED
	AUTH_SENT
	ESTABLISHED
	FAILED
)

func (s State) String() string {
	switch s {
	case START:
		return "START"
	case SA_INIT_SENT:
		return "SA_INIT_SENT"
	case SA_INIT_RECEIVED:
		return "SA_INIT_RECEIVED"
	case AUTH_SENT:
		return "AUTH_SENT"
	case ESTABLISHED:
		return "ESTABLISHED"
	case FAILED:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

type randReader = io.Reader

// Initiator drives one IKE SA through IKE_SA_INIT and IKE_AUTH. It is
// not safe for concurrent use; a caller must serialize calls to Init,
// HandleInitResponse, Auth and HandleAuthResponse.
type Initiator struct {
	State State

	cfg *Config
	rnd randReader

	Sa *session.Sa

	childSpi        []byte
	childTransforms []*protocol.Transform

	idi *protocol.IdPayload
}

// NewInitiator builds a fresh initiator-side IKE SA. rnd is the source
// of randomness for SPIs, nonces, DH exponents and IVs; pass nil to use
// crypto/rand.
func NewInitiator(cfg *Config, rnd io.Reader) (*Initiator, error) {
	if err := cfg.Auth.Validate(); err != nil {
		return nil, err
	}
	if rnd == nil {
		rnd = rand.Reader
	}
	suite, err := newSuite()
	if err != nil {
		return nil, err
	}
	sa, err := session.NewInitiatorSa(suite, protocol.MODP_2048, rnd)
	if err != nil {
		return nil, err
	}
	spiI, err := randomSpi(rnd, 8)
	if err != nil {
		return nil, err
	}
	copy(sa.SpiI[:], spiI)
	return &Initiator{State: START, cfg: cfg, rnd: rnd, Sa: sa}, nil
}

func randomSpi(rnd io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	for {
		if _, err := io.ReadFull(rnd, b); err != nil {
			return nil, errors.Wrap(err, "exchange: generating spi")
		}
		allZero := true
		for _, c := range b {
			if c != 0 {
				allZero = false
				break
			}
		}
		if !allZero {
			return b, nil
		}
	}
}

// Established is the caller-visible record produced once AUTH succeeds.
type Established struct {
	SpiI, SpiR protocol.Spi
	EspSpiOut  []byte
	SkEi, SkEr []byte
	SkAi, SkAr []byte
	SkD        []byte

	// IkeTransforms and ChildTransforms are the transform sets proposed
	// for the IKE SA and the piggy-backed ESP child SA respectively; this
	// core always proposes the single fixed suite, so these are the same
	// on every Established record, but callers still want them to log or
	// to size their own ESP implementation.
	IkeTransforms, ChildTransforms []*protocol.Transform
}

func (in *Initiator) fail(err error) error {
	in.State = FAILED
	return err
}
