package session

import (
	"github.com/pkg/errors"

	"github.com/scottk212/ike/protocol"
)

// Identity names one end of the exchange for the AUTH payload's IDi/IDr.
type Identity struct {
	IdType protocol.IdType
	Data   []byte
}

// AuthConfig supplies the credentials an initiator needs to produce its
// AUTH payload. Exactly one of Psk or Sign must be set; this core never
// reads key material from disk itself (callers load PSKs/private keys
// however their deployment requires and hand them in here).
type AuthConfig struct {
	Local, Remote Identity

	// Psk selects SHARED_KEY_MESSAGE_INTEGRITY_CODE authentication.
	Psk []byte

	// Sign selects RSA_DIGITAL_SIGNATURE authentication: it receives the
	// PRF(SK_pi, IDi-body)-extended transcript and returns a signature
	// over it. Left nil when Psk is used.
	Sign func(signedOctets []byte) ([]byte, error)
}

func (c *AuthConfig) Method() protocol.AuthMethod {
	if c.Sign != nil {
		return protocol.RSA_DIGITAL_SIGNATURE
	}
	return protocol.SHARED_KEY_MESSAGE_INTEGRITY_CODE
}

// Validate checks that exactly one credential form was supplied.
func (c *AuthConfig) Validate() error {
	if (len(c.Psk) == 0) == (c.Sign == nil) {
		return errors.New("session: exactly one of Psk or Sign must be set")
	}
	return nil
}
