// Package session holds the negotiated, keyed state of one IKE SA: its
// SPIs, nonces, DH shared secret, and the seven SK_* keys derived from
// them, plus the encrypt/decrypt/sign operations that consume those keys.
package session

import (
	"crypto/subtle"
	"io"
	"math/big"

	"github.com/pkg/errors"

	ikecrypto "github.com/scottk212/ike/crypto"
	"github.com/scottk212/ike/protocol"
)

// Sa is the keyed state of one IKE_SA, as seen by its initiator.
type Sa struct {
	Suite *ikecrypto.Suite

	SpiI, SpiR protocol.Spi

	Ni, Nr []byte

	dhGroup             protocol.DhTransformId
	DhPrivate, DhPublic *big.Int
	DhShared            *big.Int

	// SKEYSEED and KEYMAT are retained only for test vectors; production
	// callers never need them once the SK_* fields below are populated.
	SKEYSEED, KEYMAT []byte

	skD        []byte
	skPi, skPr []byte
	skAi, skAr []byte
	skEi, skEr []byte

	// MsgIdReq/MsgIdResp hold a message-id per direction (RFC 7296 §2.2).
	// Nothing in this module reads or advances them: the exchange package
	// uses the fixed ids 0 (IKE_SA_INIT) and 1 (IKE_AUTH).
	MsgIdReq, MsgIdResp uint32

	// InitIb/InitRb retain the verbatim first IKE_SA_INIT request and
	// response bytes; the AUTH payload transcript signs over one of them.
	InitIb, InitRb []byte
}

// NewInitiatorSa allocates a nonce and DH keypair for a fresh initiator SA.
func NewInitiatorSa(suite *ikecrypto.Suite, group protocol.DhTransformId, rnd io.Reader) (*Sa, error) {
	sa := &Sa{Suite: suite, dhGroup: group}
	nonce, err := randomNonce(suite.Prf.Length, rnd)
	if err != nil {
		return nil, err
	}
	sa.Ni = nonce
	priv, pub, err := ikecrypto.DhCreate(group, rnd)
	if err != nil {
		return nil, err
	}
	sa.DhPrivate, sa.DhPublic = priv, pub
	return sa, nil
}

// randomNonce draws a nonce at least as long as the PRF's preferred key
// size (RFC 7296 §2.10), capped to the 256-byte wire maximum.
func randomNonce(prfLen int, rnd io.Reader) ([]byte, error) {
	n := prfLen
	if n < 16 {
		n = 16
	}
	if n > 256 {
		n = 256
	}
	b := make([]byte, n)
	if _, err := rnd.Read(b); err != nil {
		return nil, errors.Wrap(err, "session: generating nonce")
	}
	return b, nil
}

// ModLen returns the wire padding length of this SA's DH public values.
func (sa *Sa) ModLen() (int, error) { return ikecrypto.ModLen(sa.dhGroup) }

// SetPeerResponse records the responder's nonce and DH public value and
// computes the shared secret. Call DeriveKeys next.
func (sa *Sa) SetPeerResponse(spiR protocol.Spi, nr []byte, theirPublic *big.Int) error {
	sa.SpiR = spiR
	sa.Nr = nr
	shared, err := ikecrypto.DhShared(sa.dhGroup, theirPublic, sa.DhPrivate)
	if err != nil {
		return err
	}
	sa.DhShared = shared
	return nil
}

// DeriveKeys computes SKEYSEED and KEYMAT per RFC 7296 §2.14 and splits
// KEYMAT into SK_d, SK_ai, SK_ar, SK_ei, SK_er, SK_pi, SK_pr.
func (sa *Sa) DeriveKeys() error {
	prf := sa.Suite.Prf
	skeyseed := prf.Compute(append(append([]byte{}, sa.Ni...), sa.Nr...), sa.DhShared.Bytes())

	kmLen := 3*prf.Length + 2*sa.Suite.KeyLen + 2*sa.Suite.MacKeyLen
	seed := append(append([]byte{}, sa.Ni...), sa.Nr...)
	seed = append(seed, sa.SpiI.Bytes()...)
	seed = append(seed, sa.SpiR.Bytes()...)
	keymat := prf.PrfPlus(skeyseed, seed, kmLen)

	off := 0
	take := func(n int) []byte {
		b := keymat[off : off+n]
		off += n
		return b
	}
	sa.skD = take(prf.Length)
	sa.skAi = take(sa.Suite.MacKeyLen)
	sa.skAr = take(sa.Suite.MacKeyLen)
	sa.skEi = take(sa.Suite.KeyLen)
	sa.skEr = take(sa.Suite.KeyLen)
	sa.skPi = take(prf.Length)
	sa.skPr = take(prf.Length)

	sa.SKEYSEED = skeyseed
	sa.KEYMAT = keymat
	return nil
}

// Keys is a one-time snapshot of the derived SK_* values for a caller
// that has successfully established the SA; it does not alias the
// session's internal storage, so zeroizing the session afterward does
// not retroactively clear the caller's copy.
type Keys struct {
	SkD        []byte
	SkAi, SkAr []byte
	SkEi, SkEr []byte
}

func (sa *Sa) Keys() Keys {
	return Keys{
		SkD:  append([]byte{}, sa.skD...),
		SkAi: append([]byte{}, sa.skAi...),
		SkAr: append([]byte{}, sa.skAr...),
		SkEi: append([]byte{}, sa.skEi...),
		SkEr: append([]byte{}, sa.skEr...),
	}
}

// Zero overwrites all derived key material; callers should invoke this
// once an SA is torn down or authentication fails.
func (sa *Sa) Zero() {
	for _, b := range [][]byte{sa.skD, sa.skAi, sa.skAr, sa.skEi, sa.skEr, sa.skPi, sa.skPr, sa.SKEYSEED, sa.KEYMAT} {
		for i := range b {
			b[i] = 0
		}
	}
}

// authKey/encrKey select the direction-appropriate key: an initiator MACs
// and encrypts outbound traffic with its own "i" keys, and verifies /
// decrypts inbound traffic with the peer's "r" keys.
func (sa *Sa) outboundMacKey() []byte  { return sa.skAi }
func (sa *Sa) inboundMacKey() []byte   { return sa.skAr }
func (sa *Sa) outboundEncrKey() []byte { return sa.skEi }
func (sa *Sa) inboundEncrKey() []byte  { return sa.skEr }

// EncryptAndMac encrypts payload bytes with SK_ei and appends a checksum
// computed with SK_ai over header||iv||ciphertext, per RFC 7296 §3.14. The
// iv||ciphertext||checksum framing is produced by protocol.EncryptedPayload
// so the request and response sides share one codec.
func (sa *Sa) EncryptAndMac(header, payload []byte) (full []byte, err error) {
	iv, ciphertext, err := sa.Suite.Encrypt(sa.outboundEncrKey(), payload)
	if err != nil {
		return nil, err
	}
	sk := &protocol.EncryptedPayload{Iv: iv, Data: ciphertext}
	data := append(append([]byte{}, header...), sk.Encode()...)
	sk.Checksum = sa.Suite.Mac(sa.outboundMacKey(), data)
	return append(append([]byte{}, header...), sk.Encode()...), nil
}

// VerifyAndDecrypt checks the trailing checksum of a full IKE message
// (header + payload chain, including the SK payload header) with SK_ar,
// then decrypts the SK payload's iv||ciphertext with SK_er.
func (sa *Sa) VerifyAndDecrypt(full []byte, iv, ciphertext []byte) ([]byte, error) {
	if len(full) < sa.Suite.MacLen {
		return nil, errors.New("session: message shorter than mac")
	}
	signed := full[:len(full)-sa.Suite.MacLen]
	tag := full[len(full)-sa.Suite.MacLen:]
	expect := sa.Suite.Mac(sa.inboundMacKey(), signed)
	if subtle.ConstantTimeCompare(expect, tag) != 1 {
		return nil, protocol.ErrF(protocol.ERR_INTEGRITY_CHECK_FAILED, "mac mismatch")
	}
	clear, err := sa.Suite.Decrypt(sa.inboundEncrKey(), iv, ciphertext)
	if err != nil {
		return nil, protocol.ErrF(protocol.ERR_DECRYPTION_FAILED, "%s", err)
	}
	return clear, nil
}

// AuthCompute produces AUTH = PRF(PRF(sharedSecret, "Key Pad for IKEv2"),
// signedOctets), truncated to the negotiated integrity transform's MAC
// size. signedOctets must already include the trailing
// PRF(SK_pi/SK_pr, IDi/IDr-body) term.
func (sa *Sa) AuthCompute(sharedSecret, signedOctets []byte, isInitiator bool) []byte {
	prf := sa.Suite.Prf
	padKey := prf.Compute(sharedSecret, []byte("Key Pad for IKEv2"))
	return prf.Compute(padKey, signedOctets)[:sa.Suite.MacLen]
}

// SignedOctetsSuffix returns PRF(SK_pi, idBody) (or SK_pr for the
// responder-facing verification, which this initiator never performs).
func (sa *Sa) SignedOctetsSuffix(idBody []byte, isInitiator bool) []byte {
	key := sa.skPr
	if isInitiator {
		key = sa.skPi
	}
	return sa.Suite.Prf.Compute(key, idBody)
}

// ChildKeymat derives ESP keying material: KEYMAT = PRF+(SK_d, Ni | Nr).
func (sa *Sa) ChildKeymat() (encrI, authI, encrR, authR []byte) {
	kmLen := 2*sa.Suite.KeyLen + 2*sa.Suite.MacKeyLen
	seed := append(append([]byte{}, sa.Ni...), sa.Nr...)
	keymat := sa.Suite.Prf.PrfPlus(sa.skD, seed, kmLen)
	off := 0
	take := func(n int) []byte {
		b := keymat[off : off+n]
		off += n
		return b
	}
	encrI = take(sa.Suite.KeyLen)
	authI = take(sa.Suite.MacKeyLen)
	encrR = take(sa.Suite.KeyLen)
	authR = take(sa.Suite.MacKeyLen)
	return
}
