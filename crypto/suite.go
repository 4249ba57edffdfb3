package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"hash"

	"github.com/dgryski/go-camellia"
	"github.com/pkg/errors"

	"github.com/scottk212/ike/protocol"
)

type macFunc func(key, data []byte) []byte
type blockFunc func(key []byte) (cipher.Block, error)

// Suite bundles the negotiated PRF, encryption and integrity transforms
// for one IKE SA. It never stores key material itself -- callers pass
// keys in on every Encrypt/Decrypt/Mac call so the session package owns
// the single copy of each SK_* value.
type Suite struct {
	Prf *Prf

	EncrId   protocol.EncrTransformId
	KeyLen   int // bytes
	IvLen    int // == block size
	newBlock blockFunc

	IntegId   protocol.AuthTransformId
	MacKeyLen int // bytes, == underlying hash size
	MacLen    int // bytes, truncated tag length
	mac       macFunc
}

// NewSuite builds a Suite from the negotiated transform IDs. keyLenBits
// is the ENCR transform's key-length attribute (bits); 0 falls back to
// the cipher's only supported size.
func NewSuite(prfId protocol.PrfTransformId, encrId protocol.EncrTransformId, keyLenBits int, integId protocol.AuthTransformId) (*Suite, error) {
	prf, err := NewPrf(prfId)
	if err != nil {
		return nil, err
	}
	s := &Suite{Prf: prf, EncrId: encrId, IntegId: integId}
	switch encrId {
	case protocol.ENCR_CAMELLIA_CBC:
		s.IvLen = camellia.BlockSize
		s.newBlock = func(key []byte) (cipher.Block, error) { return camellia.New(key) }
		s.KeyLen = 32
	case protocol.ENCR_AES_CBC:
		s.IvLen = aes.BlockSize
		s.newBlock = aes.NewCipher
		if keyLenBits != 0 {
			s.KeyLen = keyLenBits / 8
		} else {
			s.KeyLen = 16
		}
	case protocol.ENCR_NULL:
		s.IvLen = 0
		s.KeyLen = 0
	default:
		return nil, errors.Errorf("crypto: unsupported encr transform %d", encrId)
	}
	if keyLenBits != 0 && encrId != protocol.ENCR_AES_CBC {
		s.KeyLen = keyLenBits / 8
	}

	switch integId {
	case protocol.AUTH_HMAC_SHA2_256_128:
		s.MacKeyLen = sha256.Size
		s.MacLen = 16
		s.mac = hashMac(sha256.New, 16)
	case protocol.AUTH_HMAC_SHA1_96:
		s.MacKeyLen = sha1.Size
		s.MacLen = 12
		s.mac = hashMac(sha1.New, 12)
	default:
		return nil, errors.Errorf("crypto: unsupported integrity transform %d", integId)
	}
	return s, nil
}

func hashMac(h func() hash.Hash, macLen int) macFunc {
	return func(key, data []byte) []byte {
		mac := hmac.New(h, key)
		mac.Write(data)
		return mac.Sum(nil)[:macLen]
	}
}

// Mac computes the (already-truncated) integrity checksum over data.
func (s *Suite) Mac(key, data []byte) []byte { return s.mac(key, data) }

// VerifyMac recomputes the checksum over data and compares it in constant
// time against the tag the peer appended.
func (s *Suite) VerifyMac(key, data, tag []byte) error {
	expect := s.mac(key, data)
	if !hmac.Equal(expect, tag) {
		return errors.New("crypto: integrity check failed")
	}
	return nil
}

// Encrypt CBC-encrypts clear under key with a fresh random IV, applying
// IKEv2's pad-length-byte convention (RFC 7296 §3.14), and returns the
// IV and the ciphertext as separate values. The null cipher returns a nil
// IV and passes clear through unchanged.
func (s *Suite) Encrypt(key, clear []byte) (iv, ciphertext []byte, err error) {
	if s.newBlock == nil {
		return nil, clear, nil
	}
	block, err := s.newBlock(key)
	if err != nil {
		return nil, nil, errors.Wrap(err, "crypto: building cipher")
	}
	bs := block.BlockSize()
	padLen := bs - len(clear)%bs
	pad := make([]byte, padLen)
	pad[padLen-1] = byte(padLen - 1)
	padded := append(append([]byte{}, clear...), pad...)

	iv = make([]byte, s.IvLen)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, errors.Wrap(err, "crypto: generating iv")
	}
	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return iv, ciphertext, nil
}

// Decrypt reverses Encrypt: iv and ciphertext are the raw fields already
// split out of the SK payload by the caller.
func (s *Suite) Decrypt(key, iv, ciphertext []byte) ([]byte, error) {
	if s.newBlock == nil {
		return ciphertext, nil
	}
	block, err := s.newBlock(key)
	if err != nil {
		return nil, errors.Wrap(err, "crypto: building cipher")
	}
	bs := block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, errors.New("crypto: ciphertext not a multiple of block size")
	}
	clear := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(clear, ciphertext)
	padLen := int(clear[len(clear)-1]) + 1
	if padLen > len(clear) || padLen > bs {
		return nil, errors.New("crypto: invalid padding")
	}
	return clear[:len(clear)-padLen], nil
}
