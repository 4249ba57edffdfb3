package crypto

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"hash"

	"github.com/pkg/errors"

	"github.com/scottk212/ike/protocol"
)

type prfFunc func(key, data []byte) []byte

// Prf wraps a keyed PRF with its output length, matching how the suite
// picks SK_d/SK_pi/SK_pr sizes off of it.
type Prf struct {
	Length int
	run    prfFunc
}

func (p *Prf) Compute(key, data []byte) []byte { return p.run(key, data) }

// PrfPlus implements PRF+(K,S) per RFC 7296 §2.13: T1 = PRF(K, S | 0x01),
// T2 = PRF(K, T1 | S | 0x02), ... truncated to the requested byte length.
func (p *Prf) PrfPlus(key, seed []byte, length int) []byte {
	var out, prev []byte
	for round := byte(1); len(out) < length; round++ {
		in := append(append([]byte{}, prev...), seed...)
		in = append(in, round)
		prev = p.run(key, in)
		out = append(out, prev...)
	}
	return out[:length]
}

func macPrf(h func() hash.Hash) prfFunc {
	return func(key, data []byte) []byte {
		mac := hmac.New(h, key)
		mac.Write(data)
		return mac.Sum(nil)
	}
}

func NewPrf(id protocol.PrfTransformId) (*Prf, error) {
	switch id {
	case protocol.PRF_HMAC_SHA2_256:
		return &Prf{Length: sha256.Size, run: macPrf(sha256.New)}, nil
	case protocol.PRF_HMAC_SHA1:
		return &Prf{Length: sha1.Size, run: macPrf(sha1.New)}, nil
	default:
		return nil, errors.Errorf("crypto: unsupported prf transform %d", id)
	}
}
