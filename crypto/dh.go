// Package crypto implements the cryptographic pipeline an IKEv2
// initiator needs: PRF/PRF+ key expansion, the MODP Diffie-Hellman
// group, and the negotiated cipher suite (encryption + integrity).
package crypto

import (
	"io"
	"math/big"

	"github.com/pkg/errors"

	"github.com/scottk212/ike/protocol"
)

// dhGroup is a MODP group: a safe prime and a generator, with private
// exponents drawn with at least minExponentBits of entropy per RFC 3526 §1.
type dhGroup struct {
	prime           *big.Int
	generator       *big.Int
	minExponentBits int
	primeLen        int // byte length of the modulus, for KE payload padding
}

// modp2048Hex is the RFC 3526 §3 2048-bit MODP group 14 prime, in hex.
const modp2048Hex = "" +
	"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
	"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
	"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
	"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
	"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
	"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
	"670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9" +
	"DE2BCBF6955817183995497CEA956AE515D2261898FA0510" +
	"15728E5A8AACAA68FFFFFFFFFFFFFFFF"

var modp2048 = &dhGroup{
	prime:           mustPrime(modp2048Hex),
	generator:       big.NewInt(2),
	minExponentBits: 256,
}

func init() {
	modp2048.primeLen = (modp2048.prime.BitLen() + 7) / 8
}

func mustPrime(hexStr string) *big.Int {
	n := new(big.Int)
	n.SetString(hexStr, 16)
	return n
}

var kexAlgoMap = map[protocol.DhTransformId]*dhGroup{
	protocol.MODP_2048: modp2048,
}

func dhGroupFor(id protocol.DhTransformId) (*dhGroup, bool) {
	g, ok := kexAlgoMap[id]
	return g, ok
}

// private draws a minExponentBits-long random DH exponent with its top
// bit set. Every such value already lies within [2, prime-2], so no draw
// is rejected or retried.
func (g *dhGroup) private(rnd io.Reader) (*big.Int, error) {
	nbytes := (g.minExponentBits + 7) / 8
	b := make([]byte, nbytes)
	if _, err := io.ReadFull(rnd, b); err != nil {
		return nil, errors.Wrap(err, "dh: reading random exponent")
	}
	b[0] |= 0x80 // ensure full bit length
	return new(big.Int).SetBytes(b), nil
}

func (g *dhGroup) public(priv *big.Int) *big.Int {
	return new(big.Int).Exp(g.generator, priv, g.prime)
}

func (g *dhGroup) diffieHellman(theirPublic, myPrivate *big.Int) (*big.Int, error) {
	if theirPublic.Sign() <= 0 || theirPublic.Cmp(g.prime) >= 0 {
		return nil, errors.New("dh: peer public value out of range")
	}
	return new(big.Int).Exp(theirPublic, myPrivate, g.prime), nil
}

// DhCreate allocates a private/public pair for the given negotiated group.
func DhCreate(id protocol.DhTransformId, rnd io.Reader) (priv, pub *big.Int, err error) {
	g, ok := dhGroupFor(id)
	if !ok {
		return nil, nil, errors.Errorf("dh: unsupported group %d", id)
	}
	priv, err = g.private(rnd)
	if err != nil {
		return nil, nil, err
	}
	pub = g.public(priv)
	return priv, pub, nil
}

// DhShared computes g^ir given our private exponent and the peer's public
// value, both for the negotiated group.
func DhShared(id protocol.DhTransformId, theirPublic, myPrivate *big.Int) (*big.Int, error) {
	g, ok := dhGroupFor(id)
	if !ok {
		return nil, errors.Errorf("dh: unsupported group %d", id)
	}
	return g.diffieHellman(theirPublic, myPrivate)
}

// ModLen returns the wire length (bytes) the KE payload's public value is
// padded to for the given group.
func ModLen(id protocol.DhTransformId) (int, error) {
	g, ok := dhGroupFor(id)
	if !ok {
		return 0, errors.Errorf("dh: unsupported group %d", id)
	}
	return g.primeLen, nil
}

