package crypto

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/scottk212/ike/protocol"
)

func TestDhSharedSecretAgrees(t *testing.T) {
	privA, pubA, err := DhCreate(protocol.MODP_2048, rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	privB, pubB, err := DhCreate(protocol.MODP_2048, rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	sharedA, err := DhShared(protocol.MODP_2048, pubB, privA)
	if err != nil {
		t.Fatal(err)
	}
	sharedB, err := DhShared(protocol.MODP_2048, pubA, privB)
	if err != nil {
		t.Fatal(err)
	}
	if sharedA.Cmp(sharedB) != 0 {
		t.Fatalf("shared secrets disagree:\nA=%x\nB=%x", sharedA, sharedB)
	}
}

func TestDhSharedRejectsOutOfRangePublic(t *testing.T) {
	if _, err := DhShared(protocol.MODP_2048, big.NewInt(0), big.NewInt(3)); err == nil {
		t.Fatal("expected error for zero public value")
	}
	if _, err := DhShared(protocol.MODP_2048, modp2048.prime, big.NewInt(3)); err == nil {
		t.Fatal("expected error for public value equal to the prime")
	}
}

func TestDhCreateUnsupportedGroup(t *testing.T) {
	if _, _, err := DhCreate(protocol.MODP_1024, rand.Reader); err == nil {
		t.Fatal("expected error for unsupported group")
	}
}

func TestModLen(t *testing.T) {
	modLen, err := ModLen(protocol.MODP_2048)
	if err != nil {
		t.Fatal(err)
	}
	if modLen != 256 {
		t.Fatalf("modlen %d, want 256", modLen)
	}
	if modp2048.prime.BitLen() != 2048 {
		t.Fatalf("modp2048 bit length %d, want 2048", modp2048.prime.BitLen())
	}
}
