package session

import (
	"testing"

	"github.com/scottk212/ike/protocol"
)

func TestAuthConfigMethod(t *testing.T) {
	psk := &AuthConfig{Psk: []byte("secret")}
	if psk.Method() != protocol.SHARED_KEY_MESSAGE_INTEGRITY_CODE {
		t.Fatalf("Psk config should select SHARED_KEY_MESSAGE_INTEGRITY_CODE")
	}

	signed := &AuthConfig{Sign: func(b []byte) ([]byte, error) { return b, nil }}
	if signed.Method() != protocol.RSA_DIGITAL_SIGNATURE {
		t.Fatalf("Sign config should select RSA_DIGITAL_SIGNATURE")
	}
}

func TestAuthConfigValidateRequiresExactlyOneCredential(t *testing.T) {
	neither := &AuthConfig{}
	if err := neither.Validate(); err == nil {
		t.Fatal("expected error when neither Psk nor Sign is set")
	}

	both := &AuthConfig{
		Psk:  []byte("secret"),
		Sign: func(b []byte) ([]byte, error) { return b, nil },
	}
	if err := both.Validate(); err == nil {
		t.Fatal("expected error when both Psk and Sign are set")
	}

	onlyPsk := &AuthConfig{Psk: []byte("secret")}
	if err := onlyPsk.Validate(); err != nil {
		t.Fatalf("unexpected error for Psk-only config: %v", err)
	}

	onlySign := &AuthConfig{Sign: func(b []byte) ([]byte, error) { return b, nil }}
	if err := onlySign.Validate(); err != nil {
		t.Fatalf("unexpected error for Sign-only config: %v", err)
	}
}
