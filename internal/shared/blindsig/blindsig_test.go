package blindsig

import (
	"math/big"
	"testing"
)

func testKeyPair(t *testing.T) KeyPair {
	t.Helper()
	pair, err := GenerateKeyPair(512)
	if err != nil {
		t.Fatalf("generate keypair failed: %v", err)
	}
	return pair
}

func TestBlindSignRoundTrip(t *testing.T) {
	authority := testKeyPair(t)
	message := MessageToInt([]byte("Option A||C4FE12||9a1b"))

	blinded, unblinder, err := Blind(authority.Public, message)
	if err != nil {
		t.Fatalf("blind failed: %v", err)
	}
	if blinded.Cmp(message) == 0 {
		t.Fatalf("blinded value must differ from the message")
	}

	sig := Unblind(authority.Public, Sign(authority.Private, blinded), unblinder)
	if !Verify(authority.Public, message, sig) {
		t.Fatalf("unblinded signature did not verify")
	}
}

func TestVerifyRejectsForgedSignature(t *testing.T) {
	authority := testKeyPair(t)
	message := MessageToInt([]byte("Option B||AB12CD||77"))
	forged := new(big.Int).Add(message, big.NewInt(1))
	if Verify(authority.Public, message, forged) {
		t.Fatalf("forged signature verified")
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	teller := testKeyPair(t)
	payload := MessageToInt([]byte("Option A||C4FE12||9a1b"))

	sealed, err := Seal(teller.Public, payload)
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if got := Open(teller.Private, sealed); got.Cmp(payload) != 0 {
		t.Fatalf("open returned %s, want %s", got, payload)
	}
}

func TestSealRejectsOversizedPayload(t *testing.T) {
	teller := testKeyPair(t)
	tooBig := new(big.Int).Add(teller.Public.N, big.NewInt(5))
	if _, err := Seal(teller.Public, tooBig); err == nil {
		t.Fatalf("expected oversized payload to fail")
	}
}

func TestEncodeDecodeInt(t *testing.T) {
	value := big.NewInt(123456789)
	decoded, err := DecodeInt(EncodeInt(value))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Cmp(value) != 0 {
		t.Fatalf("round trip mismatch: %s", decoded)
	}
	if _, err := DecodeInt("not-hex!"); err == nil {
		t.Fatalf("expected invalid text to fail decoding")
	}
}

func TestRandomCodeShapeAndUniqueness(t *testing.T) {
	first, err := RandomCode(6)
	if err != nil {
		t.Fatalf("random code failed: %v", err)
	}
	second, err := RandomCode(6)
	if err != nil {
		t.Fatalf("random code failed: %v", err)
	}
	if len(first) != 12 {
		t.Fatalf("expected 12 hex chars, got %q", first)
	}
	if first == second {
		t.Fatalf("two draws produced the same credential")
	}
	if HashCode(first) == HashCode(second) {
		t.Fatalf("distinct codes hashed identically")
	}
}
