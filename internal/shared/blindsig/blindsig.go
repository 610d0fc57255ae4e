// Package blindsig implements the textbook-RSA blind signature and sealing
// primitives used by the election core: the ballot authority signs blinded
// ballot payloads without seeing them, and envelopes are sealed to the
// teller's public key until scrutiny.
//
// Keys are plain RSA keys; the blind/unblind math needs raw modular
// exponentiation, so operations work on big.Int values rather than going
// through the high-level crypto/rsa encrypt/sign APIs.
package blindsig

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrMessageTooLong  = errors.New("message does not fit the key modulus")
	ErrInvalidEnvelope = errors.New("invalid sealed envelope")
)

// PublicKey is the (e, n) half of a keypair, used for blinding, signature
// verification, and sealing.
type PublicKey struct {
	N *big.Int
	E *big.Int
}

// PrivateKey is the (d, n) half, used for blind signing and opening.
type PrivateKey struct {
	N *big.Int
	D *big.Int
}

// KeyPair couples both halves for a single protocol actor.
type KeyPair struct {
	Public  PublicKey
	Private PrivateKey
}

// GenerateKeyPair produces a fresh RSA keypair of the given size. 1024 bits
// matches the original protocol parameters for interactive demos; production
// deployments should pass 2048 or more.
func GenerateKeyPair(bits int) (KeyPair, error) {
	if bits < 512 {
		return KeyPair{}, fmt.Errorf("key size %d is below the 512-bit floor", bits)
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate rsa key: %w", err)
	}
	return KeyPair{
		Public: PublicKey{
			N: new(big.Int).Set(key.N),
			E: big.NewInt(int64(key.E)),
		},
		Private: PrivateKey{
			N: new(big.Int).Set(key.N),
			D: new(big.Int).Set(key.D),
		},
	}, nil
}

// MessageToInt maps a payload onto the integer the RSA operations work over.
func MessageToInt(message []byte) *big.Int {
	return new(big.Int).SetBytes(message)
}

// IntToMessage reverses MessageToInt.
func IntToMessage(value *big.Int) []byte {
	return value.Bytes()
}

// Blind masks message with a random factor k coprime to the modulus and
// returns the blinded value together with k's modular inverse, which the
// caller keeps secret for Unblind.
func Blind(pub PublicKey, message *big.Int) (blinded *big.Int, unblinder *big.Int, err error) {
	if message.Cmp(pub.N) >= 0 {
		return nil, nil, ErrMessageTooLong
	}
	one := big.NewInt(1)
	for {
		k, err := rand.Int(rand.Reader, pub.N)
		if err != nil {
			return nil, nil, fmt.Errorf("draw blinding factor: %w", err)
		}
		if k.Sign() == 0 {
			continue
		}
		if new(big.Int).GCD(nil, nil, k, pub.N).Cmp(one) != 0 {
			continue
		}
		factor := new(big.Int).Exp(k, pub.E, pub.N)
		blinded = factor.Mul(factor, message).Mod(factor, pub.N)
		unblinder = new(big.Int).ModInverse(k, pub.N)
		return blinded, unblinder, nil
	}
}

// Sign applies the private exponent to an already-blinded value. The signer
// never observes the underlying payload.
func Sign(priv PrivateKey, blinded *big.Int) *big.Int {
	return new(big.Int).Exp(blinded, priv.D, priv.N)
}

// Unblind strips the blinding factor from a blinded signature, yielding a
// regular RSA signature over the original message.
func Unblind(pub PublicKey, blindedSig *big.Int, unblinder *big.Int) *big.Int {
	sig := new(big.Int).Mul(blindedSig, unblinder)
	return sig.Mod(sig, pub.N)
}

// Verify checks that sig is a valid signature over message under pub.
func Verify(pub PublicKey, message *big.Int, sig *big.Int) bool {
	recovered := new(big.Int).Exp(sig, pub.E, pub.N)
	return recovered.Cmp(message) == 0
}

// Seal encrypts value to the holder of the matching private key.
func Seal(pub PublicKey, value *big.Int) (*big.Int, error) {
	if value.Cmp(pub.N) >= 0 {
		return nil, ErrMessageTooLong
	}
	return new(big.Int).Exp(value, pub.E, pub.N), nil
}

// Open decrypts a sealed value.
func Open(priv PrivateKey, sealed *big.Int) *big.Int {
	return new(big.Int).Exp(sealed, priv.D, priv.N)
}

// EncodeInt renders a protocol integer for storage.
func EncodeInt(value *big.Int) string {
	return value.Text(16)
}

// DecodeInt parses a stored protocol integer.
func DecodeInt(raw string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(raw, 16)
	if !ok {
		return nil, ErrInvalidEnvelope
	}
	return value, nil
}

// HashCode returns the hex SHA-256 digest the registry keeps in place of a
// clear verification code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// RandomCode issues an uppercase hex credential of byteLen random bytes.
func RandomCode(byteLen int) (string, error) {
	if byteLen <= 0 {
		byteLen = 6
	}
	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("draw credential bytes: %w", err)
	}
	code := make([]byte, hex.EncodedLen(len(buf)))
	hex.Encode(code, buf)
	for i, c := range code {
		if c >= 'a' && c <= 'f' {
			code[i] = c - 'a' + 'A'
		}
	}
	return string(code), nil
}
