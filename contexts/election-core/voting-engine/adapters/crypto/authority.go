package cryptoadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	domainerrors "scrutin/contexts/election-core/voting-engine/domain/errors"
	"scrutin/contexts/election-core/voting-engine/ports"
	"scrutin/internal/shared/blindsig"
)

// Authority holds the two protocol keypairs: the ballot authority's signing
// key (blind signatures over ballot payloads) and the teller's envelope key
// (ballots stay sealed until scrutiny). The same instance backs the voting
// engine's sealer and the tally engine's opener, since scrutiny must verify
// what casting produced.
type Authority struct {
	signing  blindsig.KeyPair
	envelope blindsig.KeyPair
	logger   *slog.Logger
}

func NewAuthority(keyBits int, logger *slog.Logger) (*Authority, error) {
	if logger == nil {
		logger = slog.Default()
	}
	signing, err := blindsig.GenerateKeyPair(keyBits)
	if err != nil {
		return nil, err
	}
	// The envelope modulus must exceed any signature value mod the signing
	// modulus, otherwise sealing fails for roughly half of all signatures.
	envelope, err := blindsig.GenerateKeyPair(keyBits + 64)
	if err != nil {
		return nil, err
	}
	return &Authority{
		signing:  signing,
		envelope: envelope,
		logger:   logger,
	}, nil
}

// SealBallot runs the full client-side protocol on behalf of the voting
// terminal: blind the payload, obtain the authority's blind signature,
// unblind it, verify locally, then seal message and signature to the teller
// key.
func (a *Authority) SealBallot(_ context.Context, payload string) (ports.SealedEnvelope, error) {
	message := blindsig.MessageToInt([]byte(payload))

	blinded, unblinder, err := blindsig.Blind(a.signing.Public, message)
	if err != nil {
		return ports.SealedEnvelope{}, err
	}
	signature := blindsig.Unblind(a.signing.Public, blindsig.Sign(a.signing.Private, blinded), unblinder)
	if !blindsig.Verify(a.signing.Public, message, signature) {
		a.logger.Error("authority produced a non-verifying blind signature",
			"event", "authority_signature_mismatch",
			"module", "election-core/voting-engine",
			"layer", "adapter",
		)
		return ports.SealedEnvelope{}, domainerrors.ErrSealingFailed
	}

	sealedMessage, err := blindsig.Seal(a.envelope.Public, message)
	if err != nil {
		return ports.SealedEnvelope{}, err
	}
	sealedSignature, err := blindsig.Seal(a.envelope.Public, signature)
	if err != nil {
		return ports.SealedEnvelope{}, err
	}
	return ports.SealedEnvelope{
		Payload:   blindsig.EncodeInt(sealedMessage),
		Signature: blindsig.EncodeInt(sealedSignature),
	}, nil
}

// OpenBallot decrypts a sealed envelope with the teller key and reports
// whether the authority's signature verifies over the recovered payload.
// This is the tally engine's entry point into the protocol.
func (a *Authority) OpenBallot(_ context.Context, sealedPayload string, sealedSignature string) (string, bool, error) {
	sealedMessage, err := blindsig.DecodeInt(strings.TrimSpace(sealedPayload))
	if err != nil {
		return "", false, fmt.Errorf("%w: payload: %v", domainerrors.ErrInvalidBallotEnvelope, err)
	}
	sealedSig, err := blindsig.DecodeInt(strings.TrimSpace(sealedSignature))
	if err != nil {
		return "", false, fmt.Errorf("%w: signature: %v", domainerrors.ErrInvalidBallotEnvelope, err)
	}

	message := blindsig.Open(a.envelope.Private, sealedMessage)
	signature := blindsig.Open(a.envelope.Private, sealedSig)
	payload := string(blindsig.IntToMessage(message))
	return payload, blindsig.Verify(a.signing.Public, message, signature), nil
}

var _ ports.BallotSealer = (*Authority)(nil)
