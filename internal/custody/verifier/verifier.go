// Package verifier implements identity recovery for authorization proofs.
//
// The wire envelope is pubkey||signature over an operation digest. The
// signer's account is derived from the public key, so recovery needs no key
// directory: verify the signature, hash the key, compare accounts.
package verifier

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// envelopeSize is a 32-byte Ed25519 public key followed by a 64-byte
// signature.
const envelopeSize = ed25519.PublicKeySize + ed25519.SignatureSize

// Ed25519 recovers signer accounts from Ed25519 proof envelopes. Stateless
// and safe for concurrent use.
type Ed25519 struct{}

func New() Ed25519 {
	return Ed25519{}
}

// RecoverSigner verifies the envelope against the digest and returns the
// account derived from the embedded public key.
func (Ed25519) RecoverSigner(digest []byte, signature []byte) (id.AccountID, error) {
	if len(digest) == 0 {
		return "", dErrors.New(dErrors.CodeRecoveryFailed, "empty digest")
	}
	if len(signature) != envelopeSize {
		return "", dErrors.Newf(dErrors.CodeRecoveryFailed,
			"signature envelope must be %d bytes, got %d", envelopeSize, len(signature))
	}

	pub := ed25519.PublicKey(signature[:ed25519.PublicKeySize])
	sig := signature[ed25519.PublicKeySize:]
	if !ed25519.Verify(pub, digest, sig) {
		return "", dErrors.New(dErrors.CodeRecoveryFailed, "signature does not verify against digest")
	}
	return AccountFromPublicKey(pub), nil
}

// AccountFromPublicKey derives the ledger account for a public key:
// hex of the first 20 bytes of the key's SHA3-256.
func AccountFromPublicKey(pub ed25519.PublicKey) id.AccountID {
	sum := sha3.Sum256(pub)
	return id.AccountID("acct1" + hex.EncodeToString(sum[:20]))
}

// SignApproval produces a proof envelope for the digest. Exported for client
// tooling and tests; the server only ever verifies.
func SignApproval(priv ed25519.PrivateKey, digest []byte) []byte {
	pub := priv.Public().(ed25519.PublicKey)
	envelope := make([]byte, 0, envelopeSize)
	envelope = append(envelope, pub...)
	envelope = append(envelope, ed25519.Sign(priv, digest)...)
	return envelope
}

// OperationDigest binds an approval to one operation on one container so a
// captured signature cannot authorize a different disbursement.
func OperationDigest(action string, containerID id.ContainerID, percentage int, quantity int64) []byte {
	payload := fmt.Sprintf("custodia/v1/%s/%d/%d/%d", action, containerID, percentage, quantity)
	sum := sha3.Sum256([]byte(payload))
	return sum[:]
}
