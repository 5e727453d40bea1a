// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package signature signs and verifies envelope bytes using RSA-PSS
// with SHA-256 and MGF1-SHA256, matching the reference agent's use of
// cryptography.hazmat's PSS with MAX_LENGTH salt.
package signature

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"

	"github.com/agentweb-project/agentweb/pkg/identity"
)

// pssOptions mirrors MGF1(SHA-256) with the maximum permissible salt
// length for the given key size, as the Python cryptography library's
// PSS.MAX_LENGTH does.
var pssOptions = &rsa.PSSOptions{
	SaltLength: rsa.PSSSaltLengthAuto,
	Hash:       crypto.SHA256,
}

// Signer produces RSA-PSS signatures over arbitrary message bytes.
type Signer struct {
	kp *identity.Keypair
}

// NewSigner creates a Signer bound to a keypair's private half.
func NewSigner(kp *identity.Keypair) *Signer {
	return &Signer{kp: kp}
}

// Sign returns the RSA-PSS signature of message under the signer's key.
func (s *Signer) Sign(message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	return rsa.SignPSS(rand.Reader, s.kp.Private, crypto.SHA256, digest[:], pssOptions)
}

// Verifier checks RSA-PSS signatures against a known public key.
type Verifier struct {
	pub *rsa.PublicKey
}

// NewVerifier creates a Verifier bound to a public key.
func NewVerifier(pub *rsa.PublicKey) *Verifier {
	return &Verifier{pub: pub}
}

// Verify reports whether signature is a valid RSA-PSS signature of
// message under the verifier's public key. It never returns an error:
// any failure to verify (malformed signature, wrong key, tampered
// message) collapses to false, matching the reference agent's
// try/except-returns-False verification helper.
func (v *Verifier) Verify(message, sig []byte) bool {
	digest := sha256.Sum256(message)
	return rsa.VerifyPSS(v.pub, crypto.SHA256, digest[:], sig, pssOptions) == nil
}
