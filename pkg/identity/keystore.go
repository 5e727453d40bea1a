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

// Package identity derives the fabric's self-certifying agent
// identifiers from RSA keypairs and manages their on-disk persistence.
package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentweb-project/agentweb/internal/logger"
)

const (
	// KeyBits is the RSA modulus size generated for new identities.
	KeyBits = 2048
	// Method is the DID method name used in every minted identifier.
	Method = "agentweb"
)

// Keypair wraps an RSA private key bound to a filesystem path.
type Keypair struct {
	Private *rsa.PrivateKey
}

// PublicKey returns the RSA public half of the pair.
func (k *Keypair) PublicKey() *rsa.PublicKey {
	return &k.Private.PublicKey
}

// LoadOrCreate loads an unencrypted PKCS#1 PEM private key from path, or
// generates a fresh 2048-bit RSA key and persists it there if no file
// exists yet. The parent directory is created with 0700 permissions;
// the key file itself is written with 0600.
func LoadOrCreate(path string) (*Keypair, error) {
	if _, err := os.Stat(path); err == nil {
		return load(path)
	} else if !os.IsNotExist(err) {
		return nil, logger.ErrKeyMaterial.WithCause(err).WithDetails("path", path)
	}
	return create(path)
}

func load(path string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, logger.ErrKeyMaterial.WithCause(err).WithDetails("path", path)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, logger.ErrKeyMaterial.WithCause(fmt.Errorf("no PEM block found")).WithDetails("path", path)
	}

	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, logger.ErrKeyMaterial.WithCause(err).WithDetails("path", path)
	}

	return &Keypair{Private: priv}, nil
}

func create(path string) (*Keypair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, logger.ErrKeyMaterial.WithCause(err).WithDetails("op", "generate")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, logger.ErrKeyMaterial.WithCause(err).WithDetails("op", "mkdir")
		}
	}

	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
		return nil, logger.ErrKeyMaterial.WithCause(err).WithDetails("op", "write").WithDetails("path", path)
	}

	return &Keypair{Private: priv}, nil
}

// PublicKeyPEM renders the public half of kp as a canonical X.509
// SubjectPublicKeyInfo PEM block: LF line endings, 64-column base64
// body, trailing newline, exactly as emitted by encoding/pem. This
// exact byte string is what IdentifierOf digests, so any re-derivation
// (this process or a peer's) must go through this function.
func PublicKeyPEM(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return string(pem.EncodeToMemory(block)), nil
}

// IdentifierOf computes did:agentweb:<hex>, where hex is the lower-case
// SHA-256 digest of the keypair's canonical public-key PEM text.
func IdentifierOf(kp *Keypair) (string, error) {
	return IdentifierOfPublicKey(kp.PublicKey())
}

// IdentifierOfPublicKey computes the identifier for a standalone public
// key, used when verifying a record fetched from a peer.
func IdentifierOfPublicKey(pub *rsa.PublicKey) (string, error) {
	pemText, err := PublicKeyPEM(pub)
	if err != nil {
		return "", err
	}
	return IdentifierOfPEM(pemText), nil
}

// IdentifierOfPEM computes the identifier directly from a public-key
// PEM string, as received over the wire in an AgentRecord. The caller
// is responsible for confirming pemText parses as a valid RSA public
// key before trusting the resulting identifier.
func IdentifierOfPEM(pemText string) string {
	sum := sha256.Sum256([]byte(pemText))
	return fmt.Sprintf("did:%s:%s", Method, hex.EncodeToString(sum[:]))
}

// ParsePublicKeyPEM parses a PEM-encoded X.509 SubjectPublicKeyInfo
// block into an RSA public key.
func ParsePublicKeyPEM(pemText string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, fmt.Errorf("identity: no PEM block found")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("identity: parse public key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("identity: expected RSA public key, got %T", key)
	}
	return rsaKey, nil
}
