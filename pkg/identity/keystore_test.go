package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreate(t *testing.T) {
	t.Run("CreatesFreshKeyWhenAbsent", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "identity.pem")

		kp, err := LoadOrCreate(path)
		require.NoError(t, err)
		assert.Equal(t, KeyBits, kp.Private.N.BitLen())

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("LoadsPersistedKeyOnSecondCall", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "identity.pem")

		first, err := LoadOrCreate(path)
		require.NoError(t, err)
		firstID, err := IdentifierOf(first)
		require.NoError(t, err)

		second, err := LoadOrCreate(path)
		require.NoError(t, err)
		secondID, err := IdentifierOf(second)
		require.NoError(t, err)

		assert.Equal(t, firstID, secondID, "identifier must be stable across reload")
	})

	t.Run("FailsOnCorruptFile", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "identity.pem")
		require.NoError(t, os.WriteFile(path, []byte("not a pem file"), 0600))

		_, err := LoadOrCreate(path)
		assert.Error(t, err)
	})
}

func TestIdentifierDerivation(t *testing.T) {
	t.Run("S1_FixedPEMYieldsExpectedDigest", func(t *testing.T) {
		// A fixed, deterministic test vector: any known PEM text must
		// hash to exactly did:agentweb:<sha256_hex(pem)>.
		pemText := "-----BEGIN PUBLIC KEY-----\n" +
			"MCowBQYDK2VwAyEA0000000000000000000000000000000000000000=\n" +
			"-----END PUBLIC KEY-----\n"

		sum := sha256.Sum256([]byte(pemText))
		expected := fmt.Sprintf("did:agentweb:%s", hex.EncodeToString(sum[:]))

		assert.Equal(t, expected, IdentifierOfPEM(pemText))
	})

	t.Run("IdentifierIsDeterministicForSameKey", func(t *testing.T) {
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		kp := &Keypair{Private: priv}

		id1, err := IdentifierOf(kp)
		require.NoError(t, err)
		id2, err := IdentifierOf(kp)
		require.NoError(t, err)

		assert.Equal(t, id1, id2)
		assert.Regexp(t, `^did:agentweb:[0-9a-f]{64}$`, id1)
	})

	t.Run("DifferentKeysYieldDifferentIdentifiers", func(t *testing.T) {
		priv1, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		priv2, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		id1, err := IdentifierOf(&Keypair{Private: priv1})
		require.NoError(t, err)
		id2, err := IdentifierOf(&Keypair{Private: priv2})
		require.NoError(t, err)

		assert.NotEqual(t, id1, id2)
	})

	t.Run("RoundTripsThroughPEMText", func(t *testing.T) {
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		kp := &Keypair{Private: priv}

		id, err := IdentifierOf(kp)
		require.NoError(t, err)

		pemText, err := PublicKeyPEM(kp.PublicKey())
		require.NoError(t, err)

		parsed, err := ParsePublicKeyPEM(pemText)
		require.NoError(t, err)
		idFromParsed, err := IdentifierOfPublicKey(parsed)
		require.NoError(t, err)

		assert.Equal(t, id, idFromParsed)
		assert.Equal(t, id, IdentifierOfPEM(pemText))
	})
}

func TestParsePublicKeyPEM(t *testing.T) {
	t.Run("RejectsGarbage", func(t *testing.T) {
		_, err := ParsePublicKeyPEM("not a pem")
		assert.Error(t, err)
	})

	t.Run("RejectsNonRSAPEM", func(t *testing.T) {
		// A well-formed PEM block of the wrong type should fail to parse
		// as a PKIX public key.
		badPEM := "-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n"
		_, err := ParsePublicKeyPEM(badPEM)
		assert.Error(t, err)
	})
}
