// Package bundlecrypt implements the password-based envelope used for data
// export bundles: PBKDF2-SHA256 key derivation and AES-256-GCM, serialised as
// base64 fields in a JSON envelope. The parameters are part of the stored
// format and must not change, or existing bundles stop decrypting.
package bundlecrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	dErrors "rgpdgate/pkg/domain-errors"
)

const (
	Iterations   = 100_000
	KeyLength    = 32
	SaltLength   = 32
	IVLength     = 16
	TagLength    = 16
	passwordSize = 32
)

// Envelope is the at-rest representation of an encrypted bundle.
type Envelope struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	AuthTag    string `json:"authTag"`
	Salt       string `json:"salt"`
}

// GeneratePassword returns a random URL-safe password. It is handed to the
// requester once and never stored.
func GeneratePassword() (string, error) {
	b := make([]byte, passwordSize)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Encrypt seals plaintext under a key derived from password with a fresh
// random salt and IV.
func Encrypt(plaintext []byte, password string) (Envelope, error) {
	if password == "" {
		return Envelope{}, dErrors.New(dErrors.CodeValidation, "password is required")
	}
	salt := make([]byte, SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return Envelope{}, fmt.Errorf("generate salt: %w", err)
	}
	iv := make([]byte, IVLength)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return Envelope{}, fmt.Errorf("generate iv: %w", err)
	}

	gcm, err := newGCM(password, salt, len(iv))
	if err != nil {
		return Envelope{}, err
	}
	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ciphertext, tag := sealed[:len(sealed)-TagLength], sealed[len(sealed)-TagLength:]

	return Envelope{
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		IV:         base64.StdEncoding.EncodeToString(iv),
		AuthTag:    base64.StdEncoding.EncodeToString(tag),
		Salt:       base64.StdEncoding.EncodeToString(salt),
	}, nil
}

// Decrypt opens an envelope. Any failure, including a wrong password, is
// reported as access denied so callers cannot distinguish the cases.
func Decrypt(env Envelope, password string) ([]byte, error) {
	denied := func(err error) error {
		return dErrors.Wrap(err, dErrors.CodeAccessDenied, "bundle cannot be decrypted")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, denied(err)
	}
	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil || len(iv) == 0 {
		return nil, denied(err)
	}
	tag, err := base64.StdEncoding.DecodeString(env.AuthTag)
	if err != nil || len(tag) != TagLength {
		return nil, denied(err)
	}
	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return nil, denied(err)
	}

	gcm, err := newGCM(password, salt, len(iv))
	if err != nil {
		return nil, denied(err)
	}
	plaintext, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, denied(err)
	}
	return plaintext, nil
}

func newGCM(password string, salt []byte, nonceSize int) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, Iterations, KeyLength, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}
