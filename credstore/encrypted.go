package credstore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	saltLength  = 16
	nonceLength = 12
)

// ErrDecrypt is an exported constant or variable used by the account engine.
//
// ErrDecrypt is returned when a stored snapshot cannot be opened with the
// configured passphrase, either because the passphrase is wrong or the file
// was tampered with.
var ErrDecrypt = errors.New("credstore: snapshot decryption failed")

// EncryptedFile defines a public type used by goaccount APIs.
//
// EncryptedFile seals the snapshot with AES-256-GCM. The key is derived from
// the passphrase with Argon2id over a per-write random salt; the file layout
// is salt || nonce || ciphertext.
type EncryptedFile struct {
	file       *File
	passphrase []byte
}

// NewEncryptedFile describes the newencryptedfile operation and its observable behavior.
//
// NewEncryptedFile may return an error when input validation, dependency calls, or security checks fail.
// NewEncryptedFile does not mutate shared global state and can be used concurrently.
func NewEncryptedFile(path string, passphrase []byte) (*EncryptedFile, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("credstore: empty passphrase")
	}
	file, err := NewFile(path)
	if err != nil {
		return nil, err
	}
	return &EncryptedFile{
		file:       file,
		passphrase: append([]byte(nil), passphrase...),
	}, nil
}

// Save seals data under a freshly derived key and writes it atomically.
func (e *EncryptedFile) Save(ctx context.Context, data []byte) error {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	aead, err := e.aead(salt)
	if err != nil {
		return err
	}

	sealed := make([]byte, 0, saltLength+nonceLength+len(data)+aead.Overhead())
	sealed = append(sealed, salt...)
	sealed = append(sealed, nonce...)
	sealed = aead.Seal(sealed, nonce, data, nil)

	return e.file.Save(ctx, sealed)
}

// Load reads and opens the stored snapshot. Returns ErrNotFound when no file
// exists and ErrDecrypt when the payload cannot be opened.
func (e *EncryptedFile) Load(ctx context.Context) ([]byte, error) {
	sealed, err := e.file.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(sealed) < saltLength+nonceLength {
		return nil, ErrDecrypt
	}

	salt := sealed[:saltLength]
	nonce := sealed[saltLength : saltLength+nonceLength]
	ciphertext := sealed[saltLength+nonceLength:]

	aead, err := e.aead(salt)
	if err != nil {
		return nil, err
	}

	data, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return data, nil
}

// Clear removes the snapshot file.
func (e *EncryptedFile) Clear(ctx context.Context) error {
	return e.file.Clear(ctx)
}

func (e *EncryptedFile) aead(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(e.passphrase, salt, 1, 64*1024, 4, 32)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return aead, nil
}
