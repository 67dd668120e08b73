package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

// Service seals employee PII and rendered payslip files with AES-256-GCM.
// An unconfigured service passes data through untouched so deployments
// without DATA_ENCRYPTION_KEY keep working on plaintext columns.
type Service struct {
	aead cipher.AEAD
}

// New parses the configured key and prepares the cipher once, instead of
// rebuilding it per call. An empty key yields an unconfigured service.
func New(key string) (*Service, error) {
	if key == "" {
		return &Service{}, nil
	}
	raw, err := parseKey(key)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Service{aead: aead}, nil
}

func (s *Service) Configured() bool {
	return s != nil && s.aead != nil
}

// Encrypt seals plain with a random nonce prefixed to the ciphertext.
// Empty input and unconfigured services pass through.
func (s *Service) Encrypt(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, nil
	}
	if !s.Configured() {
		return plain, nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plain, nil), nil
}

func (s *Service) Decrypt(sealed []byte) ([]byte, error) {
	if len(sealed) == 0 {
		return nil, nil
	}
	if !s.Configured() {
		return sealed, nil
	}
	n := s.aead.NonceSize()
	if len(sealed) < n {
		return nil, errors.New("sealed value shorter than nonce")
	}
	return s.aead.Open(nil, sealed[:n], sealed[n:], nil)
}

func (s *Service) EncryptString(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	return s.Encrypt([]byte(value))
}

func (s *Service) DecryptString(sealed []byte) (string, error) {
	plain, err := s.Decrypt(sealed)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// parseKey accepts 64 hex chars, 32 raw bytes, or base64 of 32 bytes.
func parseKey(key string) ([]byte, error) {
	switch {
	case len(key) == 64:
		raw, err := hex.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("DATA_ENCRYPTION_KEY looks hex-encoded but is not valid hex: %w", err)
		}
		return raw, nil
	case len(key) == 32:
		return []byte(key), nil
	default:
		raw, err := base64.StdEncoding.DecodeString(key)
		if err != nil {
			return nil, errors.New("DATA_ENCRYPTION_KEY must be 32 raw bytes, 64 hex chars, or base64 of 32 bytes")
		}
		if len(raw) != 32 {
			return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(raw))
		}
		return raw, nil
	}
}
