package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"shipmate/internal/config"
	"shipmate/internal/domain"
)

const codeDigits = 6

// CodeVault generates and checks delivery codes. The plaintext code is
// never persisted: verification goes through an HMAC-SHA256 of salt+code
// under a process-wide secret, and redisplay to the sender goes through
// an independent AES-GCM encryption. Compromise of one secret does not
// break the other path.
type CodeVault struct {
	hmacSecret []byte
	aesKey     []byte
	ttl        time.Duration
}

// NewCodeVault creates a vault from configuration. The AES key must be
// base64-encoded 16, 24 or 32 bytes.
func NewCodeVault(cfg config.DeliveryConfig) (*CodeVault, error) {
	if cfg.HMACSecret == "" {
		return nil, fmt.Errorf("delivery hmac secret not configured")
	}
	key, err := base64.StdEncoding.DecodeString(cfg.AESKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("decode delivery aes key: %w", err)
	}
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("delivery aes key must be 16, 24 or 32 bytes, got %d", len(key))
	}
	return &CodeVault{
		hmacSecret: []byte(cfg.HMACSecret),
		aesKey:     key,
		ttl:        cfg.CodeTTL,
	}, nil
}

// Generate produces a fresh six-digit code and its stored form. The
// returned plaintext exists only to be handed to the sender.
func (v *CodeVault) Generate(now time.Time) (string, domain.DeliveryCode, error) {
	code, err := randomCode()
	if err != nil {
		return "", domain.DeliveryCode{}, fmt.Errorf("generate code: %w", err)
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", domain.DeliveryCode{}, fmt.Errorf("generate salt: %w", err)
	}
	saltB64 := base64.StdEncoding.EncodeToString(salt)

	enc, iv, err := v.encrypt(code)
	if err != nil {
		return "", domain.DeliveryCode{}, err
	}

	stored := domain.DeliveryCode{
		Hash:      v.hash(saltB64, code),
		Salt:      saltB64,
		Enc:       enc,
		IV:        iv,
		CreatedAt: now,
	}
	return code, stored, nil
}

// Matches checks a candidate code against the stored hash in constant time.
func (v *CodeVault) Matches(stored domain.DeliveryCode, code string) bool {
	expected := []byte(stored.Hash)
	actual := []byte(v.hash(stored.Salt, code))
	return subtle.ConstantTimeCompare(expected, actual) == 1
}

// Decrypt recovers the plaintext code for redisplay to the sender.
func (v *CodeVault) Decrypt(stored domain.DeliveryCode) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(stored.Enc)
	if err != nil {
		return "", fmt.Errorf("decode code ciphertext: %w", err)
	}
	iv, err := base64.StdEncoding.DecodeString(stored.IV)
	if err != nil {
		return "", fmt.Errorf("decode code iv: %w", err)
	}

	block, err := aes.NewCipher(v.aesKey)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("init gcm: %w", err)
	}
	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt code: %w", err)
	}
	return string(plaintext), nil
}

// ExpiresAt returns the moment a stored code stops being accepted.
func (v *CodeVault) ExpiresAt(stored domain.DeliveryCode) time.Time {
	return stored.CreatedAt.Add(v.ttl)
}

// Expired reports whether a stored code has passed its TTL.
func (v *CodeVault) Expired(stored domain.DeliveryCode, now time.Time) bool {
	if stored.CreatedAt.IsZero() {
		return false
	}
	return now.Sub(stored.CreatedAt) > v.ttl
}

// ValidFormat reports whether a submitted code is exactly six digits.
func ValidFormat(code string) bool {
	if len(code) != codeDigits {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (v *CodeVault) hash(salt, code string) string {
	mac := hmac.New(sha256.New, v.hmacSecret)
	mac.Write([]byte(salt))
	mac.Write([]byte(code))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (v *CodeVault) encrypt(code string) (enc, iv string, err error) {
	block, err := aes.NewCipher(v.aesKey)
	if err != nil {
		return "", "", fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", "", fmt.Errorf("init gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(code), nil)
	return base64.StdEncoding.EncodeToString(ciphertext),
		base64.StdEncoding.EncodeToString(nonce), nil
}

// randomCode draws six digits from crypto/rand, preserving leading zeros.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
