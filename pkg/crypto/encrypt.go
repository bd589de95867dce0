package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"strings"
)

// Ошибки шифрования
var (
	ErrInvalidKeyLength  = errors.New("encryption key must be exactly 32 bytes for AES-256")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrDecryptionFailed  = errors.New("decryption failed: authentication error")
)

// sealedPrefix отличает зашифрованные значения в БД от открытых
const sealedPrefix = "enc:v1:"

// Box шифрует API ключи и секреты бирж перед записью в БД (AES-256-GCM)
type Box struct {
	aead cipher.AEAD
}

// NewBox создаёт Box из ключа длиной ровно 32 байта
func NewBox(key []byte) (*Box, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Box{aead: gcm}, nil
}

// Seal шифрует строку. Результат: префикс + base64(nonce || ciphertext || tag).
// Пустая строка остаётся пустой.
func (b *Box) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open расшифровывает значение, созданное Seal.
// Значения без префикса возвращаются как есть (записи, сделанные до включения шифрования).
func (b *Box) Open(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	n := b.aead.NonceSize()
	if len(raw) < n+b.aead.Overhead() {
		return "", ErrInvalidCiphertext
	}
	plaintext, err := b.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// IsSealed проверяет, зашифровано ли значение
func IsSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}

// GenerateKey генерирует случайный ключ на 32 байта
func GenerateKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Mask скрывает секрет для вывода в API и логах: "mx0v****4f2a"
func Mask(secret string) string {
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + "****" + secret[len(secret)-4:]
}
