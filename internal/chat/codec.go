package chat

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// IDCodec кодирует идентификаторы пользователей для внешнего чат-провайдера
type IDCodec interface {
	Encode(userID string) (string, error)
	Decode(token string) (string, error)
}

// AESCodec детерминированно шифрует id: AES-CBC с нулевым IV, ключ sha256(secret).
// Это обфускация для непрозрачного внешнего идентификатора, а не защита данных:
// одинаковый id всегда дает одинаковый результат.
type AESCodec struct {
	block cipher.Block
}

var _ IDCodec = (*AESCodec)(nil)

// NewAESCodec создает кодек из секрета
func NewAESCodec(secret string) (*AESCodec, error) {
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}
	return &AESCodec{block: block}, nil
}

// Encode шифрует id и кодирует в URL-safe base64 без padding
func (c *AESCodec) Encode(userID string) (string, error) {
	padded := pkcs7Pad([]byte(userID), aes.BlockSize)
	out := make([]byte, len(padded))

	iv := make([]byte, aes.BlockSize)
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out, padded)

	return strings.TrimRight(base64.URLEncoding.EncodeToString(out), "="), nil
}

// Decode восстанавливает padding, расшифровывает и снимает PKCS7
func (c *AESCodec) Decode(token string) (string, error) {
	if rem := len(token) % 4; rem != 0 {
		token += strings.Repeat("=", 4-rem)
	}

	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("failed to decode user id: %w", err)
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", errors.New("encoded user id has invalid length")
	}

	out := make([]byte, len(data))
	iv := make([]byte, aes.BlockSize)
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(out, data)

	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty data")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
