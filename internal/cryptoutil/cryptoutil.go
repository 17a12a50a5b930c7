// Package cryptoutil decrypts model credentials stored by the operator
// backend. Credentials travel as "ivhex:cipherhex" AES-256-CBC payloads
// encrypted under the shared service secret.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeySize is the required secret length for AES-256.
const KeySize = 32

// Decrypt decodes and decrypts an "ivhex:cipherhex" payload with the given
// 32-byte secret.
func Decrypt(payload string, secret []byte) (string, error) {
	if len(secret) != KeySize {
		return "", fmt.Errorf("secret must be %d bytes, got %d", KeySize, len(secret))
	}

	ivHex, dataHex, found := strings.Cut(payload, ":")
	if !found {
		return "", fmt.Errorf("payload is not in iv:ciphertext form")
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", fmt.Errorf("decode iv: %w", err)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", fmt.Errorf("ciphertext length %d is not a positive multiple of the block size", len(data))
	}

	block, err := aes.NewCipher(secret)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}
	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, data)

	plain, err = unpadPKCS7(plain)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// unpadPKCS7 strips and validates PKCS#7 padding.
func unpadPKCS7(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(data) {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-pad], nil
}
