// Package secretbox cifra campos individuales (aadhaar, land record) con
// AES-256-GCM. Es la primitiva de cifrado reversible que el resto del
// sistema asume provista; la gestión de claves queda fuera de alcance
// (una sola master key de proceso).
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	nonceSize = 12  // AES-GCM 96 bits
	keySize   = 32  // AES-256
	sep       = "|" // base64(nonce)|base64(ciphertext)
)

// Box encierra la clave maestra. Se construye una vez en el wiring de main
// y se inyecta donde haga falta.
type Box struct {
	key []byte
}

// New construye un Box desde una clave base64 (32 bytes decodificados).
// Generar con: openssl rand -base64 32
func New(keyB64 string) (*Box, error) {
	k, err := base64.StdEncoding.DecodeString(strings.TrimSpace(keyB64))
	if err != nil {
		return nil, fmt.Errorf("secretbox: decode key: %w", err)
	}
	if len(k) != keySize {
		return nil, fmt.Errorf("secretbox: key must decode to %d bytes, got %d", keySize, len(k))
	}
	b := &Box{key: make([]byte, keySize)}
	copy(b.key, k)
	return b, nil
}

// NewFromRaw construye un Box desde 32 bytes crudos. Útil en tests.
func NewFromRaw(k []byte) (*Box, error) {
	if len(k) != keySize {
		return nil, fmt.Errorf("secretbox: raw key must be %d bytes, got %d", keySize, len(k))
	}
	b := &Box{key: make([]byte, keySize)}
	copy(b.key, k)
	return b, nil
}

func (b *Box) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(b.key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Encrypt cifra plainText y devuelve base64(nonce)|base64(ciphertext).
func (b *Box) Encrypt(plainText string) (string, error) {
	aead, err := b.gcm()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}
	ct := aead.Seal(nil, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt recibe base64(nonce)|base64(ciphertext) y devuelve el texto plano.
// Cualquier anomalía estructural o de autenticación es error: el caller
// decide si degrada el campo a ausente.
func (b *Box) Decrypt(cipherText string) (string, error) {
	parts := strings.Split(cipherText, sep)
	if len(parts) != 2 {
		return "", errors.New("secretbox: formato inválido, esperado base64(nonce)|base64(ciphertext)")
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(nonce) != nonceSize {
		return "", fmt.Errorf("nonce inválido: %d bytes", len(nonce))
	}
	aead, err := b.gcm()
	if err != nil {
		return "", err
	}
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("gcm auth/decrypt: %w", err)
	}
	return string(pt), nil
}

// BlindIndex devuelve un hash determinístico keyed del valor, para búsqueda
// por igualdad sin descifrar (sha256(key || value), base64url).
func (b *Box) BlindIndex(value string) string {
	h := sha256.New()
	h.Write(b.key)
	h.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
