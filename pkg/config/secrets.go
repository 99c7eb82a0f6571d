package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/scrypt"
)

// Secrets file parameters.
const (
	saltSize = 16
	scryptN  = 32768 // 2^15
	scryptR  = 8
	scryptP  = 1
	keySize  = 32 // AES-256
)

// Environment variable fallbacks per provider.
var providerKeyEnv = map[Provider]string{
	ProviderAnthropic: "ANTHROPIC_API_KEY",
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderGoogle:    "GEMINI_API_KEY",
}

// Secrets holds decrypted provider API keys, keyed by provider name.
type Secrets map[string]string

// APIKey returns the key for the given provider, falling back to the
// provider's conventional environment variable. Ollama needs no key.
func (s Secrets) APIKey(p Provider) string {
	if s != nil {
		if key, ok := s[string(p)]; ok && key != "" {
			return key
		}
	}
	if env, ok := providerKeyEnv[p]; ok {
		return os.Getenv(env)
	}
	return ""
}

func deriveKey(passphrase string, salt []byte) ([]byte, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// SaveSecrets encrypts and writes the secrets map to path.
// File layout: salt || nonce || AES-256-GCM ciphertext.
func SaveSecrets(path, passphrase string, secrets Secrets) error {
	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)

	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	return nil
}

// LoadSecrets reads and decrypts the secrets file at path.
func LoadSecrets(path, passphrase string) (Secrets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}

	if len(data) < saltSize {
		return nil, fmt.Errorf("secrets file too short")
	}
	salt := data[:saltSize]

	key, err := deriveKey(passphrase, salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	rest := data[saltSize:]
	if len(rest) < gcm.NonceSize() {
		return nil, fmt.Errorf("secrets file truncated")
	}
	nonce := rest[:gcm.NonceSize()]
	ciphertext := rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt secrets (wrong passphrase?): %w", err)
	}

	var secrets Secrets
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("failed to parse secrets: %w", err)
	}
	return secrets, nil
}
