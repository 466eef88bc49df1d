package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "evidence-toolkit"

	// KeyringAPIKeyItem is the key for the LLM provider API key
	KeyringAPIKeyItem = "llm-api-key"
)

// KeyringManager handles secure credential storage in OS keychain
type KeyringManager struct {
	logger *slog.Logger
}

// NewKeyringManager creates a new keyring manager
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{
		logger: slog.Default().With("component", "keyring"),
	}
}

// SaveAPIKey stores the LLM provider API key securely in the OS keychain:
// macOS Keychain Access, Windows Credential Manager, or Linux Secret
// Service (requires libsecret).
func (km *KeyringManager) SaveAPIKey(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("api key cannot be empty")
	}

	if err := keyring.Set(KeyringService, KeyringAPIKeyItem, apiKey); err != nil {
		km.logger.Error("failed to save API key to keychain", "error", err)
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}

	km.logger.Info("api key saved to keychain", "service", KeyringService)
	return nil
}

// GetAPIKey retrieves the API key from the OS keychain.
func (km *KeyringManager) GetAPIKey() (string, error) {
	apiKey, err := keyring.Get(KeyringService, KeyringAPIKeyItem)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		km.logger.Error("failed to get API key from keychain", "error", err)
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}

	km.logger.Debug("api key retrieved from keychain")
	return apiKey, nil
}

// DeleteAPIKey removes the API key from the OS keychain.
func (km *KeyringManager) DeleteAPIKey() error {
	err := keyring.Delete(KeyringService, KeyringAPIKeyItem)
	if err == keyring.ErrNotFound {
		return nil
	}
	if err != nil {
		km.logger.Error("failed to delete API key from keychain", "error", err)
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}

	km.logger.Info("api key deleted from keychain")
	return nil
}

// IsAvailable checks if the OS keychain is reachable. Returns false on
// headless systems (CI) where no keychain backend is present.
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "test-availability")
	if err == keyring.ErrNotFound {
		return true
	}
	if err != nil {
		km.logger.Debug("keychain not available", "error", err)
		return false
	}
	return true
}

// KeySourceInfo describes where the resolved API key came from; the
// `configure` CLI subcommand prints its Recommended text.
type KeySourceInfo struct {
	Source      string // "env", "keychain", "none"
	Secure      bool
	Recommended string
}

// GetAPIKeySource determines where the active API key is coming from.
func (km *KeyringManager) GetAPIKeySource() KeySourceInfo {
	if os.Getenv("EVIDENCE_TOOLKIT_API_KEY") != "" {
		return KeySourceInfo{Source: "env", Secure: true, Recommended: "using environment variable"}
	}

	keychainKey, _ := km.GetAPIKey()
	if keychainKey != "" {
		return KeySourceInfo{Source: "keychain", Secure: true, Recommended: "stored securely in OS keychain"}
	}

	return KeySourceInfo{Source: "none", Secure: false, Recommended: "no API key configured; run 'evidence-toolkit configure'"}
}

// MaskAPIKey masks an API key for display: first 7 and last 4 characters.
func MaskAPIKey(apiKey string) string {
	if apiKey == "" {
		return "(not set)"
	}
	if len(apiKey) < 12 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", apiKey[:7], apiKey[len(apiKey)-4:])
}
