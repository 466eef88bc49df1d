package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	evterrors "github.com/evidence-toolkit/evidence-toolkit-sub003/internal/errors"
)

// CredentialManager resolves and stores the LLM provider API key.
// Resolution order: environment variable, then OS keychain (the same order
// Load uses), then an interactive prompt. No CLI subcommand constructs it;
// `configure` uses KeyringManager directly.
type CredentialManager struct {
	keyring *KeyringManager
}

func NewCredentialManager() *CredentialManager {
	return &CredentialManager{keyring: NewKeyringManager()}
}

// GetAPIKey resolves the key, prompting interactively if stdin is a
// terminal and no key was found any other way.
func (cm *CredentialManager) GetAPIKey() (string, error) {
	if key := os.Getenv("EVIDENCE_TOOLKIT_API_KEY"); key != "" {
		return key, nil
	}

	if cm.keyring.IsAvailable() {
		if key, err := cm.keyring.GetAPIKey(); err == nil && key != "" {
			return key, nil
		}
	}

	if isInteractive() {
		fmt.Println("No LLM provider API key found.")
		return cm.promptForAPIKey()
	}

	return "", evterrors.ConfigurationError("no API key found; set EVIDENCE_TOOLKIT_API_KEY or run 'evidence-toolkit configure'")
}

func (cm *CredentialManager) promptForAPIKey() (string, error) {
	fmt.Print("Enter API key: ")
	key, err := cm.readSecurely()
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", evterrors.ConfigurationError("API key is required")
	}

	if cm.keyring.IsAvailable() {
		if err := cm.keyring.SaveAPIKey(key); err == nil {
			fmt.Println("saved to OS keychain")
		}
	}

	return key, nil
}

func (cm *CredentialManager) readSecurely() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		bytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func isInteractive() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

// HasCredentials reports whether an API key is resolvable without
// prompting.
func (cm *CredentialManager) HasCredentials() bool {
	if os.Getenv("EVIDENCE_TOOLKIT_API_KEY") != "" {
		return true
	}
	if cm.keyring.IsAvailable() {
		if key, err := cm.keyring.GetAPIKey(); err == nil && key != "" {
			return true
		}
	}
	return false
}
