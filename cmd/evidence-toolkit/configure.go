package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactive setup wizard (with OS keychain support)",
	Long: `Walk through evidence-toolkit configuration step by step.

This will configure:
1. LLM provider API key (stored in OS keychain by default)
2. Model selection
3. Case defaults (storage root, case type)`,
	RunE: runConfigure,
}

func runConfigure(cmd *cobra.Command, args []string) error {
	fmt.Println("evidence-toolkit configuration wizard")
	fmt.Println("--------------------------------------")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	homeDir, _ := os.UserHomeDir()
	configPath := filepath.Join(homeDir, ".evidence-toolkit", "config.yaml")
	loadedCfg, err := config.Load(configPath)
	if err != nil {
		loadedCfg = config.Default()
	}

	km := config.NewKeyringManager()
	keychainAvailable := km.IsAvailable()
	if !keychainAvailable {
		fmt.Println("OS keychain not available (headless system or Linux without libsecret).")
		fmt.Println("A new API key cannot be stored; set EVIDENCE_TOOLKIT_API_KEY instead.")
		fmt.Println()
	}

	fmt.Println("Step 1/3: LLM provider API key")
	fmt.Println()

	sourceInfo := km.GetAPIKeySource()
	fmt.Printf("Current source: %s\n", sourceInfo.Recommended)
	fmt.Print("Enter a new API key, or press Enter to keep the current one: ")

	response, _ := reader.ReadString('\n')
	apiKey := strings.TrimSpace(response)

	if apiKey != "" {
		if keychainAvailable {
			if err := km.SaveAPIKey(apiKey); err != nil {
				fmt.Printf("Failed to save to keychain: %v\n", err)
				fmt.Println("API key not stored. Set EVIDENCE_TOOLKIT_API_KEY instead.")
			} else {
				fmt.Printf("API key saved to OS keychain (%s)\n", keychainLocation())
			}
		} else {
			fmt.Println("API key not stored: the config file never holds the API key. Set EVIDENCE_TOOLKIT_API_KEY instead.")
		}
	}

	fmt.Println()
	fmt.Println("Step 2/3: Model selection")
	fmt.Printf("Current text model: %s\n", loadedCfg.Core.ModelId)
	fmt.Print("Model id (press Enter to keep current): ")
	response, _ = reader.ReadString('\n')
	if model := strings.TrimSpace(response); model != "" {
		loadedCfg.Core.ModelId = model
	}

	fmt.Println()
	fmt.Println("Step 3/3: Case defaults")
	fmt.Printf("Current storage root: %s\n", loadedCfg.Core.StorageRoot)
	fmt.Print("Storage root (press Enter to keep current): ")
	response, _ = reader.ReadString('\n')
	if root := strings.TrimSpace(response); root != "" {
		loadedCfg.Core.StorageRoot = root
	}

	fmt.Printf("Current case type: %s\n", loadedCfg.Core.CaseType)
	fmt.Print("Case type (generic/workplace/employment/contract, press Enter to keep current): ")
	response, _ = reader.ReadString('\n')
	if caseType := strings.TrimSpace(response); caseType != "" {
		loadedCfg.Core.CaseType = caseType
	}

	if err := loadedCfg.Save(configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Println()
	fmt.Printf("Configuration saved to %s\n", configPath)
	return nil
}

func keychainLocation() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS Keychain Access -> evidence-toolkit"
	case "windows":
		return "Windows Credential Manager -> evidence-toolkit"
	case "linux":
		return "Linux Secret Service (libsecret)"
	default:
		return "OS keychain"
	}
}
