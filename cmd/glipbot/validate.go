package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/keepmind9/glipbot/internal/core"
	"github.com/spf13/cobra"
)

var (
	validateConfigPath string
	validateJSON       bool
)

// ValidationResult represents the validation result
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Config   string   `json:"config"`
	Server   string   `json:"server,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate glipbot configuration file",
	Long: `Validate the glipbot configuration file without starting the relay.

This command checks:
  - YAML syntax
  - Required identity credentials
  - Message and reconnect settings
  - Logging configuration

Exit codes:
  0 - Configuration is valid
  1 - Configuration has errors`,
	Run: func(cmd *cobra.Command, args []string) {
		// Get config file path
		configFile := validateConfigPath
		if configFile == "" {
			// Try default locations
			for _, loc := range []string{
				"config.yaml",
				filepath.Join(os.Getenv("HOME"), ".config/glipbot/config.yaml"),
				"/etc/glipbot/config.yaml",
			} {
				if _, err := os.Stat(loc); err == nil {
					configFile = loc
					break
				}
			}
		}

		result := ValidationResult{Config: configFile}
		if configFile == "" {
			result.Errors = append(result.Errors, "no configuration file found")
		} else {
			config, err := core.LoadConfig(configFile)
			if err != nil {
				result.Errors = append(result.Errors, err.Error())
			} else {
				result.Valid = true
				result.Server = config.Identity.Server
				if config.Identity.Extension == "" {
					result.Warnings = append(result.Warnings, "identity.extension is empty; the account's default extension will be used")
				}
			}
		}

		if validateJSON {
			output, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				fmt.Printf("{\"error\": \"failed to marshal json: %v\"}\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		} else {
			if result.Valid {
				fmt.Printf("Configuration %s is valid\n", result.Config)
				fmt.Printf("  Server: %s\n", result.Server)
			} else {
				fmt.Printf("Configuration %s is invalid:\n", result.Config)
				for _, e := range result.Errors {
					fmt.Printf("  error: %s\n", e)
				}
			}
			for _, w := range result.Warnings {
				fmt.Printf("  warning: %s\n", w)
			}
		}

		if !result.Valid {
			os.Exit(1)
		}
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfigPath, "config", "c", "", "Path to configuration file")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output in JSON format")
}
