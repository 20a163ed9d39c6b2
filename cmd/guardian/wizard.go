package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"guardian/internal/config"

	"github.com/spf13/cobra"
)

func wizardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wizard",
		Short: "Interactive setup: chat service → voice → history → save config",
		Long:  "Guides you through the chat service endpoint (and API key), voice support, and session history. Writes config to the path used by --config or default.",
		RunE:  runWizard,
	}
}

func runWizard(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		cfg = config.Defaults()
	}

	reader := bufio.NewReader(os.Stdin)
	prompt := func(def string) (string, error) {
		if def != "" {
			fmt.Fprintf(os.Stdout, " [%s]: ", def)
		} else {
			fmt.Fprint(os.Stdout, ": ")
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		s := strings.TrimSpace(line)
		if s == "" && def != "" {
			return def, nil
		}
		return s, nil
	}

	// Step 1: Chat service
	fmt.Println("\n--- Step 1: Chat service ---")
	fmt.Fprint(os.Stdout, "Service base URL")
	baseURL, err := prompt(cfg.Service.BaseURL)
	if err != nil {
		return err
	}
	cfg.Service.BaseURL = baseURL

	fmt.Fprint(os.Stdout, "API key (empty to skip, or ${ENV_VAR} to read from environment)")
	apiKey, err := prompt(cfg.Service.APIKey)
	if err != nil {
		return err
	}
	cfg.Service.APIKey = apiKey

	// Step 2: Voice
	fmt.Println("\n--- Step 2: Voice ---")
	fmt.Fprint(os.Stdout, "Enable voice capture and speech playback? (y/n)")
	def := "y"
	if !cfg.Voice.Enabled {
		def = "n"
	}
	voiceAns, err := prompt(def)
	if err != nil {
		return err
	}
	cfg.Voice.Enabled = voiceAns == "y" || voiceAns == "yes"
	if cfg.Voice.Enabled {
		fmt.Fprint(os.Stdout, "Voice profile directory")
		dir, err := prompt(cfg.Voice.ProfileDir)
		if err != nil {
			return err
		}
		cfg.Voice.ProfileDir = dir
		if err := os.MkdirAll(config.ExpandPath(dir), 0o755); err != nil {
			return fmt.Errorf("create profile directory: %w", err)
		}
	}

	// Step 3: Session
	fmt.Println("\n--- Step 3: Session ---")
	fmt.Fprint(os.Stdout, "Minutes of inactivity before the session summary fires")
	idle, err := prompt(strconv.Itoa(cfg.Session.IdleMinutes))
	if err != nil {
		return err
	}
	if n, err := strconv.Atoi(idle); err == nil && n > 0 {
		cfg.Session.IdleMinutes = n
	}

	fmt.Fprint(os.Stdout, "Archive finished sessions locally? (y/n)")
	def = "y"
	if !cfg.History.Enabled {
		def = "n"
	}
	histAns, err := prompt(def)
	if err != nil {
		return err
	}
	cfg.History.Enabled = histAns == "y" || histAns == "yes"

	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Printf("\nConfiguration saved to %s\n", cfgPath)
	fmt.Println("Run 'guardian doctor' to verify the setup, then 'guardian chat' to start.")
	return nil
}
