// Package tui is the interactive configure wizard.
package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/scribeflow/scribeflow/internal/config"
	"github.com/scribeflow/scribeflow/internal/provider"
)

// ConfigureResult holds the outcome of the wizard
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// Run walks the user through provider, model, language and delivery
// settings and returns the edited config. The caller persists it.
func Run(cfg *config.Config) (*ConfigureResult, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	clearScreen()
	fmt.Println(StyleHeader.Render("scribeflow configuration"))

	prov := provider.GetProvider(provider.ProviderElevenLabs)

	apiKey := cfg.APIKeyFor(prov.Name())
	keyForm := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("ElevenLabs API Key").
				Description("Used to mint short-lived realtime session tokens").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey).
				Validate(func(s string) error {
					if !prov.ValidateAPIKey(s) {
						return fmt.Errorf("API key cannot be empty")
					}
					return nil
				}),
		),
	).WithTheme(getTheme())
	if err := keyForm.Run(); err != nil {
		return &ConfigureResult{Cancelled: true}, err
	}

	var modelOptions []huh.Option[string]
	for _, m := range prov.Models() {
		modelOptions = append(modelOptions,
			huh.NewOption(fmt.Sprintf("%s (%s)", m.Name, m.Description), m.ID))
	}

	selectedModel := cfg.Transcription.Model
	if selectedModel == "" {
		selectedModel = prov.DefaultModel()
	}
	language := cfg.Transcription.Language
	polishEnabled := cfg.Polish.Enabled
	notifications := cfg.Notifications.Enabled

	settingsForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Transcription Model").
				Options(modelOptions...).
				Value(&selectedModel),
			huh.NewInput().
				Title("Language Code").
				Description("ISO-639-1 code, empty for auto-detect").
				Value(&language),
			huh.NewConfirm().
				Title("Polish transcripts with an LLM?").
				Description("Requires an OpenAI API key").
				Value(&polishEnabled),
			huh.NewConfirm().
				Title("Desktop notifications?").
				Value(&notifications),
		),
	).WithTheme(getTheme())
	if err := settingsForm.Run(); err != nil {
		return &ConfigureResult{Cancelled: true}, err
	}

	if polishEnabled && cfg.APIKeyFor("openai") == "" && cfg.Polish.APIKey == "" {
		openaiKey := ""
		polishForm := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("OpenAI API Key").
					Description("Used only for transcript polish").
					EchoMode(huh.EchoModePassword).
					Value(&openaiKey),
			),
		).WithTheme(getTheme())
		if err := polishForm.Run(); err != nil {
			return &ConfigureResult{Cancelled: true}, err
		}
		if openaiKey != "" {
			cfg.Providers["openai"] = config.ProviderConfig{APIKey: openaiKey}
		} else {
			polishEnabled = false
			fmt.Println(StyleMuted.Render("No OpenAI key given, polish stays disabled"))
		}
	}

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]config.ProviderConfig)
	}
	cfg.Providers[prov.Name()] = config.ProviderConfig{APIKey: apiKey}
	cfg.Transcription.Provider = prov.Name()
	cfg.Transcription.Model = selectedModel
	cfg.Transcription.Language = language
	cfg.Polish.Enabled = polishEnabled
	cfg.Notifications.Enabled = notifications
	if cfg.Notifications.Type == "" {
		cfg.Notifications.Type = "desktop"
	}

	if err := cfg.Validate(); err != nil {
		fmt.Println(StyleError.Render("Invalid configuration: " + err.Error()))
		return &ConfigureResult{Cancelled: true}, err
	}

	fmt.Println(StyleSuccess.Render("Configuration saved"))
	return &ConfigureResult{Config: cfg}, nil
}
