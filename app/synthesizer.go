package app

import (
	"context"
	"fmt"

	"github.com/d1nch8g/yukitts/config"
	"github.com/d1nch8g/yukitts/tts"
)

// NewSynthesizer builds the model handle for cfg.Backend.
func NewSynthesizer(ctx context.Context, cfg *config.Config) (tts.Synthesizer, error) {
	switch cfg.Backend {
	case config.BackendCoqui:
		return tts.NewCoquiClient(tts.CoquiConfig{
			Binary:  cfg.Coqui.Binary,
			UseCUDA: cfg.Coqui.UseCUDA,
		})
	case config.BackendYandex:
		return tts.NewYandexTTSClient(tts.YandexConfig{
			ApiKey:   cfg.Yandex.APIKey,
			FolderID: cfg.Yandex.FolderID,
			Endpoint: cfg.Yandex.Endpoint,
		})
	case config.BackendGoogle:
		return tts.NewGoogleTTSClient(ctx, tts.GoogleConfig{
			CredentialsFile: cfg.Google.CredentialsFile,
		})
	case config.BackendDashScope:
		return tts.NewDashScopeClient(tts.DashScopeConfig{
			APIKey:    cfg.DashScope.APIKey,
			Endpoint:  cfg.DashScope.Endpoint,
			Workspace: cfg.DashScope.Workspace,
		})
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}
