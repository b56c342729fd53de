package tts

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	"github.com/d1nch8g/yukitts/logging"
)

const (
	DefaultGoogleVoice = "ar-XA-Standard-A"
	googleChunkSize    = 32 * 1024
)

type GoogleConfig struct {
	CredentialsFile string
}

type GoogleTTSClient struct {
	client *texttospeech.Client
}

var _ Synthesizer = (*GoogleTTSClient)(nil)

// NewGoogleTTSClient uses CredentialsFile when set and Application Default
// Credentials otherwise.
func NewGoogleTTSClient(ctx context.Context, config GoogleConfig) (*GoogleTTSClient, error) {
	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}
	return newGoogleTTSClient(ctx, opts...)
}

func newGoogleTTSClient(ctx context.Context, opts ...option.ClientOption) (*GoogleTTSClient, error) {
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google TTS client: %w", err)
	}
	return &GoogleTTSClient{client: client}, nil
}

func (g *GoogleTTSClient) Name() string {
	return "google"
}

func (g *GoogleTTSClient) SynthesizeToStreamWithContext(ctx context.Context, text string, options SynthesisOptions, audioData chan<- []byte) error {
	req := buildGoogleRequest(text, options)

	logging.Debugf("google tts voice=%s language=%s encoding=%s",
		req.GetVoice().GetName(), req.GetVoice().GetLanguageCode(), req.GetAudioConfig().GetAudioEncoding())

	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return classifyStatus("failed to synthesize speech", err)
	}

	return sendChunks(ctx, resp.GetAudioContent(), googleChunkSize, audioData)
}

// sendChunks forwards content on audioData in slices of at most size bytes.
func sendChunks(ctx context.Context, content []byte, size int, audioData chan<- []byte) error {
	for len(content) > 0 {
		n := min(len(content), size)
		select {
		case audioData <- content[:n]:
		case <-ctx.Done():
			return ctx.Err()
		}
		content = content[n:]
	}
	return nil
}

func buildGoogleRequest(text string, options SynthesisOptions) *texttospeechpb.SynthesizeSpeechRequest {
	voice := options.Voice
	if voice == "" {
		voice = DefaultGoogleVoice
	}
	language := options.Language
	if language == "" {
		language = languageFromVoice(voice)
	}

	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: language,
			Name:         voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   googleEncoding(options.Format),
			SpeakingRate:    options.Speed,
			Pitch:           options.Pitch,
			VolumeGainDb:    options.Volume,
			SampleRateHertz: int32(options.SampleRate),
		},
	}
}

// languageFromVoice extracts the language code from a voice name,
// e.g. "ar-XA-Standard-A" -> "ar-XA".
func languageFromVoice(voice string) string {
	parts := strings.Split(voice, "-")
	if len(parts) >= 2 {
		return parts[0] + "-" + parts[1]
	}
	return "en-US"
}

func googleEncoding(format string) texttospeechpb.AudioEncoding {
	switch format {
	case FormatMP3:
		return texttospeechpb.AudioEncoding_MP3
	case FormatOGG:
		return texttospeechpb.AudioEncoding_OGG_OPUS
	default:
		// LINEAR16 responses carry a WAV header.
		return texttospeechpb.AudioEncoding_LINEAR16
	}
}

func (g *GoogleTTSClient) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
