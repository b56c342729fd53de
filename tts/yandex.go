package tts

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"

	tts "github.com/yandex-cloud/go-genproto/yandex/cloud/ai/tts/v3"
)

const (
	YandexTTSEndpoint = "tts.api.cloud.yandex.net:443"
)

type YandexConfig struct {
	ApiKey   string
	FolderID string
	Endpoint string
}

type YandexTTSClient struct {
	client   tts.SynthesizerClient
	conn     *grpc.ClientConn
	apiKey   string
	folderID string
}

// Ensure YandexTTSClient implements Synthesizer interface
var _ Synthesizer = (*YandexTTSClient)(nil)

func GetDefaultYandexOptions() SynthesisOptions {
	return SynthesisOptions{
		Voice:  "marina",
		Speed:  1.0,
		Volume: 0.0,
		Model:  "general",
		Format: FormatWAV,
	}
}

func NewYandexTTSClient(config YandexConfig) (*YandexTTSClient, error) {
	if strings.TrimSpace(config.ApiKey) == "" {
		return nil, fmt.Errorf("%w: yandex api key is required", ErrAuth)
	}

	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = YandexTTSEndpoint
	}

	creds := credentials.NewTLS(&tls.Config{})
	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to TTS service: %w", err)
	}
	return newYandexTTSClient(conn, config), nil
}

// newYandexTTSClient takes ownership of conn.
func newYandexTTSClient(conn *grpc.ClientConn, config YandexConfig) *YandexTTSClient {
	return &YandexTTSClient{
		client:   tts.NewSynthesizerClient(conn),
		conn:     conn,
		apiKey:   config.ApiKey,
		folderID: config.FolderID,
	}
}

func (c *YandexTTSClient) Name() string {
	return "yandex"
}

func (c *YandexTTSClient) SynthesizeToStreamWithContext(ctx context.Context, text string, options SynthesisOptions, audioData chan<- []byte) error {
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Api-Key "+c.apiKey)
	if c.folderID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "x-folder-id", c.folderID)
	}

	req := buildYandexRequest(text, options)

	stream, err := c.client.UtteranceSynthesis(ctx, req)
	if err != nil {
		return classifyStatus("failed to start synthesis", err)
	}

	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return classifyStatus("failed to receive audio data", err)
		}

		if audioChunk := resp.GetAudioChunk(); audioChunk != nil && len(audioChunk.GetData()) > 0 {
			select {
			case audioData <- audioChunk.GetData():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func buildYandexRequest(text string, options SynthesisOptions) *tts.UtteranceSynthesisRequest {
	defaults := GetDefaultYandexOptions()
	if options.Model == "" {
		options.Model = defaults.Model
	}
	if options.Voice == "" {
		options.Voice = defaults.Voice
	}
	if options.Speed == 0 {
		options.Speed = defaults.Speed
	}

	req := &tts.UtteranceSynthesisRequest{}
	req.SetModel(options.Model)
	req.SetText(text)

	voiceHint := &tts.Hints{}
	voiceHint.SetVoice(options.Voice)

	speedHint := &tts.Hints{}
	speedHint.SetSpeed(options.Speed)

	hints := []*tts.Hints{voiceHint, speedHint}
	if options.Volume != 0 {
		volumeHint := &tts.Hints{}
		volumeHint.SetVolume(options.Volume)
		hints = append(hints, volumeHint)
	}
	req.SetHints(hints)

	containerAudio := &tts.ContainerAudio{}
	containerAudio.SetContainerAudioType(yandexContainer(options.Format))
	audioSpec := &tts.AudioFormatOptions{}
	audioSpec.SetContainerAudio(containerAudio)
	req.SetOutputAudioSpec(audioSpec)

	req.SetLoudnessNormalizationType(tts.UtteranceSynthesisRequest_LUFS)
	return req
}

func yandexContainer(format string) tts.ContainerAudio_ContainerAudioType {
	switch format {
	case FormatMP3:
		return tts.ContainerAudio_MP3
	case FormatOGG:
		return tts.ContainerAudio_OGG_OPUS
	default:
		return tts.ContainerAudio_WAV
	}
}

func (c *YandexTTSClient) Close() error {
	return c.conn.Close()
}
