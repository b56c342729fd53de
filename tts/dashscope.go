package tts

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/d1nch8g/yukitts/logging"
)

const (
	DefaultDashScopeEndpoint = "wss://dashscope.aliyuncs.com/api-ws/v1/inference"
	DefaultDashScopeModel    = "cosyvoice-v3-flash"
	DefaultDashScopeVoice    = "longanyang"
)

type DashScopeConfig struct {
	APIKey    string
	Endpoint  string
	Workspace string
}

// DashScopeClient speaks the DashScope duplex websocket protocol. Each
// synthesis opens its own connection and sends the whole text as one
// continue-task.
type DashScopeClient struct {
	cfg    DashScopeConfig
	dialer *websocket.Dialer
}

var _ Synthesizer = (*DashScopeClient)(nil)

func NewDashScopeClient(config DashScopeConfig) (*DashScopeClient, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("%w: DASHSCOPE_API_KEY is required", ErrAuth)
	}
	if strings.TrimSpace(config.Endpoint) == "" {
		config.Endpoint = DefaultDashScopeEndpoint
	}
	return &DashScopeClient{cfg: config, dialer: websocket.DefaultDialer}, nil
}

func (d *DashScopeClient) Name() string {
	return "dashscope"
}

func (d *DashScopeClient) SynthesizeToStreamWithContext(ctx context.Context, text string, options SynthesisOptions, audioData chan<- []byte) error {
	conn, _, err := d.dialer.DialContext(ctx, d.cfg.Endpoint, d.header())
	if err != nil {
		return fmt.Errorf("%w: failed to connect to dashscope: %v", ErrTransient, err)
	}
	defer conn.Close()

	// Unblock ReadMessage when the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	taskID := newTaskID()
	if err := conn.WriteJSON(runTask(taskID, options)); err != nil {
		return d.wrapConnErr(ctx, "send run-task", err)
	}

	started := false
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return d.wrapConnErr(ctx, "read event", err)
		}

		if messageType == websocket.BinaryMessage {
			select {
			case audioData <- data:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var event eventMessage
		if err := json.Unmarshal(data, &event); err != nil {
			return fmt.Errorf("failed to decode dashscope event: %w", err)
		}

		switch event.Header.Event {
		case "task-started":
			if started {
				continue
			}
			started = true
			if err := conn.WriteJSON(continueTask(taskID, text)); err != nil {
				return d.wrapConnErr(ctx, "send continue-task", err)
			}
			if err := conn.WriteJSON(finishTask(taskID)); err != nil {
				return d.wrapConnErr(ctx, "send finish-task", err)
			}
		case "task-finished":
			return nil
		case "task-failed":
			logging.Errorf("dashscope task failed: code=%s, message=%s", event.Header.ErrorCode, event.Header.ErrorMessage)
			return classifyTaskFailure(event.Header.ErrorCode, event.Header.ErrorMessage)
		}
	}
}

func (d *DashScopeClient) header() http.Header {
	header := http.Header{}
	header.Set("Authorization", "bearer "+d.cfg.APIKey)
	header.Set("X-DashScope-DataInspection", "enable")
	if ws := strings.TrimSpace(d.cfg.Workspace); ws != "" {
		header.Set("X-DashScope-WorkSpace", ws)
	}
	return header
}

func (d *DashScopeClient) wrapConnErr(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, websocket.ErrCloseSent) || websocket.IsUnexpectedCloseError(err) {
		return fmt.Errorf("%w: %s: %v", ErrTransient, op, err)
	}
	return fmt.Errorf("dashscope %s: %w", op, err)
}

func (d *DashScopeClient) Close() error {
	return nil
}

func runTask(taskID string, options SynthesisOptions) taskMessage {
	model := options.Model
	if model == "" {
		model = DefaultDashScopeModel
	}
	voice := options.Voice
	if voice == "" {
		voice = DefaultDashScopeVoice
	}
	format := options.Format
	if format == "" {
		format = FormatWAV
	}
	sampleRate := options.SampleRate
	if sampleRate == 0 {
		sampleRate = 22050
	}
	rate := options.Speed
	if rate == 0 {
		rate = 1
	}
	pitch := options.Pitch
	if pitch == 0 {
		pitch = 1
	}
	volume := dashScopeVolume(options.Volume)

	return taskMessage{
		Header: taskHeader{Action: "run-task", TaskID: taskID, Streaming: "duplex"},
		Payload: taskPayload{
			TaskGroup: "audio",
			Task:      "tts",
			Function:  "SpeechSynthesizer",
			Model:     model,
			Parameters: map[string]any{
				"text_type":   "PlainText",
				"voice":       voice,
				"format":      format,
				"sample_rate": sampleRate,
				"volume":      volume,
				"rate":        rate,
				"pitch":       pitch,
			},
			Input: map[string]any{},
		},
	}
}

// dashScopeVolume converts the volume option to DashScope's 0-100 scale.
// Zero selects the service default of 50.
func dashScopeVolume(volume float64) int {
	if volume == 0 {
		return 50
	}
	return int(math.Round(min(max(volume, 0), 100)))
}

func continueTask(taskID, text string) taskMessage {
	return taskMessage{
		Header:  taskHeader{Action: "continue-task", TaskID: taskID, Streaming: "duplex"},
		Payload: taskPayload{Input: map[string]any{"text": text}},
	}
}

func finishTask(taskID string) taskMessage {
	return taskMessage{
		Header:  taskHeader{Action: "finish-task", TaskID: taskID, Streaming: "duplex"},
		Payload: taskPayload{Input: map[string]any{}},
	}
}

type taskMessage struct {
	Header  taskHeader  `json:"header"`
	Payload taskPayload `json:"payload"`
}

type taskHeader struct {
	Action       string `json:"action,omitempty"`
	TaskID       string `json:"task_id,omitempty"`
	Streaming    string `json:"streaming,omitempty"`
	Event        string `json:"event,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type taskPayload struct {
	TaskGroup  string         `json:"task_group,omitempty"`
	Task       string         `json:"task,omitempty"`
	Function   string         `json:"function,omitempty"`
	Model      string         `json:"model,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Input      map[string]any `json:"input"`
}

type eventMessage struct {
	Header taskHeader `json:"header"`
}

func newTaskID() string {
	var bytes [16]byte
	if _, err := rand.Read(bytes[:]); err != nil {
		return "fallback-task-id"
	}
	return hex.EncodeToString(bytes[:])
}
