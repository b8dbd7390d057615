package transcriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/tsuyaku/internal/transcriber"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const speechAPIEndpointPort = 443

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Location        string
	Model           string
}

type CloudSpeechTranscriber struct {
	projectID       string
	credentialsJSON string
	location        string
	model           string
}

func NewCloudSpeechTranscriber(cfg CloudSpeechConfig) transcriber.Transcriber {
	return &CloudSpeechTranscriber{
		projectID:       cfg.ProjectID,
		credentialsJSON: cfg.CredentialsJSON,
		location:        strings.TrimSpace(cfg.Location),
		model:           strings.TrimSpace(cfg.Model),
	}
}

func (t *CloudSpeechTranscriber) StartStream(ctx context.Context, sessionID string, cfg transcriber.StreamConfig) (transcriber.Stream, error) {
	slog.Info("starting cloud speech streaming", "session_id", sessionID, "location", t.location, "language", cfg.LanguageCode, "model", t.model, "sample_rate", cfg.SampleRateHertz, "channels", cfg.ChannelCount)

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(t.credentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}

	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if t.location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", t.location, speechAPIEndpointPort)))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create speech client: %w", transcriber.ErrTransport, err)
	}
	rpc, err := client.StreamingRecognize(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: open streaming recognize: %w", transcriber.ErrTransport, err)
	}
	if err := rpc.Send(t.configRequest(cfg)); err != nil {
		_ = rpc.CloseSend()
		_ = client.Close()
		return nil, fmt.Errorf("%w: send streaming config: %w", transcriber.ErrTransport, err)
	}
	slog.Info("cloud speech stream initialized", "session_id", sessionID)

	return newRecognizeStream(rpc, channelIDs(cfg.ChannelCount), client.Close, time.Now), nil
}

func (t *CloudSpeechTranscriber) configRequest(cfg transcriber.StreamConfig) *speechpb.StreamingRecognizeRequest {
	features := &speechpb.RecognitionFeatures{}
	if cfg.ChannelCount > 1 {
		features.MultiChannelMode = speechpb.RecognitionFeatures_SEPARATE_RECOGNITION_PER_CHANNEL
	}
	return &speechpb.StreamingRecognizeRequest{
		Recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", t.projectID, t.location),
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Model:         t.model,
					LanguageCodes: []string{cfg.LanguageCode},
					DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
						ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
							Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
							SampleRateHertz:   int32(cfg.SampleRateHertz),
							AudioChannelCount: int32(cfg.ChannelCount),
						},
					},
					Features: features,
				},
				StreamingFeatures: &speechpb.StreamingRecognitionFeatures{InterimResults: true},
			},
		},
	}
}

// channelIDs mirrors the service's channel tags: 0 for single-channel audio,
// 1..N with separate recognition per channel.
func channelIDs(count int) []string {
	if count <= 1 {
		return []string{"0"}
	}
	ids := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		ids = append(ids, strconv.Itoa(i))
	}
	return ids
}

type recognizeStream struct {
	rpc      speechpb.Speech_StreamingRecognizeClient
	channels []string
	closeFn  func() error
	now      func() time.Time

	sendMu  sync.Mutex
	sendErr error
	endSent atomic.Bool

	pending []transcriber.Event
	recvErr error

	closeOnce sync.Once
	closeErr  error
}

func newRecognizeStream(rpc speechpb.Speech_StreamingRecognizeClient, channels []string, closeFn func() error, now func() time.Time) *recognizeStream {
	return &recognizeStream{rpc: rpc, channels: channels, closeFn: closeFn, now: now}
}

func (s *recognizeStream) Send(pcm []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.endSent.Load() {
		return fmt.Errorf("%w: audio sent after end of input", transcriber.ErrStreamProtocol)
	}
	if s.sendErr != nil {
		return s.sendErr
	}
	req := &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_Audio{
			Audio: pcm,
		},
	}
	if err := s.rpc.Send(req); err != nil {
		s.sendErr = classifyStreamError("send audio", err)
		return s.sendErr
	}
	return nil
}

func (s *recognizeStream) CloseSend() error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.endSent.Swap(true) {
		return nil
	}
	if err := s.rpc.CloseSend(); err != nil {
		return classifyStreamError("close send", err)
	}
	return nil
}

func (s *recognizeStream) Recv() (transcriber.Event, error) {
	for {
		if len(s.pending) > 0 {
			ev := s.pending[0]
			s.pending = s.pending[1:]
			return ev, nil
		}
		if s.recvErr != nil {
			return transcriber.Event{}, s.recvErr
		}
		resp, err := s.rpc.Recv()
		if err != nil {
			s.recvErr = s.recvError(err)
			continue
		}
		s.pending = append(s.pending, toEvents(resp, s.now())...)
	}
}

func (s *recognizeStream) recvError(err error) error {
	if errors.Is(err, io.EOF) {
		if !s.endSent.Load() {
			return fmt.Errorf("%w: service closed the stream before end of input", transcriber.ErrStreamProtocol)
		}
		return io.EOF
	}
	return classifyStreamError("receive", err)
}

func (s *recognizeStream) Channels() []string {
	return s.channels
}

func (s *recognizeStream) Close() error {
	s.closeOnce.Do(func() {
		_ = s.CloseSend()
		s.closeErr = s.closeFn()
	})
	return s.closeErr
}

func classifyStreamError(op string, err error) error {
	if errors.Is(err, context.Canceled) || status.Code(err) == codes.Canceled {
		return fmt.Errorf("%s: %w", op, context.Canceled)
	}
	return fmt.Errorf("%w: %s: %w", transcriber.ErrTransport, op, err)
}

// toEvents maps one response to events. A response without results still
// yields one empty event so that every service message is accounted for.
func toEvents(resp *speechpb.StreamingRecognizeResponse, receivedAt time.Time) []transcriber.Event {
	results := resp.GetResults()
	if len(results) == 0 {
		return []transcriber.Event{{State: transcriber.StatePartial, ReceivedAt: receivedAt}}
	}
	events := make([]transcriber.Event, 0, len(results))
	for _, result := range results {
		alts := make([]transcriber.Alternative, 0, len(result.GetAlternatives()))
		for _, alt := range result.GetAlternatives() {
			alts = append(alts, transcriber.Alternative{Transcript: alt.GetTranscript(), Confidence: alt.GetConfidence()})
		}
		state := transcriber.StatePartial
		if result.GetIsFinal() {
			state = transcriber.StateFinal
		}
		events = append(events, transcriber.Event{
			Alternatives: alts,
			ChannelID:    strconv.Itoa(int(result.GetChannelTag())),
			State:        state,
			ReceivedAt:   receivedAt,
		})
	}
	return events
}
