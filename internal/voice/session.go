// README: Streaming speech recognition, one Session per recording.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const SampleRateHertz = 16000

var (
	ErrNotStarted     = errors.New("voice: session not started")
	ErrAlreadyStarted = errors.New("voice: session already started")
)

// Transcript is one recognition result. Interim results are replaced by later ones
// until Final is set.
type Transcript struct {
	Text      string  `json:"text"`
	Final     bool    `json:"final"`
	Stability float32 `json:"stability,omitempty"`
}

// Handlers receive results on the session's receiver goroutine.
type Handlers struct {
	OnResult func(Transcript)
	OnError  func(error)
}

type Config struct {
	LanguageCode string
	Interim      bool
}

// OpenFunc opens a bidirectional recognition stream.
type OpenFunc func(ctx context.Context) (speechpb.Speech_StreamingRecognizeClient, error)

// Recognizer creates sessions that share one speech client.
type Recognizer struct {
	open   OpenFunc
	cfg    Config
	logger *zap.Logger
}

// NewClient builds a Google Speech client, using credentialsFile when set and
// application default credentials otherwise.
func NewClient(ctx context.Context, credentialsFile string) (*speech.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing speech client: %w", err)
	}
	return client, nil
}

func NewRecognizer(client *speech.Client, cfg Config, logger *zap.Logger) *Recognizer {
	return NewRecognizerFunc(func(ctx context.Context) (speechpb.Speech_StreamingRecognizeClient, error) {
		return client.StreamingRecognize(ctx)
	}, cfg, logger)
}

func NewRecognizerFunc(open OpenFunc, cfg Config, logger *zap.Logger) *Recognizer {
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "zh-CN"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recognizer{open: open, cfg: cfg, logger: logger}
}

func (r *Recognizer) NewSession(h Handlers) *Session {
	return &Session{rec: r, handlers: h}
}

// Session is a single recording. Start, then Write audio, then Stop.
type Session struct {
	rec      *Recognizer
	handlers Handlers

	mu     sync.Mutex
	stream speechpb.Speech_StreamingRecognizeClient
	cancel context.CancelFunc
	done   chan struct{}
}

// Start opens the stream and sends the recognition config.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	stream, err := s.rec.open(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("voice: open stream: %w", err)
	}
	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz:            SampleRateHertz,
					AudioChannelCount:          1,
					LanguageCode:               s.rec.cfg.LanguageCode,
					EnableAutomaticPunctuation: true,
				},
				InterimResults: s.rec.cfg.Interim,
			},
		},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("voice: send config: %w", err)
	}

	s.stream, s.cancel = stream, cancel
	s.done = make(chan struct{})
	go s.receive(ctx, stream, s.done)
	s.rec.logger.Debug("speech session started", zap.String("language", s.rec.cfg.LanguageCode))
	return nil
}

// Write sends a chunk of LINEAR16 mono PCM audio.
func (s *Session) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return ErrNotStarted
	}
	if len(pcm) == 0 {
		return nil
	}
	return s.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{AudioContent: pcm},
	})
}

// Stop half-closes the stream and waits for the remaining results.
// Calling Stop on a session that is not running is a no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	stream, cancel, done := s.stream, s.cancel, s.done
	s.stream, s.cancel, s.done = nil, nil, nil
	s.mu.Unlock()
	if stream == nil {
		return nil
	}

	err := stream.CloseSend()
	<-done
	cancel()
	s.rec.logger.Debug("speech session stopped")
	return err
}

func (s *Session) receive(ctx context.Context, stream speechpb.Speech_StreamingRecognizeClient, done chan struct{}) {
	defer close(done)
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				s.fail(fmt.Errorf("voice: receive: %w", err))
			}
			return
		}
		if st := resp.GetError(); st != nil && st.GetCode() != 0 {
			s.fail(fmt.Errorf("voice: recognition failed: %s", st.GetMessage()))
			return
		}
		for _, result := range resp.GetResults() {
			alts := result.GetAlternatives()
			if len(alts) == 0 || s.handlers.OnResult == nil {
				continue
			}
			s.handlers.OnResult(Transcript{
				Text:      alts[0].GetTranscript(),
				Final:     result.GetIsFinal(),
				Stability: result.GetStability(),
			})
		}
	}
}

func (s *Session) fail(err error) {
	s.rec.logger.Warn("speech session error", zap.Error(err))
	if s.handlers.OnError != nil {
		s.handlers.OnError(err)
	}
}
