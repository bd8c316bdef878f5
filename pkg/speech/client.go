package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"demovoice-server/pkg/config"
	"demovoice-server/pkg/errors"

	"github.com/sirupsen/logrus"
)

const defaultSpeakURL = "https://api.deepgram.com/v1/speak"

// minAudioBytes distinguishes an empty or corrupt stub from real audio;
// responses below it are treated as failures for retry purposes
const minAudioBytes = 100

// probeText is the minimal input used for the connectivity pre-flight check
const probeText = "test"

// Client is a connection-pooled Deepgram text-to-speech client. One client
// is shared across chunks and retry attempts so connection setup is paid once.
type Client struct {
	logger     *logrus.Logger
	apiKey     string
	apiURL     string
	voiceModel string
	encoding   string
	bitRate    int

	httpClient   *http.Client
	probeTimeout time.Duration
}

// NewClient creates a speech synthesis client from configuration
func NewClient(logger *logrus.Logger, cfg config.SpeechConfig) *Client {
	return &Client{
		logger:       logger,
		apiKey:       cfg.APIKey,
		apiURL:       defaultSpeakURL,
		voiceModel:   cfg.VoiceModel,
		encoding:     cfg.Encoding,
		bitRate:      cfg.BitRate,
		httpClient:   newHTTPClient(cfg.ConnectTimeout, cfg.ReadTimeout),
		probeTimeout: cfg.ProbeTimeout,
	}
}

// newHTTPClient creates a pooled HTTP client with explicit connect and read
// timeouts so no synthesis call can block indefinitely
func newHTTPClient(connectTimeout, readTimeout time.Duration) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   readTimeout,
	}
}

// SynthesizeChunk issues one synthesis request and returns the raw audio
// bytes. Failures are classified: timeout, connection, or generic.
func (c *Client) SynthesizeChunk(ctx context.Context, text, voice string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, errors.Wrap(errors.ErrSynthesisFailed, "DEEPGRAM_API_KEY is not set")
	}
	if voice == "" {
		voice = c.voiceModel
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode synthesis request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create synthesis request")
	}

	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	query := req.URL.Query()
	query.Set("model", voice)
	query.Set("encoding", c.encoding)
	query.Set("bit_rate", strconv.Itoa(c.bitRate))
	req.URL.RawQuery = query.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Wrap(errors.ErrSynthesisFailed,
			fmt.Sprintf("speech API error %d: %s", resp.StatusCode, string(respBody)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if len(audio) < minAudioBytes {
		return nil, errors.Wrap(errors.ErrAudioTooSmall,
			fmt.Sprintf("audio response too small: %d bytes", len(audio)))
	}

	return audio, nil
}

// Probe performs a minimal connectivity check against the synthesis API with
// a short timeout. A failed probe signals the caller to fall back to a
// pre-existing audio source instead of committing to a doomed synthesis run.
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	_, err := c.SynthesizeChunk(ctx, probeText, "")
	if err != nil {
		c.logger.WithError(err).Warn("Speech API connectivity probe failed")
		return errors.Wrap(errors.ErrUnavailable, "speech API unreachable")
	}

	c.logger.Debug("Speech API connectivity probe succeeded")
	return nil
}

// classifyTransportError maps a transport-level failure onto the error
// taxonomy used by the retry loop and the HTTP layer
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Wrap(errors.ErrSynthesisTimeout, err.Error())
	}

	msg := err.Error()
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "connection reset") {
		return errors.Wrap(errors.ErrSynthesisTransport, err.Error())
	}

	return errors.Wrap(errors.ErrSynthesisFailed, err.Error())
}
