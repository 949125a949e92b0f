// Package assemblyai provides a transcriber adapter using the AssemblyAI
// REST API with speaker diarization enabled.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/verbatim-labs/verbatim-cli/internal/core/domain"
	"github.com/verbatim-labs/verbatim-cli/internal/core/ports/driven"
)

// Ensure Transcriber implements the interface.
var _ driven.Transcriber = (*Transcriber)(nil)

// Default configuration values.
const (
	DefaultBaseURL      = "https://api.assemblyai.com/v2"
	DefaultPollInterval = 3 * time.Second
	DefaultTimeout      = 30 * time.Second
)

// Config holds configuration for the AssemblyAI transcriber.
type Config struct {
	// APIKey is the AssemblyAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.assemblyai.com/v2).
	BaseURL string

	// PollInterval is how often job status is checked (default: 3s).
	PollInterval time.Duration

	// Timeout is the per-request timeout for submit and poll calls.
	// The overall job duration is bounded by the caller's context.
	Timeout time.Duration
}

// Transcriber converts audio files to diarized transcripts via AssemblyAI.
type Transcriber struct {
	client       *http.Client
	baseURL      string
	apiKey       string
	pollInterval time.Duration
}

// submitRequest is the transcript submission format.
type submitRequest struct {
	AudioURL      string `json:"audio_url"`
	SpeakerLabels bool   `json:"speaker_labels"`
}

// transcriptResponse is the transcript job status format.
type transcriptResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Utterances []struct {
		Speaker string `json:"speaker"`
		Start   int64  `json:"start"`
		End     int64  `json:"end"`
		Text    string `json:"text"`
	} `json:"utterances"`
}

// uploadResponse is the local file upload format.
type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

// NewTranscriber creates a new AssemblyAI transcriber.
func NewTranscriber(cfg Config) (*Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("assemblyai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Transcriber{
		client:       &http.Client{Timeout: cfg.Timeout},
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		pollInterval: cfg.PollInterval,
	}, nil
}

// Transcribe submits the audio at the given URI with speaker labels enabled
// and polls until the job completes. Local file paths are uploaded first;
// http(s) URIs are submitted as-is.
func (t *Transcriber) Transcribe(ctx context.Context, audioURI string) (*domain.RawTranscript, error) {
	audioURL := audioURI
	if !isRemote(audioURI) {
		uploaded, err := t.upload(ctx, audioURI)
		if err != nil {
			return nil, err
		}
		audioURL = uploaded
	}

	jobID, err := t.submit(ctx, audioURL)
	if err != nil {
		return nil, err
	}

	for {
		job, err := t.pollOnce(ctx, jobID)
		if err != nil {
			return nil, err
		}

		switch job.Status {
		case "completed":
			return t.toRawTranscript(audioURI, job), nil
		case "error":
			return nil, fmt.Errorf("assemblyai: transcription failed: %s", job.Error)
		}

		select {
		case <-ctx.Done():
			return nil, wrapContextErr(ctx.Err())
		case <-time.After(t.pollInterval):
		}
	}
}

// upload streams a local audio file to AssemblyAI and returns its URL.
func (t *Transcriber) upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("assemblyai: opening audio file: %w", err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/upload", f)
	if err != nil {
		return "", fmt.Errorf("assemblyai: create upload request: %w", err)
	}
	req.Header.Set("Authorization", t.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("assemblyai: upload failed: %w", wrapContextErr(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("assemblyai: upload returned status %d: %s", resp.StatusCode, string(body))
	}

	var upResp uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&upResp); err != nil {
		return "", fmt.Errorf("assemblyai: decode upload response: %w", err)
	}
	if upResp.UploadURL == "" {
		return "", fmt.Errorf("assemblyai: upload returned no URL")
	}
	return upResp.UploadURL, nil
}

// submit creates a transcript job and returns its ID.
func (t *Transcriber) submit(ctx context.Context, audioURL string) (string, error) {
	jsonBody, err := json.Marshal(submitRequest{AudioURL: audioURL, SpeakerLabels: true})
	if err != nil {
		return "", fmt.Errorf("assemblyai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/transcript", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("assemblyai: create submit request: %w", err)
	}
	req.Header.Set("Authorization", t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("assemblyai: submit failed: %w", wrapContextErr(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("assemblyai: submit returned status %d: %s", resp.StatusCode, string(body))
	}

	var job transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return "", fmt.Errorf("assemblyai: decode submit response: %w", err)
	}
	if job.ID == "" {
		return "", fmt.Errorf("assemblyai: submit returned no job ID")
	}
	return job.ID, nil
}

// pollOnce fetches the current job status.
func (t *Transcriber) pollOnce(ctx context.Context, jobID string) (*transcriptResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/transcript/"+jobID, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("assemblyai: create poll request: %w", err)
	}
	req.Header.Set("Authorization", t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assemblyai: poll failed: %w", wrapContextErr(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("assemblyai: poll returned status %d: %s", resp.StatusCode, string(body))
	}

	var job transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("assemblyai: decode poll response: %w", err)
	}
	return &job, nil
}

// toRawTranscript converts a completed job into the domain carrier.
// Diarization labels arrive as bare letters ("A", "B") and are prefixed to
// the display form used throughout the pipeline.
func (t *Transcriber) toRawTranscript(audioURI string, job *transcriptResponse) *domain.RawTranscript {
	raw := &domain.RawTranscript{
		AudioURI: audioURI,
		Segments: make([]domain.RawSegment, 0, len(job.Utterances)),
	}
	for _, u := range job.Utterances {
		speaker := u.Speaker
		if speaker != "" {
			speaker = "Speaker " + speaker
		}
		raw.Segments = append(raw.Segments, domain.RawSegment{
			Speaker: speaker,
			StartMS: u.Start,
			EndMS:   u.End,
			Text:    u.Text,
		})
	}
	return raw
}

// Ping validates the API key with a lightweight request.
func (t *Transcriber) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/transcript?limit=1", http.NoBody)
	if err != nil {
		return fmt.Errorf("assemblyai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("assemblyai: ping failed: %w", wrapContextErr(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("assemblyai: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// isRemote reports whether the URI already points at fetchable audio.
func isRemote(uri string) bool {
	return len(uri) > 8 && (uri[:7] == "http://" || uri[:8] == "https://")
}

// wrapContextErr maps a deadline expiry onto the domain timeout sentinel.
func wrapContextErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return err
}
