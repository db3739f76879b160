package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/cephinstaller/envstep/internal/artifact"
	"github.com/cephinstaller/envstep/internal/config"
	"github.com/cephinstaller/envstep/internal/discovery"
	"github.com/cephinstaller/envstep/internal/environment"
)

// newSource builds the artifact source selected by the settings. The returned
// name describes the source in headers and on the wizard screen.
func newSource(ctx context.Context, s *config.Settings) (environment.Source, string, error) {
	switch s.Backend {
	case config.BackendLocal:
		return artifact.NewLocalSource(s.Local.ListCommand), "local filesystem", nil

	case config.BackendHTTP:
		return newServiceClient(s.Service.URL, s.Service), s.Service.URL, nil

	case config.BackendS3:
		src, err := artifact.NewS3Source(ctx, artifact.S3Options{
			Bucket:    s.S3.Bucket,
			Endpoint:  s.S3.Endpoint,
			Region:    s.S3.Region,
			AccessKey: s.S3.AccessKey,
			SecretKey: s.S3.SecretKey,
			PathStyle: s.S3.PathStyle,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to create s3 source: %w", err)
		}
		return src, "s3://" + s.S3.Bucket, nil

	default:
		return nil, "", fmt.Errorf("unknown backend %q", s.Backend)
	}
}

// newServiceClient creates an install service client from the service settings
func newServiceClient(baseURL string, s config.ServiceSettings) *artifact.Client {
	client := artifact.NewClient(baseURL)
	if s.Timeout > 0 {
		client.SetTimeout(s.Timeout)
	}
	if s.Username != "" {
		client.SetAuth(s.Username, s.Password)
	}
	client.SetRetry(s.MaxRetries, artifact.DefaultRetryDelay)
	client.CacheDuration = s.CacheTTL
	return client
}

// connectService is the wizard's ConnectFunc: it checks a discovered service
// answers before the step screen opens.
func connectService(ctx context.Context, s config.ServiceSettings) func(*discovery.Service) (environment.Source, error) {
	return func(svc *discovery.Service) (environment.Source, error) {
		client := newServiceClient(svc.BaseURL(), s)
		if err := client.Ping(ctx); err != nil {
			return nil, err
		}
		return client, nil
	}
}

// recordingSource remembers the last collaborator failure so commands can
// show troubleshooting hints for it. The step itself only keeps the
// user-facing message.
type recordingSource struct {
	environment.Source

	mu      sync.Mutex
	lastErr error
}

func (r *recordingSource) ListDirectory(ctx context.Context, path string) (string, error) {
	out, err := r.Source.ListDirectory(ctx, path)
	r.record(err)
	return out, err
}

func (r *recordingSource) ReadContents(ctx context.Context, path string) (string, error) {
	out, err := r.Source.ReadContents(ctx, path)
	r.record(err)
	return out, err
}

func (r *recordingSource) record(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
}

// LastError returns the most recent collaborator failure, if any
func (r *recordingSource) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// encode renders v as indented JSON or YAML
func encode(v interface{}, format string) (string, error) {
	switch format {
	case environment.FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(data) + "\n", nil
	case environment.FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown format %q (valid: %s, %s)", format, environment.FormatJSON, environment.FormatYAML)
	}
}
