package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"floorplan/internal/domain"
)

const (
	DefaultBaseURL       = "https://gen.pollinations.ai"
	DefaultModel         = "flux"
	DefaultTimeout       = 10 * time.Minute
	DefaultMaxImageBytes = 32 << 20
	DefaultUserAgent     = "floorplan-api"

	maxErrorBodyBytes = 64 << 10
)

type PollinationsOptions struct {
	BaseURL   string
	APIKey    string
	Model     string
	UserAgent string
	// Timeout bounds a single generation including the body download.
	Timeout       time.Duration
	MaxImageBytes int64
	HTTPClient    *http.Client
	Logger        *zerolog.Logger
}

// PollinationsClient requests images from a Pollinations-style GET endpoint.
// It keeps no state between calls and never retries.
type PollinationsClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	model      string
	userAgent  string
	timeout    time.Duration
	maxBytes   int64
	logger     zerolog.Logger
}

func NewPollinationsClient(opts PollinationsOptions) *PollinationsClient {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxBytes := opts.MaxImageBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &PollinationsClient{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
		model:      model,
		userAgent:  userAgent,
		timeout:    timeout,
		maxBytes:   maxBytes,
		logger:     logger,
	}
}

var _ Requester = (*PollinationsClient)(nil)

// RequestImage downloads the generated image for prompt. Failures are
// returned as *domain.GenerationError.
func (c *PollinationsClient) RequestImage(ctx context.Context, prompt string, opts ImageOptions) (Image, error) {
	if c == nil {
		return Image{}, domain.NewError(domain.KindInternalFailure, "image client not configured")
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.endpoint(prompt, opts), nil)
	if err != nil {
		return Image{}, domain.WrapError(domain.KindInternalFailure, "build image request", err)
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Image{}, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		genErr := classifyFailure(resp)
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("kind", string(genErr.Kind)).
			Dur("elapsed", time.Since(start)).
			Msg("image service returned an error")
		return Image{}, genErr
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return Image{}, c.transportError(ctx, err)
	}
	if int64(len(data)) > c.maxBytes {
		return Image{}, domain.NewError(domain.KindUpstreamFailure,
			fmt.Sprintf("image service returned more than %d bytes", c.maxBytes))
	}
	if len(data) == 0 {
		return Image{}, domain.NewError(domain.KindUpstreamFailure, "image service returned an empty body")
	}

	c.logger.Debug().
		Int("bytes", len(data)).
		Int("seed", opts.Seed).
		Dur("elapsed", time.Since(start)).
		Msg("image received")
	return Image{Data: data, MIME: contentType(resp.Header.Get("Content-Type"), data)}, nil
}

func (c *PollinationsClient) endpoint(prompt string, opts ImageOptions) string {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = c.model
	}
	q := url.Values{}
	if opts.Width > 0 {
		q.Set("width", strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		q.Set("height", strconv.Itoa(opts.Height))
	}
	q.Set("model", model)
	q.Set("seed", strconv.Itoa(opts.Seed))
	q.Set("nologo", "true")
	q.Set("enhance", "true")
	return c.baseURL + "/image/" + url.PathEscape(prompt) + "?" + q.Encode()
}

// transportError classifies a failed round trip. Cancellation by the caller
// wins over any deadline.
func (c *PollinationsClient) transportError(parent context.Context, err error) error {
	if parentErr := parent.Err(); errors.Is(parentErr, context.Canceled) {
		return domain.WrapError(domain.KindUpstreamFailure, "image request cancelled", parentErr)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return domain.WrapError(domain.KindUpstreamTimeout,
			fmt.Sprintf("image generation timed out after %s", c.timeout), err)
	}
	return domain.WrapError(domain.KindUpstreamFailure, "image request failed", err)
}

func classifyFailure(resp *http.Response) *domain.GenerationError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	details := decodeDetails(body)
	message := errorMessage(details)

	estimate := estimatedTime(details)
	if estimate > 0 || strings.Contains(strings.ToLower(string(body)), "loading") {
		msg := "image model is loading, please retry shortly"
		retryAfter := retryAfterHeader(resp.Header.Get("Retry-After"))
		if estimate > 0 {
			secs := int(math.Ceil(estimate))
			msg = fmt.Sprintf("image model is loading, please retry in about %d seconds", secs)
			retryAfter = time.Duration(secs) * time.Second
		}
		genErr := domain.NewError(domain.KindUpstreamLoading, msg).WithDetails(details)
		genErr.RetryAfter = retryAfter
		return genErr
	}

	msg := fmt.Sprintf("image service returned status %d", resp.StatusCode)
	if message != "" {
		msg += ": " + message
	}
	return domain.NewError(domain.KindUpstreamFailure, msg).WithDetails(details)
}

// decodeDetails returns the JSON value of body when it parses, otherwise the
// trimmed text. An empty body has no details.
func decodeDetails(body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err == nil {
		return v
	}
	return string(trimmed)
}

func errorMessage(details any) string {
	obj, ok := details.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"error", "message", "detail"} {
		switch v := obj[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case map[string]any:
			if s, ok := v["message"].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func estimatedTime(details any) float64 {
	obj, ok := details.(map[string]any)
	if !ok {
		return 0
	}
	switch v := obj["estimated_time"].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			return f
		}
	}
	return 0
}

func retryAfterHeader(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func contentType(header string, data []byte) string {
	if header != "" {
		if mediaType, _, err := mime.ParseMediaType(header); err == nil && strings.HasPrefix(mediaType, "image/") {
			return mediaType
		}
	}
	return http.DetectContentType(data)
}
