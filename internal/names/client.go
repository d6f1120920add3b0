package names

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const genericFailure = "Failed to fetch names. Please try again."

// RequestFailedError reports a failed call to the name service. StatusCode is
// zero when the request never produced a usable HTTP response.
type RequestFailedError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestFailedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("names: request failed with status %d", e.StatusCode)
	}
	return "names: " + e.Message
}

func (e *RequestFailedError) Unwrap() error { return e.Err }

func IsRequestFailed(err error) bool {
	var rf *RequestFailedError
	return errors.As(err, &rf)
}

type generateReq struct {
	Message string `json:"message"`
}

type Client struct {
	Endpoint string
	Client   *http.Client
	log      zerolog.Logger
}

func NewClient(endpoint string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
		log:      logger.With().Str("component", "names").Logger(),
	}
}

// GenerateNames posts prompt to the name service and returns the suggested
// names, possibly none.
func (c *Client) GenerateNames(ctx context.Context, prompt string) ([]string, error) {
	if c.Client == nil {
		return nil, &RequestFailedError{Message: genericFailure, Err: errors.New("http client is nil")}
	}

	b, err := json.Marshal(generateReq{Message: prompt})
	if err != nil {
		return nil, &RequestFailedError{Message: genericFailure, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, &RequestFailedError{Message: genericFailure, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		c.log.Error().Err(err).Msg("api error")
		return nil, &RequestFailedError{Message: genericFailure, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error().Int("status", resp.StatusCode).Msg("api error")
		return nil, &RequestFailedError{StatusCode: resp.StatusCode, Message: genericFailure}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestFailedError{Message: genericFailure, Err: err}
	}

	decoded, err := DecodeResponse(body)
	if err != nil {
		c.log.Error().Err(err).Msg("api error: response is not json")
		return nil, &RequestFailedError{Message: genericFailure, Err: err}
	}
	if decoded.Kind == KindUnrecognized {
		c.log.Warn().RawJSON("response", bytes.TrimSpace(body)).Msg("unexpected api response format")
	}
	return decoded.Names, nil
}
