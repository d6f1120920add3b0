package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Path is where the proxy is mounted.
const Path = "/api/generate/names"

const maxBodyBytes = 1 << 20

// Handler relays name requests to a fixed backend origin so browsers never
// talk to it directly.
type Handler struct {
	BackendURL string
	Client     *http.Client
	log        zerolog.Logger
}

func New(backendURL string, timeout time.Duration, logger zerolog.Logger) *Handler {
	return &Handler{
		BackendURL: backendURL,
		Client:     &http.Client{Timeout: timeout},
		log:        logger.With().Str("component", "proxy").Logger(),
	}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.POST(Path, h.Forward)
	r.OPTIONS(Path, h.Preflight)
}

func (h *Handler) Preflight(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type")
	c.AbortWithStatus(http.StatusNoContent)
}

// Forward re-encodes the incoming JSON body (empty means {}), posts it to the
// backend and relays status, content type and body as received.
func (h *Handler) Forward(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")

	payload, err := readPayload(c.Request.Body)
	if err != nil {
		h.fail(c, err)
		return
	}

	status, contentType, body, err := h.relay(c.Request.Context(), payload)
	if err != nil {
		h.fail(c, err)
		return
	}
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(status, contentType, body)
}

func readPayload(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("parse body: %w", err)
	}
	return buf.Bytes(), nil
}

func (h *Handler) relay(ctx context.Context, payload []byte) (int, string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BackendURL, bytes.NewReader(payload))
	if err != nil {
		return 0, "", nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return 0, "", nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", nil, fmt.Errorf("read backend response: %w", err)
	}
	return resp.StatusCode, resp.Header.Get("Content-Type"), body, nil
}

func (h *Handler) fail(c *gin.Context, err error) {
	h.log.Error().Err(err).Str("backend", h.BackendURL).Msg("proxy failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error":   "Proxy failed",
		"details": err.Error(),
	})
}
