package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pion/sdp/v3"
)

// maxSDPBytes caps SDP offers and answers.
const maxSDPBytes = 64 << 10

// WHEPProxy forwards WHEP signaling requests from the browser to the media
// server so the camera stream is reachable through this origin.
type WHEPProxy struct {
	upstream string
	client   *http.Client
	logger   *slog.Logger
}

// NewWHEPProxy creates a proxy for the media server at upstreamURL. A URL
// without a scheme is treated as http. An empty URL leaves the proxy
// unconfigured and every request answers 503.
func NewWHEPProxy(upstreamURL string, timeout time.Duration, logger *slog.Logger) *WHEPProxy {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WHEPProxy{
		upstream: NormalizeUpstreamURL(upstreamURL),
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// NormalizeUpstreamURL prefixes http:// when raw has no scheme and trims
// trailing slashes.
func NormalizeUpstreamURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}
	return strings.TrimRight(raw, "/")
}

// ServeHTTP proxies a WHEP offer to {upstream}/camera/whep.
// POST /api/v1/camera/whep
func (p *WHEPProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p.upstream == "" {
		writeError(w, http.StatusServiceUnavailable, "Camera stream is not configured")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSDPBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read SDP offer")
		return
	}
	if err := validateOffer(body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid SDP offer: "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), p.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.upstream+"/camera/whep", bytes.NewReader(body))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build upstream request")
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("whep upstream unreachable", "upstream", p.upstream, "error", err)
		writeError(w, http.StatusBadGateway, "Camera stream unavailable")
		return
	}
	defer resp.Body.Close()

	answer, err := io.ReadAll(io.LimitReader(resp.Body, maxSDPBytes))
	if err != nil {
		p.logger.Warn("whep upstream read failed", "upstream", p.upstream, "error", err)
		writeError(w, http.StatusBadGateway, "Camera stream unavailable")
		return
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	// The media server's session URL is not reachable by the browser; point
	// it back at the path the offer came in on.
	if resp.Header.Get("Location") != "" {
		w.Header().Set("Location", r.URL.Path)
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(answer)
}

// validateOffer checks that body parses as SDP and offers at least one
// media section.
func validateOffer(body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return errors.New("empty body")
	}
	var desc sdp.SessionDescription
	if err := desc.UnmarshalString(string(body)); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if len(desc.MediaDescriptions) == 0 {
		return errors.New("no media sections")
	}
	return nil
}
