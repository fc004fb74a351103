// Package server exposes the bridge's verification over a small HTTP API,
// for relayers and tooling that want a verdict on a signed message without
// linking the engine.
package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wormhole-demo/core/internal/core"
)

// VerificationRequest carries hex-encoded signed message bytes.
type VerificationRequest struct {
	VAABytes string `json:"vaaBytes"`
}

// VerificationResponse reports the verification outcome and, on success,
// a summary of the decoded message.
type VerificationResponse struct {
	Success        bool   `json:"success"`
	Digest         string `json:"digest,omitempty"`
	EmitterChain   uint16 `json:"emitterChain,omitempty"`
	EmitterAddress string `json:"emitterAddress,omitempty"`
	Sequence       uint64 `json:"sequence,omitempty"`
	PayloadHex     string `json:"payloadHex,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Server serves /verify and /health over HTTP.
type Server struct {
	bridge *core.Bridge
	http   *http.Server
	logger *zap.Logger
}

func New(logger *zap.Logger, bridge *core.Bridge, addr string) *Server {
	s := &Server{
		bridge: bridge,
		logger: logger.With(zap.String("component", "Server")),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/verify", s.handleVerify)
	mux.HandleFunc("/health", s.handleHealth)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("Serving verification API", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req VerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, VerificationResponse{
			Error: "invalid request body",
		})
		return
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(req.VAABytes, "0x"))
	if err != nil {
		s.respond(w, http.StatusBadRequest, VerificationResponse{
			Error: "vaaBytes is not valid hex",
		})
		return
	}

	now := uint32(time.Now().Unix())
	v, err := s.bridge.ParseAndVerifyVAA(raw, now)
	if err != nil {
		s.logger.Debug("Verification rejected", zap.Error(err))
		s.respond(w, http.StatusUnprocessableEntity, VerificationResponse{
			Error: err.Error(),
		})
		return
	}

	digest := v.Digest()
	s.logger.Info("Verified signed message",
		zap.String("messageID", v.MessageID()),
		zap.String("digest", hex.EncodeToString(digest[:])))

	s.respond(w, http.StatusOK, VerificationResponse{
		Success:        true,
		Digest:         hex.EncodeToString(digest[:]),
		EmitterChain:   v.EmitterChain,
		EmitterAddress: v.EmitterAddress.String(),
		Sequence:       v.Sequence,
		PayloadHex:     hex.EncodeToString(v.Payload),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) respond(w http.ResponseWriter, status int, resp VerificationResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}
