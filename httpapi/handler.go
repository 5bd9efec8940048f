package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	goOIDC "github.com/MrEthical07/goOIDC"
	"github.com/MrEthical07/goOIDC/identity"
	"github.com/MrEthical07/goOIDC/internal/logger"
	"github.com/MrEthical07/goOIDC/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxRequestBytes = 64 << 10

// FlowController is the engine surface the API drives. *goOIDC.Engine
// implements it.
type FlowController interface {
	StartFlow(op, id, deviceUUID string, rememberMe bool) error
	CancelFlow()
	Status() goOIDC.FlowStatus
	StoredCredentials(ctx context.Context) (goOIDC.Credentials, error)
	ForgetCredentials(ctx context.Context) error
}

// Handler serves the login API.
type Handler struct {
	engine  FlowController
	logger  *zap.Logger
	timeout time.Duration
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Op         string `json:"op"`
	ID         string `json:"id"`
	UUID       string `json:"uuid"`
	RememberMe bool   `json:"remember_me"`
}

type credentialsResponse struct {
	User     json.RawMessage `json:"user"`
	HasToken bool            `json:"has_token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New creates a Handler. A nil logger disables request logging.
func New(engine FlowController, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		engine:  engine,
		logger:  log,
		timeout: 10 * time.Second,
	}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r chi.Router) {
	api := chi.NewRouter()
	api.Use(chimw.RequestID)
	api.Use(chimw.Recoverer)
	api.Use(h.requestLogger)
	api.Use(chimw.Timeout(h.timeout))

	api.Post("/login", h.handleLogin)
	api.Post("/cancel", h.handleCancel)
	api.Get("/status", h.handleStatus)
	api.With(middleware.RequireToken(h.engine)).Get("/me", h.handleMe)
	api.Get("/credentials", h.handleGetCredentials)
	api.Delete("/credentials", h.handleForgetCredentials)

	r.Mount("/", api)
}

// Router returns a standalone router serving the API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Op = strings.TrimSpace(req.Op)
	req.ID = strings.TrimSpace(req.ID)
	if req.Op == "" || req.ID == "" {
		writeError(w, http.StatusBadRequest, "op and id are required")
		return
	}

	if err := h.engine.StartFlow(req.Op, req.ID, req.UUID, req.RememberMe); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h.engine.Status())
}

func (h *Handler) handleCancel(w http.ResponseWriter, _ *http.Request) {
	h.engine.CancelFlow()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Status())
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	body, ok := middleware.AuthBodyFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	raw, err := identity.MarshalTransport(body.User)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, raw)
}

func (h *Handler) handleGetCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.engine.StoredCredentials(r.Context())
	if errors.Is(err, goOIDC.ErrNoStoredCredentials) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	user, err := identity.MarshalLocal(creds.User)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, credentialsResponse{User: user, HasToken: creds.AccessToken != ""})
}

func (h *Handler) handleForgetCredentials(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ForgetCredentials(r.Context()); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, goOIDC.ErrEngineClosed) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	h.logger.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", chimw.GetReqID(r.Context())),
		logger.Err(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", chimw.GetReqID(r.Context())),
			logger.Duration(time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, raw)
}

func writeRaw(w http.ResponseWriter, status int, raw []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
