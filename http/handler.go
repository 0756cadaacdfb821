package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/picshed/picshed"
)

// Service is the gallery surface the handler drives.
type Service interface {
	Upload(ctx context.Context, req picshed.UploadRequest, content io.Reader) (picshed.ImageRecord, error)
	List(ctx context.Context, ownerID string) ([]picshed.GalleryEntry, error)
	Delete(ctx context.Context, ownerID string, ref picshed.ImageRef) error
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HandlerConfig struct {
	// Verifier checks opaque tokens at login and on bearer-authenticated
	// API requests.
	Verifier picshed.TokenVerifier
	// SessionSecret signs the session cookie.
	SessionSecret string
	// SessionMaxAge is the cookie lifetime in seconds.
	SessionMaxAge int
	// MaxUploadBytes caps the request body on the upload route.
	MaxUploadBytes int64
	// Media optionally serves stored blobs (filesystem backend) under /media/.
	Media http.Handler
	CORS  CORSConfig
}

// Handler provides the HTTP handlers for the gallery web application.
type Handler struct {
	config   HandlerConfig
	service  Service
	sessions *sessions.CookieStore
}

// NewHandler creates a Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	store := sessions.NewCookieStore([]byte(config.SessionSecret))
	maxAge := config.SessionMaxAge
	if maxAge <= 0 {
		maxAge = 86400
	}
	store.MaxAge(maxAge)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.SameSite = http.SameSiteLaxMode

	return &Handler{
		config:   *config,
		service:  service,
		sessions: store,
	}
}

// Router returns the configured http.Handler. Session lifecycle routes are
// open; the gallery routes require an authenticated owner and are
// rate-limited per client IP and endpoint.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	if h.config.Media != nil {
		r.Handle("/media/*", h.config.Media)
	}

	r.Get("/", h.handleIndex)
	r.Get("/index", h.handleIndex)

	r.Post("/login", h.handleLogin)
	r.Post("/verify_token", h.handleVerifyToken)
	r.Get("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireOwner)
		r.Use(httprate.Limit(
			30,
			1*time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		))
		r.Post("/upload", h.handleUpload)
		r.Post("/delete_image", h.handleDeleteImage)
		r.Get("/user_images", h.handleUserImages)
		r.Get("/get_user_images", h.handleGetUserImages)
	})

	return r
}

// tokenFromRequest accepts a token as a form field or a JSON body, whichever
// the client sends.
func tokenFromRequest(r *http.Request) string {
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return ""
		}
		return body.Token
	}
	return r.FormValue("token")
}

func (h *Handler) verifyAndStartSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.config.Verifier == nil {
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return "", false
	}

	token := tokenFromRequest(r)
	ownerID, err := h.config.Verifier.Verify(r.Context(), token)
	if err != nil {
		HandleError(w, err)
		return "", false
	}

	if err := h.startSession(w, r, ownerID); err != nil {
		HandleError(w, err)
		return "", false
	}

	return ownerID, true
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.verifyAndStartSession(w, r); !ok {
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.verifyAndStartSession(w, r)
	if !ok {
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{"owner_id": ownerID})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.endSession(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	owner, loggedIn := h.ownerFromSession(r)

	data := indexData{LoggedIn: loggedIn, Owner: owner}
	if loggedIn {
		entries, err := h.service.List(r.Context(), owner)
		if err != nil {
			HandleError(w, err)
			return
		}
		data.Entries = entries
	}

	h.renderIndex(w, data)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())

	// Reject an oversize declaration before reading the body, then cap the
	// body itself for clients that lie about Content-Length.
	if h.config.MaxUploadBytes > 0 {
		if r.ContentLength > h.config.MaxUploadBytes {
			WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Upload exceeds the size limit")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		HandleError(w, err)
		return
	}
	defer func() { _ = file.Close() }()

	req := picshed.UploadRequest{
		OwnerID:      owner,
		Filename:     header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		DeclaredSize: header.Size,
	}

	rec, err := h.service.Upload(r.Context(), req, file)
	if err != nil {
		HandleError(w, err)
		return
	}

	if wantsJSON(r) {
		_ = WriteJSON(w, http.StatusCreated, rec)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// deleteParams carries the image reference for delete_image, from either a
// JSON body or form fields.
type deleteParams struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

func (h *Handler) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())

	var params deleteParams
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_reference", "Malformed request body")
			return
		}
	} else {
		params.ID = r.FormValue("id")
		params.URL = r.FormValue("url")
		params.Filename = r.FormValue("filename")
	}

	var ref picshed.ImageRef
	if params.ID != "" {
		id, err := uuid.Parse(params.ID)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_reference", "Malformed image id")
			return
		}
		ref.ID = id
	}
	ref.URL = params.URL
	ref.Filename = params.Filename

	if err := h.service.Delete(r.Context(), owner, ref); err != nil {
		HandleError(w, err)
		return
	}

	if wantsJSON(r) {
		_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) handleUserImages(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())

	entries, err := h.service.List(r.Context(), owner)
	if err != nil {
		HandleError(w, err)
		return
	}

	h.renderIndex(w, indexData{LoggedIn: true, Owner: owner, Entries: entries})
}

func (h *Handler) handleGetUserImages(w http.ResponseWriter, r *http.Request) {
	owner, _ := OwnerFromContext(r.Context())

	entries, err := h.service.List(r.Context(), owner)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"owner_id": owner,
		"images":   entries,
	})
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
