// Package handler provides the HTTP handlers for the level server.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"

	"github.com/stevemurr/puzzle-level-server/catalog"
	"github.com/stevemurr/puzzle-level-server/schema"
	"github.com/stevemurr/puzzle-level-server/store"
)

// maxBodyBytes caps highscore request bodies.
const maxBodyBytes = 1 << 16

// Handler holds the server dependencies and registers routes.
type Handler struct {
	catalog *catalog.Catalog
	store   store.Store
	picker  catalog.Picker
	origins []string
	log     *slog.Logger
	router  chi.Router
}

// Option customises a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for request and error logs.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// WithPicker sets the random source used by /random_level.
func WithPicker(p catalog.Picker) Option {
	return func(h *Handler) { h.picker = p }
}

// WithOrigins restricts CORS to the given origins. The default is "*".
func WithOrigins(origins []string) Option {
	return func(h *Handler) { h.origins = origins }
}

// New creates a Handler and wires up all routes.
func New(c *catalog.Catalog, s store.Store, opts ...Option) *Handler {
	h := &Handler{
		catalog: c,
		store:   s,
		picker:  catalog.DefaultPicker,
		origins: []string{"*"},
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.routes()
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(h.requestLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health / status
	r.Get("/", h.root)
	r.Get("/health", h.health)

	// Levels
	r.Get("/levels", h.fetchLevels)
	r.Get("/level/{level:[0-9]+}", h.fetchLevel)
	r.Get("/random_level", h.fetchRandomLevel)

	// Highscores
	r.Post("/highscore/{level:[0-9]+}", h.updateHighscore)
	r.Get("/highscores", h.listHighscores)

	h.router = r
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// levelParam returns the {level} path value. The route pattern only admits
// digits, so ok is false only when the number overflows int.
func levelParam(r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "level"))
	if err != nil {
		return 0, false
	}
	return n, true
}

func writeLevelOverflow(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, fmt.Sprintf("Puzzle %s doesn't exist.", chi.URLParam(r, "level")))
}

func scoreJSON(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "Puzzle Level Server",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	n, err := h.catalog.Count()
	if err != nil {
		h.log.Error("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "levels directory unreadable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "levels": n})
}

// ---------- levels ----------

type levelsResponse struct {
	Count int `json:"aantal_levels"`
}

type levelResponse struct {
	Level     int             `json:"level"`
	Game      json.RawMessage `json:"game"`
	Highscore json.Number     `json:"highscore"`
}

func (h *Handler) fetchLevels(w http.ResponseWriter, r *http.Request) {
	n, err := h.catalog.Count()
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, levelsResponse{Count: n})
}

func (h *Handler) fetchLevel(w http.ResponseWriter, r *http.Request) {
	level, ok := levelParam(r)
	if !ok {
		writeLevelOverflow(w, r)
		return
	}
	h.serveLevel(w, r, level)
}

func (h *Handler) fetchRandomLevel(w http.ResponseWriter, r *http.Request) {
	level, err := h.catalog.Random(h.picker)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.serveLevel(w, r, level)
}

func (h *Handler) serveLevel(w http.ResponseWriter, r *http.Request, level int) {
	game, err := h.catalog.Load(level)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	best, ok, err := h.store.Get(level)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if !ok {
		best = store.NoScore
	}
	writeJSON(w, http.StatusOK, levelResponse{
		Level:     level,
		Game:      game,
		Highscore: scoreJSON(best),
	})
}

// ---------- highscores ----------

func (h *Handler) updateHighscore(w http.ResponseWriter, r *http.Request) {
	level, ok := levelParam(r)
	if !ok {
		writeLevelOverflow(w, r)
		return
	}

	score, err := readScore(w, r)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	u, err := h.store.Submit(level, score)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if !u.Accepted {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.log.Info("highscore updated", "level", level, "old", u.Old.String(), "new", u.New.String())
	writeJSON(w, http.StatusOK, map[string]string{
		"status": fmt.Sprintf("Highscore successfully changed from %s to %s.", u.Old, u.New),
	})
}

// readScore decodes and validates a {"highscore": number} body.
func readScore(w http.ResponseWriter, r *http.Request) (decimal.Decimal, error) {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()

	var body any
	if err := dec.Decode(&body); err != nil {
		return decimal.Decimal{}, badRequest("invalid JSON: " + err.Error())
	}
	if err := dec.Decode(new(any)); err != io.EOF {
		return decimal.Decimal{}, badRequest("malformed body: unexpected data after JSON value")
	}
	obj, isObject := body.(map[string]any)
	if isObject {
		if v, ok := obj["highscore"]; !ok || v == nil {
			return decimal.Decimal{}, badRequest("missing highscore value")
		}
	}
	if err := schema.Validate(schema.HighscoreBody, body); err != nil {
		return decimal.Decimal{}, badRequest("invalid highscore: " + err.Error())
	}

	n, _ := obj["highscore"].(json.Number)
	score, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Decimal{}, badRequest("invalid highscore: " + err.Error())
	}
	return score, nil
}

func (h *Handler) listHighscores(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.All()
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	out := make(map[string]json.Number, len(all))
	for level, d := range all {
		out[strconv.Itoa(level)] = scoreJSON(d)
	}
	writeJSON(w, http.StatusOK, map[string]any{"highscores": out})
}

// ---------- errors ----------

// badRequestError is a client error reported with status 400.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &badRequestError{msg: msg}
}

// writeErr converts an error into a status code and JSON body.
func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var notFound *catalog.LevelNotFoundError
	var bad *badRequestError
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &bad):
		writeError(w, http.StatusBadRequest, bad.Error())
	case errors.Is(err, catalog.ErrNoLevels):
		h.log.Warn("random level requested from empty catalog", "dir", h.catalog.Dir())
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		h.log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", w.Header().Get(requestIDHeader),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
