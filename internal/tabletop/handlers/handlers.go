package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avvvet/tabletop-services/internal/tabletop/models"
	"github.com/avvvet/tabletop-services/internal/tabletop/render"
	"github.com/avvvet/tabletop-services/internal/tabletop/service"
	"github.com/avvvet/tabletop-services/internal/tabletop/store"
	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	catalog     *service.CatalogService
	sessions    *service.SessionService
	recentLimit int
	location    *time.Location
	port        string
}

func NewHandler(catalog *service.CatalogService, sessions *service.SessionService, recentLimit int, port string) *Handler {
	return &Handler{
		catalog:     catalog,
		sessions:    sessions,
		recentLimit: recentLimit,
		location:    time.Local,
		port:        port,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

type addGameRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	MinPlayers  int    `json:"minPlayers"`
	MaxPlayers  int    `json:"maxPlayers"`
	AverageTime int    `json:"averageTime"`
}

type recordSessionRequest struct {
	Game    string   `json:"game"`
	Winner  string   `json:"winner"`
	Players []string `json:"players"`
}

type sweepResult struct {
	Closed int `json:"closed"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Error encoding response: %s", err)
	}
}

// fail maps service errors to responses. ErrEmpty is not a failure: it is
// answered with 200, the empty message and no data.
func (h *Handler) fail(w http.ResponseWriter, err error, empty string) {
	var verr *store.ValidationError
	var nerr *store.NotFoundError

	switch {
	case errors.Is(err, service.ErrEmpty):
		h.CreateResponse(w, Response{Message: empty, Code: http.StatusOK})
	case errors.As(err, &verr):
		h.CreateResponse(w, Response{Message: verr.Reason, Code: http.StatusBadRequest, Error: err.Error()})
	case errors.As(err, &nerr):
		h.CreateResponse(w, Response{Message: nerr.Error(), Code: http.StatusNotFound, Error: err.Error()})
	default:
		log.Errorf("Error handling request: %s", err)
		h.CreateResponse(w, Response{
			Message: "something went wrong, please try again later",
			Code:    http.StatusInternalServerError,
			Error:   "internal error",
		})
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "tabletop service is running at port " + h.port,
		Code:    http.StatusOK,
	})
}

func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.catalog.ListAll()
	if err != nil {
		h.fail(w, err, render.NoGames)
		return
	}
	h.CreateResponse(w, Response{
		Message: render.GameList("Games:", games, render.NoGames),
		Code:    http.StatusOK,
		Data:    games,
	})
}

func (h *Handler) AddGame(w http.ResponseWriter, r *http.Request) {
	var req addGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, &store.ValidationError{Reason: "request body must be a JSON game"}, "")
		return
	}

	game, err := h.catalog.AddGame(r.Context(), req.Name, req.Description, req.Category,
		req.MinPlayers, req.MaxPlayers, req.AverageTime)
	if err != nil {
		h.fail(w, err, "")
		return
	}
	h.CreateResponse(w, Response{
		Message: "Game added:\n" + render.GameDetail(*game),
		Code:    http.StatusCreated,
		Data:    game,
	})
}

func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	game := h.catalog.FindByName(name)
	if game == nil {
		h.fail(w, &store.NotFoundError{Kind: "game", ID: name}, "")
		return
	}
	h.CreateResponse(w, Response{
		Message: render.GameDetail(*game),
		Code:    http.StatusOK,
		Data:    game,
	})
}

func (h *Handler) GamesByCategory(w http.ResponseWriter, r *http.Request) {
	category := pathParam(r, "category")
	h.gameList(w, "Games in "+category+":", h.catalog.FindByCategory(category))
}

func (h *Handler) GamesForPlayers(w http.ResponseWriter, r *http.Request) {
	count, err := strconv.Atoi(chi.URLParam(r, "count"))
	if err != nil || count <= 0 {
		h.fail(w, &store.ValidationError{Reason: "player count must be a positive number"}, "")
		return
	}
	h.gameList(w, "Games for "+strconv.Itoa(count)+" players:", h.catalog.GamesForPlayers(count))
}

func (h *Handler) gameList(w http.ResponseWriter, title string, games []models.Game) {
	rsp := Response{
		Message: render.GameList(title, games, render.NoMatchingGames),
		Code:    http.StatusOK,
	}
	if len(games) > 0 {
		rsp.Data = games
	}
	h.CreateResponse(w, rsp)
}

func (h *Handler) RecentSessions(w http.ResponseWriter, r *http.Request) {
	limit := h.recentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.fail(w, &store.ValidationError{Reason: "limit must be a number"}, "")
			return
		}
		limit = n
	}

	sessions, err := h.sessions.RecentSessions(r.Context(), limit)
	if err != nil {
		h.fail(w, err, render.NoSessions)
		return
	}
	h.CreateResponse(w, Response{
		Message: render.SessionList("Recent sessions:", sessions, h.location, render.NoSessions),
		Code:    http.StatusOK,
		Data:    sessions,
	})
}

// RecordSession stores the session and then runs a sweep. A failed sweep is
// logged; the session itself is already stored.
func (h *Handler) RecordSession(w http.ResponseWriter, r *http.Request) {
	var req recordSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, &store.ValidationError{Reason: "request body must be a JSON session"}, "")
		return
	}

	session, err := h.sessions.RecordSession(r.Context(), req.Game, req.Winner, req.Players)
	if err != nil {
		h.fail(w, err, "")
		return
	}

	if _, err := h.sessions.SweepStatuses(r.Context()); err != nil {
		log.Errorf("Error sweeping after session %s: %s", session.ID, err)
	}

	h.CreateResponse(w, Response{
		Message: "Session recorded:\n" + render.Session(*session, h.location),
		Code:    http.StatusCreated,
		Data:    session,
	})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := service.ParseDate(q.Get("from"))
	if err != nil {
		h.fail(w, err, "")
		return
	}
	to, err := service.ParseDate(q.Get("to"))
	if err != nil {
		h.fail(w, err, "")
		return
	}
	status, err := service.ParseStatus(q.Get("status"))
	if err != nil {
		h.fail(w, err, "")
		return
	}

	sessions, err := h.sessions.History(r.Context(), service.SessionFilter{
		From:     from,
		To:       to,
		GameName: q.Get("game"),
		Status:   status,
		Location: h.location,
	})
	if err != nil {
		h.fail(w, err, render.NoHistory)
		return
	}
	h.CreateResponse(w, Response{
		Message: render.SessionList("Session history:", sessions, h.location, render.NoHistory),
		Code:    http.StatusOK,
		Data:    sessions,
	})
}

func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	closed, err := h.sessions.SweepStatuses(r.Context())
	if err != nil {
		h.fail(w, err, "")
		return
	}
	h.CreateResponse(w, Response{
		Message: strconv.Itoa(closed) + " session(s) closed",
		Code:    http.StatusOK,
		Data:    sweepResult{Closed: closed},
	})
}

func (h *Handler) WinStatistics(w http.ResponseWriter, r *http.Request) {
	game := pathParam(r, "game")
	stats, err := h.sessions.WinStatistics(r.Context(), game)
	if err != nil {
		h.fail(w, err, render.NoStats(game))
		return
	}
	h.CreateResponse(w, Response{
		Message: render.Stats(game, stats),
		Code:    http.StatusOK,
		Data:    stats,
	})
}

// pathParam returns the decoded value of a route parameter. chi matches on
// RawPath when the request has one, and only then is the value still escaped.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}
