package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/tambola-live-platform/internal/engine/game"
	"github.com/radieske/tambola-live-platform/internal/engine/prize"
	"github.com/radieske/tambola-live-platform/internal/game-service/coordinator"
	"github.com/radieske/tambola-live-platform/internal/game-service/dto"
	"github.com/radieske/tambola-live-platform/internal/game-service/repo"
)

// Scheduler liga e desliga a chamada automática de um jogo (caller.Caller).
type Scheduler interface {
	Begin(g game.Game) error
	Stop(gameID string)
}

type Server struct {
	log   *zap.Logger
	coord *coordinator.Coordinator
	calls Scheduler // opcional

	OnRequest func(route string, status int) // métricas
}

func NewServer(log *zap.Logger, c *coordinator.Coordinator, calls Scheduler) *Server {
	return &Server{log: log, coord: c, calls: calls}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Route("/v1/games", func(r chi.Router) {
		r.Post("/", s.createGame)
		r.Get("/", s.listGames)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getGame)
			r.Patch("/settings", s.updateSettings)

			r.Post("/start", s.changeStatus(s.coord.Start))
			r.Post("/pause", s.changeStatus(s.coord.Pause))
			r.Post("/resume", s.changeStatus(s.coord.Resume))
			r.Post("/end", s.changeStatus(s.coord.End))

			r.Post("/call", s.callNumber)
			r.Get("/board", s.board)

			r.Get("/tickets", s.ticketBoard)
			r.Get("/tickets/{number}", s.getTicket)
			r.Post("/bookings", s.book)
			r.Patch("/bookings/{bookingID}", s.updatePlayer)
			r.Get("/players/{name}/tickets", s.playerTickets)

			r.Get("/winners", s.winners)
			r.Post("/evaluate", s.evaluate)
			r.Get("/sheets", s.sheets)
		})
	})
	return r
}

func (s *Server) createGame(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateGameRequest
	if !s.decode(w, r, &req) {
		return
	}
	g, err := s.coord.CreateGame(r.Context(), coordinator.NewGame{
		HostID:     req.HostID,
		HostPhone:  req.HostPhone,
		MaxTickets: req.MaxTickets,
		CallDelay:  time.Duration(req.NumberCallingDelay) * time.Second,
		TicketSet:  req.TicketSet,
		Prizes:     req.SelectedPrizes,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.NewGameResponse(g))
}

// listGames aceita ?status=active,paused
func (s *Server) listGames(w http.ResponseWriter, r *http.Request) {
	var statuses []game.Status
	if q := r.URL.Query().Get("status"); q != "" {
		for _, v := range strings.Split(q, ",") {
			statuses = append(statuses, game.Status(strings.TrimSpace(v)))
		}
	}
	games, err := s.coord.ListGames(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewGameList(games))
}

func (s *Server) getGame(w http.ResponseWriter, r *http.Request) {
	v, err := s.coord.GameView(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateSettingsRequest
	if !s.decode(w, r, &req) {
		return
	}
	upd := coordinator.SettingsUpdate{
		TicketSet:  req.TicketSet,
		Prizes:     req.SelectedPrizes,
		MaxTickets: req.MaxTickets,
	}
	if req.NumberCallingDelay != nil {
		d := time.Duration(*req.NumberCallingDelay) * time.Second
		upd.CallDelay = &d
	}
	g, err := s.coord.UpdateSettings(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// novo intervalo vale a partir do próximo tick
	if g.Status == game.StatusActive {
		s.schedule(g)
	}
	writeJSON(w, http.StatusOK, dto.NewGameResponse(g))
}

func (s *Server) changeStatus(fn func(context.Context, string) (game.Game, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := fn(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		if g.Status == game.StatusActive {
			s.schedule(g)
		} else if s.calls != nil {
			s.calls.Stop(g.ID)
		}
		writeJSON(w, http.StatusOK, dto.NewGameResponse(g))
	}
}

// callNumber é a chamada manual do host.
func (s *Server) callNumber(w http.ResponseWriter, r *http.Request) {
	g, err := s.coord.CallNext(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, coordinator.Board{
		GameID:        g.ID,
		Status:        g.Status,
		NumbersCalled: g.NumbersCalled,
		CurrentNumber: g.CurrentNumber,
	})
}

func (s *Server) board(w http.ResponseWriter, r *http.Request) {
	b, err := s.coord.Board(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) ticketBoard(w http.ResponseWriter, r *http.Request) {
	list, err := s.coord.TicketBoard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getTicket(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ticket number must be an integer"})
		return
	}
	t, err := s.coord.Ticket(r.Context(), chi.URLParam(r, "id"), n)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ticket": t, "grid": t.Grid()})
}

func (s *Server) book(w http.ResponseWriter, r *http.Request) {
	var req dto.BookTicketsRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.coord.Book(r.Context(), chi.URLParam(r, "id"), coordinator.BookingRequest{
		PlayerName:    req.PlayerName,
		PlayerPhone:   req.PlayerPhone,
		TicketNumbers: req.TicketNumbers,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	// nenhum bilhete livre
	if len(res.Booked) == 0 {
		writeJSON(w, http.StatusConflict, res)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) updatePlayer(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdatePlayerRequest
	if !s.decode(w, r, &req) {
		return
	}
	b, err := s.coord.CorrectPlayer(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "bookingID"), req.PlayerName, req.PlayerPhone)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) playerTickets(w http.ResponseWriter, r *http.Request) {
	list, err := s.coord.PlayerTickets(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) winners(w http.ResponseWriter, r *http.Request) {
	list, err := s.coord.Winners(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// evaluate força uma rodada do detector (o worker já faz isso a cada número).
func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	declared, err := s.coord.Evaluate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, declared)
}

func (s *Server) sheets(w http.ResponseWriter, r *http.Request) {
	list, err := s.coord.SheetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) schedule(g game.Game) {
	if s.calls == nil {
		return
	}
	if err := s.calls.Begin(g); err != nil {
		s.log.Error("schedule number calling failed", zap.String("game_id", g.ID), zap.Error(err))
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "bad json"})
		return false
	}
	if err := dto.Validate(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return false
	}
	return true
}

// writeError traduz os erros de domínio para status HTTP.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repo.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repo.ErrTicketAlreadyBooked), errors.Is(err, repo.ErrConcurrentUpdate):
		status = http.StatusConflict
	case errors.Is(err, coordinator.ErrValidation), errors.Is(err, prize.ErrUnknown):
		status = http.StatusBadRequest
	case errors.Is(err, game.ErrInvalidTransition),
		errors.Is(err, game.ErrGameNotActive),
		errors.Is(err, game.ErrGameEnded),
		errors.Is(err, game.ErrAllNumbersCalled),
		errors.Is(err, game.ErrNumberAlreadyCalled),
		errors.Is(err, coordinator.ErrSettingsLocked):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
		writeJSON(w, status, dto.ErrorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, dto.ErrorResponse{Error: err.Error()})
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if s.OnRequest == nil {
			return
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.OnRequest(route, ww.Status())
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
