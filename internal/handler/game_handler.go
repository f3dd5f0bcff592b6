package handler

import (
	"net/http"
	"strconv"

	"github.com/openclaw/ghostnet/api/internal/auth"
	"github.com/openclaw/ghostnet/api/internal/service"
	"github.com/openclaw/ghostnet/api/pkg/conquest"
)

// GameHandler handles the game command endpoints.
type GameHandler struct {
	gameSvc *service.GameService
}

// NewGameHandler creates a GameHandler.
func NewGameHandler(gameSvc *service.GameService) *GameHandler {
	return &GameHandler{gameSvc: gameSvc}
}

func gameIDFromPath(r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// CreateGame handles POST /api/v1/games
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var req struct {
		GameID      uint64 `json:"game_id"`
		StakeAmount uint64 `json:"stake_amount,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GameID == 0 {
		writeError(w, http.StatusBadRequest, "game_id is required")
		return
	}

	game, err := h.gameSvc.CreateGame(r.Context(), req.GameID, userID, req.StakeAmount)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

// ListGames handles GET /api/v1/games
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.gameSvc.ListGames(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if games == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// GetGame handles GET /api/v1/games/{id}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	game, err := h.gameSvc.GetGame(r.Context(), gameID)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// GetPlayer handles GET /api/v1/games/{id}/players/{player}
func (h *GameHandler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	ps, err := h.gameSvc.GetPlayer(r.Context(), gameID, r.PathValue("player"))
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// GetSnapshot handles GET /api/v1/games/{id}/snapshot
func (h *GameHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	snap, err := h.gameSvc.GetSnapshot(r.Context(), gameID)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(snap)
}

// JoinGame handles POST /api/v1/games/{id}/join
func (h *GameHandler) JoinGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	userID := auth.UserIDFromContext(r.Context())

	ps, err := h.gameSvc.JoinGame(r.Context(), gameID, userID)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// StartGame handles POST /api/v1/games/{id}/start
func (h *GameHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	userID := auth.UserIDFromContext(r.Context())

	game, err := h.gameSvc.StartGame(r.Context(), gameID, userID)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// MoveUnits handles POST /api/v1/games/{id}/move
func (h *GameHandler) MoveUnits(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	userID := auth.UserIDFromContext(r.Context())

	var req struct {
		FromX int `json:"from_x"`
		FromY int `json:"from_y"`
		ToX   int `json:"to_x"`
		ToY   int `json:"to_y"`
		Count int `json:"count"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := h.gameSvc.MoveUnits(r.Context(), gameID, userID, req.FromX, req.FromY, req.ToX, req.ToY, req.Count)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// BuildDefense handles POST /api/v1/games/{id}/defense
func (h *GameHandler) BuildDefense(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	userID := auth.UserIDFromContext(r.Context())

	var req struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.gameSvc.BuildDefense(r.Context(), gameID, userID, req.X, req.Y); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "built"})
}

// TrainUnits handles POST /api/v1/games/{id}/train
func (h *GameHandler) TrainUnits(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	userID := auth.UserIDFromContext(r.Context())

	var req struct {
		X     int `json:"x"`
		Y     int `json:"y"`
		Count int `json:"count"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.gameSvc.TrainUnits(r.Context(), gameID, userID, req.X, req.Y, req.Count); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "trained"})
}

// CollectResources handles POST /api/v1/games/{id}/collect
func (h *GameHandler) CollectResources(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	userID := auth.UserIDFromContext(r.Context())

	yield, err := h.gameSvc.CollectResources(r.Context(), gameID, userID)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, yield)
}

// SetStrategy handles POST /api/v1/games/{id}/strategy
func (h *GameHandler) SetStrategy(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	userID := auth.UserIDFromContext(r.Context())

	var req struct {
		Mode string `json:"mode"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.gameSvc.SetStrategy(r.Context(), gameID, userID, conquest.StrategyMode(req.Mode)); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// EndGame handles POST /api/v1/games/{id}/end
func (h *GameHandler) EndGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := gameIDFromPath(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	userID := auth.UserIDFromContext(r.Context())

	game, err := h.gameSvc.EndGame(r.Context(), gameID, userID)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}
