package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/efreeman/warfront/api/internal/auth"
	"github.com/efreeman/warfront/api/internal/repository"
	"github.com/efreeman/warfront/api/internal/service"
	"github.com/efreeman/warfront/api/pkg/conquest"
)

// WorldHandler serves read endpoints over the world state plus enlistment.
// All mutations during play flow through the WebSocket; these endpoints are
// for bootstrapping clients and out-of-game views.
type WorldHandler struct {
	scheduler *service.Scheduler
	clocks    *service.PolicyClocks
	cache     repository.WorldCache
	battles   repository.BattleReportRepository
	players   repository.PlayerRepository
	users     repository.UserRepository
}

// NewWorldHandler creates a WorldHandler.
func NewWorldHandler(
	scheduler *service.Scheduler,
	clocks *service.PolicyClocks,
	cache repository.WorldCache,
	battles repository.BattleReportRepository,
	players repository.PlayerRepository,
	users repository.UserRepository,
) *WorldHandler {
	return &WorldHandler{
		scheduler: scheduler,
		clocks:    clocks,
		cache:     cache,
		battles:   battles,
		players:   players,
		users:     users,
	}
}

// GetWorld handles GET /api/v1/world: the full world snapshot, served from
// the Redis hot copy when present, falling back to the live world.
func (h *WorldHandler) GetWorld(w http.ResponseWriter, r *http.Request) {
	if state, err := h.cache.GetWorldState(r.Context()); err == nil && state != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(state)
		return
	}

	view, err := h.scheduler.WorldView()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render world")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(view)
}

// GetPolicy handles GET /api/v1/policy: current weather and war/peace phase.
func (h *WorldHandler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	weather := h.clocks.Weather(now)
	writeJSON(w, http.StatusOK, map[string]any{
		"weather":        weather.Name,
		"weatherSpeed":   weather.Speed,
		"atWar":          h.clocks.AtWar(now),
		"nextWeatherAt":  h.clocks.NextWeatherChange(now),
		"nextWarPeaceAt": h.clocks.NextWarPeaceChange(now),
	})
}

// Join handles POST /api/v1/join: enlists the caller on a faction.
func (h *WorldHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req struct {
		Faction string `json:"faction"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil || user == nil {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}

	if err := h.scheduler.Join(r.Context(), userID, user.DisplayName, req.Faction); err != nil {
		switch {
		case errors.Is(err, conquest.ErrUnknownFaction):
			writeError(w, http.StatusBadRequest, "unknown faction")
		case errors.Is(err, conquest.ErrFactionTaken):
			writeError(w, http.StatusConflict, "already enlisted on another faction")
		case errors.Is(err, conquest.ErrWorldFull):
			writeError(w, http.StatusServiceUnavailable, "no regions available")
		default:
			log.Error().Err(err).Str("userId", userID).Msg("Failed to enlist player")
			writeError(w, http.StatusInternalServerError, "failed to join")
		}
		return
	}

	player, err := h.players.FindByUserID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load enrollment")
		return
	}
	writeJSON(w, http.StatusOK, player)
}

// GetLeaderboard handles GET /api/v1/leaderboard: top killers.
func (h *WorldHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := int64(10)
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	entries, err := h.cache.TopKillers(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetMyBattles handles GET /api/v1/battles: the caller's recent battles.
func (h *WorldHandler) GetMyBattles(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	reports, err := h.battles.ListByPlayer(r.Context(), userID, 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load battles")
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// ListPlayers handles GET /api/v1/players: all enrolled players.
func (h *WorldHandler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.players.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load players")
		return
	}
	writeJSON(w, http.StatusOK, players)
}

// GetCatalog handles GET /api/v1/catalog: static unit and building stats
// for client UIs.
func (h *WorldHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	units := make(map[conquest.UnitKind]conquest.UnitSpec)
	for _, k := range []conquest.UnitKind{
		conquest.Infantry, conquest.Builder, conquest.Scout, conquest.Medic,
		conquest.Tank, conquest.LightVehicle, conquest.Artillery, conquest.Helicopter,
	} {
		units[k] = k.Spec()
	}
	buildings := make(map[conquest.BuildingKind]conquest.BuildingSpec)
	for _, k := range []conquest.BuildingKind{
		conquest.Barracks, conquest.Factory, conquest.Helipad, conquest.Tower,
		conquest.Farm, conquest.Mine, conquest.Hospital,
	} {
		buildings[k] = k.Spec()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"factions":  conquest.AllFactions(),
		"units":     units,
		"buildings": buildings,
	})
}
