package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"scoreserver/config"
	"scoreserver/internal/doubles"
	"scoreserver/internal/leaderboard"
	"scoreserver/internal/scoring"

	"github.com/gorilla/mux"
	natsG "github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Server exposes the scoring engine over HTTP. Transport concerns only;
// every rule lives in the scoring and leaderboard packages.
type Server struct {
	cfg     *config.Config
	db      *gorm.DB
	js      natsG.JetStreamContext
	builder *leaderboard.Builder
	cache   *leaderboard.Cache
}

func New(cfg *config.Config, db *gorm.DB, js natsG.JetStreamContext, builder *leaderboard.Builder, cache *leaderboard.Cache) *Server {
	return &Server{cfg: cfg, db: db, js: js, builder: builder, cache: cache}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.withDependencies)

	r.HandleFunc("/api/score", s.handleSaveScore).Methods(http.MethodPost)
	r.HandleFunc("/api/score/{competitor_id:[0-9]+}", s.handleCompetitorScores).Methods(http.MethodGet)
	r.HandleFunc("/api/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	r.HandleFunc("/api/competitor/{competitor_id:[0-9]+}/points", s.handleCompetitorPoints).Methods(http.MethodGet)
	r.HandleFunc("/api/competitor/{competitor_id:[0-9]+}/top-climbs", s.handleTopClimbs).Methods(http.MethodGet)
	r.HandleFunc("/api/doubles/team", s.handleCreateTeam).Methods(http.MethodPost)

	return r
}

func (s *Server) Start() error {
	port := ":" + s.cfg.Server.Port
	log.Printf("Server is listening on port%s", port)
	return http.ListenAndServe(port, s.Router())
}

// withDependencies hangs the shared DB handle and JetStream context off the
// request context so handlers read them from one place.
func (s *Server) withDependencies(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := s.cfg.WithDB(r.Context(), s.db)
		if s.js != nil {
			ctx = s.cfg.WithJetStream(ctx, s.js)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type saveScorePayload struct {
	CompetitorID   uint `json:"competitor_id"`
	SectionClimbID uint `json:"section_climb_id"`
	ClimbNumber    int  `json:"climb_number"`
	Attempts       int  `json:"attempts"`
	Topped         bool `json:"topped"`
}

func (s *Server) handleSaveScore(w http.ResponseWriter, r *http.Request) {
	var payload saveScorePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	db, _ := s.cfg.DBFromContext(r.Context())
	js, _ := s.cfg.JetStreamFromContext(r.Context())

	result, err := scoring.SaveScore(db, js, s.cache, scoring.SaveScoreRequest{
		CompetitorID:   payload.CompetitorID,
		SectionClimbID: payload.SectionClimbID,
		ClimbNumber:    payload.ClimbNumber,
		Attempts:       payload.Attempts,
		Topped:         payload.Topped,
	})
	if err != nil {
		writeScoreError(w, err)
		return
	}

	writeJSON(w, map[string]any{
		"ok":               true,
		"competitor_id":    result.CompetitorID,
		"section_climb_id": result.SectionClimbID,
		"climb_number":     result.ClimbNumber,
		"attempts":         result.Attempts,
		"topped":           result.Topped,
		"flashed":          result.Flashed,
		"points":           result.Points,
	})
}

func writeScoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scoring.ErrCompetitorNotFound),
		errors.Is(err, scoring.ErrCompetitionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, scoring.ErrCompetitionFinished):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, scoring.ErrInvalidCompetitorID),
		errors.Is(err, scoring.ErrMissingClimbReference),
		errors.Is(err, scoring.ErrNotRegistered),
		errors.Is(err, scoring.ErrUnknownSectionClimb),
		errors.Is(err, scoring.ErrClimbNotInCompetition),
		errors.Is(err, scoring.ErrUnknownClimbNumber),
		errors.Is(err, scoring.ErrAmbiguousClimbNumber):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.WithError(err).Error("Score write failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var competitionID uint
	if raw := query.Get("competition_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			http.Error(w, "Invalid competition_id", http.StatusBadRequest)
			return
		}
		competitionID = uint(id)
	}

	board, err := s.builder.Build(query.Get("category"), leaderboard.Scope{
		CompetitionID: competitionID,
		Slug:          query.Get("slug"),
	})
	if err != nil {
		log.WithError(err).Error("Leaderboard build failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	var rows any = board.Rows
	if board.Category == leaderboard.CategoryDoubles {
		rows = board.Doubles
	}
	writeJSON(w, map[string]any{"category": board.Label, "rows": rows})
}

func (s *Server) handleCompetitorScores(w http.ResponseWriter, r *http.Request) {
	competitorID, ok := pathID(w, r, "competitor_id")
	if !ok {
		return
	}
	db, _ := s.cfg.DBFromContext(r.Context())

	scores, err := scoring.ScoresForCompetitor(db, competitorID)
	if err != nil {
		log.WithError(err).Error("Score listing failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, scores)
}

func (s *Server) handleCompetitorPoints(w http.ResponseWriter, r *http.Request) {
	competitorID, ok := pathID(w, r, "competitor_id")
	if !ok {
		return
	}
	db, _ := s.cfg.DBFromContext(r.Context())

	var competitionID uint
	if raw := r.URL.Query().Get("competition_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			http.Error(w, "Invalid competition_id", http.StatusBadRequest)
			return
		}
		competitionID = uint(id)
	}

	total, err := scoring.CompetitorTotalPoints(db, competitorID, competitionID)
	if err != nil {
		log.WithError(err).Error("Total points failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"competitor_id": competitorID, "total_points": total})
}

func (s *Server) handleTopClimbs(w http.ResponseWriter, r *http.Request) {
	competitorID, ok := pathID(w, r, "competitor_id")
	if !ok {
		return
	}
	db, _ := s.cfg.DBFromContext(r.Context())

	query := r.URL.Query()
	limit := 8
	if raw := query.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	var competitionID uint
	if raw := query.Get("competition_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			http.Error(w, "Invalid competition_id", http.StatusBadRequest)
			return
		}
		competitionID = uint(id)
	}

	climbs, err := scoring.TopClimbsForCompetitor(db, competitionID, competitorID, limit)
	if err != nil {
		log.WithError(err).Error("Top climbs failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, climbs)
}

type createTeamPayload struct {
	CompetitionID uint `json:"competition_id"`
	CompetitorAID uint `json:"competitor_a_id"`
	CompetitorBID uint `json:"competitor_b_id"`
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var payload createTeamPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	db, _ := s.cfg.DBFromContext(r.Context())

	team, err := doubles.CreateTeam(db, payload.CompetitionID, payload.CompetitorAID, payload.CompetitorBID)
	switch {
	case err == nil:
	case errors.Is(err, doubles.ErrSameCompetitor),
		errors.Is(err, doubles.ErrAlreadyPaired),
		errors.Is(err, doubles.ErrNotInThisComp):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	default:
		log.WithError(err).Error("Team creation failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	s.cache.InvalidateAll()
	writeJSON(w, map[string]any{"ok": true, "team_id": team.ID})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		http.Error(w, "Invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return uint(id), true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}
