package service

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// liveViewServer exposes the engine state as JSON for the presentation layer
// and forwards user intents to the stores and the mutation gateway. It is a
// read-mostly surface: all writes funnel through the engine.
type liveViewServer struct {
	logger zerolog.Logger
	engine *Engine
	server *http.Server
	ln     net.Listener
}

func newLiveViewServer(listen string, engine *Engine, origins []string, logger zerolog.Logger) (*liveViewServer, error) {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}
	server := &liveViewServer{logger: logger, engine: engine, ln: ln}

	router := mux.NewRouter()
	router.HandleFunc("/api/state", server.handleState).Methods(http.MethodGet)
	router.HandleFunc("/api/mode", server.handleSetMode).Methods(http.MethodPost)
	router.HandleFunc("/api/page", server.handleSetPage).Methods(http.MethodPost)
	router.HandleFunc("/api/plant", server.handleSelectPlant).Methods(http.MethodPost)
	router.HandleFunc("/api/plants", server.handleAddPlant).Methods(http.MethodPost)
	router.HandleFunc("/api/actuators/{device}", server.handleSetActuator).Methods(http.MethodPost)
	router.HandleFunc("/api/actuators/{device}/input", server.handleActuatorInput).Methods(http.MethodPost)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	srv := &http.Server{Handler: cors(router)}
	server.server = srv
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("live view server stopped")
		}
	}()
	logger.Info().Str("listen", ln.Addr().String()).Msg("live view enabled")
	return server, nil
}

func (s *liveViewServer) address() string {
	if s == nil || s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *liveViewServer) close() {
	if s == nil || s.server == nil {
		return
	}
	_ = s.server.Close()
}

func (s *liveViewServer) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug().Err(err).Msg("encode response")
	}
}

func (s *liveViewServer) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, ErrValidation) {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *liveViewServer) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.State())
}

func (s *liveViewServer) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := s.engine.SetMode(r.Context(), body.Mode); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"mode": body.Mode})
}

func (s *liveViewServer) handleSetPage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Page string `json:"page"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := s.engine.SetPage(body.Page); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"page": body.Page})
}

func (s *liveViewServer) handleSelectPlant(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Plant string `json:"plant"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	s.engine.SelectPlant(body.Plant)
	s.writeJSON(w, http.StatusOK, map[string]string{"selected_plant": body.Plant})
}

func (s *liveViewServer) handleAddPlant(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Plant string `json:"plant"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := s.engine.AddPlant(r.Context(), body.Plant); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"plant": body.Plant})
}

func (s *liveViewServer) handleSetActuator(w http.ResponseWriter, r *http.Request) {
	device := mux.Vars(r)["device"]
	var body struct {
		State interface{} `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := s.engine.SetActuator(r.Context(), device, body.State); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"device": device, "state": body.State})
}

func (s *liveViewServer) handleActuatorInput(w http.ResponseWriter, r *http.Request) {
	device := mux.Vars(r)["device"]
	var body struct {
		State interface{} `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	s.engine.SetActuatorInput(device, body.State)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"device": device, "state": body.State})
}
