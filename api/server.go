// Package api exposes the vault over HTTP. Mutating operations take a hex
// participant address in the request body; queries are plain GETs. The
// Prometheus registry is served on /metrics.
package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"yieldvault/native/common"
	"yieldvault/native/registry"
	"yieldvault/native/vault"
)

// Server wires HTTP handlers to a vault engine and its protocol registry.
type Server struct {
	vault    *vault.Vault
	registry *registry.Registry
	asset    string
	logger   *slog.Logger
	limiter  *RateLimiter
}

// New constructs a server. A nil limiter disables rate limiting.
func New(v *vault.Vault, reg *registry.Registry, asset string, logger *slog.Logger, limiter *RateLimiter) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{vault: v, registry: reg, asset: asset, logger: logger, limiter: limiter}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	if s.limiter != nil {
		r.Use(s.limiter.Middleware())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/vault", func(vr chi.Router) {
		vr.Get("/meta", s.handleMeta)
		vr.Get("/participants", s.handleParticipants)
		vr.Get("/participants/{address}", s.handleParticipant)
		vr.Get("/protocols", s.handleProtocols)
		vr.Get("/epochs/{epoch}", s.handleEpoch)
		vr.Post("/deposit", s.handleDeposit)
		vr.Post("/withdraw", s.handleWithdraw)
		vr.Post("/harvest", s.handleHarvest)
	})
	return r
}

type metaResponse struct {
	Asset            string   `json:"asset"`
	TotalUserBalance string   `json:"totalUserBalance"`
	CurrentEpoch     uint64   `json:"currentEpoch"`
	EpochsProcessed  uint64   `json:"epochsProcessed"`
	LastEpochTime    uint64   `json:"lastEpochTime"`
	ActiveProtocols  []string `json:"activeProtocols"`
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	total, err := s.vault.TotalUserBalance()
	if err != nil {
		s.writeError(w, err)
		return
	}
	processed, err := s.vault.EpochsProcessed()
	if err != nil {
		s.writeError(w, err)
		return
	}
	lastEpoch, err := s.vault.LastEpochTime()
	if err != nil {
		s.writeError(w, err)
		return
	}
	active, err := s.vault.ActiveProtocols()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metaResponse{
		Asset:            s.asset,
		TotalUserBalance: total.String(),
		CurrentEpoch:     s.vault.CurrentEpoch(),
		EpochsProcessed:  processed,
		LastEpochTime:    lastEpoch,
		ActiveProtocols:  active,
	})
}

func (s *Server) handleParticipants(w http.ResponseWriter, r *http.Request) {
	addrs, err := s.vault.Participants()
	if err != nil {
		s.writeError(w, err)
		return
	}
	encoded := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		encoded = append(encoded, "0x"+hex.EncodeToString(addr[:]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"participants": encoded})
}

type participantResponse struct {
	Address      string `json:"address"`
	Balance      string `json:"balance"`
	TimeWeighted string `json:"timeWeighted"`
}

func (s *Server) handleParticipant(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return
	}
	balance, err := s.vault.BalanceOf(addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	weighted, err := s.vault.TimeWeightedBalanceOf(addr)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participantResponse{
		Address:      "0x" + hex.EncodeToString(addr[:]),
		Balance:      balance.String(),
		TimeWeighted: weighted.String(),
	})
}

type protocolResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	RateBps uint64 `json:"rateBps"`
	Active  bool   `json:"active"`
	Routed  bool   `json:"routed"`
}

func (s *Server) handleProtocols(w http.ResponseWriter, r *http.Request) {
	active, err := s.registry.ActiveProtocol()
	if err != nil && !errors.Is(err, registry.ErrNoActiveProtocol) {
		s.writeError(w, err)
		return
	}
	routed, err := s.vault.ActiveProtocols()
	if err != nil {
		s.writeError(w, err)
		return
	}
	routedSet := make(map[string]bool, len(routed))
	for _, id := range routed {
		routedSet[id] = true
	}

	out := make([]protocolResponse, 0)
	for _, id := range s.registry.Protocols() {
		name, err := s.registry.ProtocolName(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		entry := protocolResponse{ID: id, Name: name, Active: id == active, Routed: routedSet[id]}
		if conn, err := s.registry.Resolve(id, s.asset); err == nil {
			if rate, err := conn.NominalRateBps(s.asset); err == nil {
				entry.RateBps = rate
			}
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"protocols": out})
}

type epochResponse struct {
	Epoch           uint64   `json:"epoch"`
	HarvestedAt     uint64   `json:"harvestedAt"`
	Harvested       string   `json:"harvested"`
	Distributed     string   `json:"distributed"`
	Dust            string   `json:"dust"`
	Participants    int      `json:"participants"`
	FailedProtocols []string `json:"failedProtocols,omitempty"`
}

func (s *Server) handleEpoch(w http.ResponseWriter, r *http.Request) {
	epoch, err := strconv.ParseUint(chi.URLParam(r, "epoch"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(errors.New("invalid epoch number")))
		return
	}
	report, err := s.vault.EpochReport(epoch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, epochResponse{
		Epoch:           report.Epoch,
		HarvestedAt:     report.HarvestedAt,
		Harvested:       report.Harvested.String(),
		Distributed:     report.Distributed.String(),
		Dust:            report.Dust.String(),
		Participants:    report.Participants,
		FailedProtocols: report.FailedProtocols,
	})
}

type movementRequest struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	addr, amount, ok := s.decodeMovement(w, r)
	if !ok {
		return
	}
	weighted, err := s.vault.Deposit(addr, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"deposited":    amount.String(),
		"timeWeighted": weighted.String(),
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	addr, amount, ok := s.decodeMovement(w, r)
	if !ok {
		return
	}
	paid, err := s.vault.Withdraw(addr, amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	penalty := new(big.Int).Sub(amount, paid)
	writeJSON(w, http.StatusOK, map[string]string{
		"requested": amount.String(),
		"paid":      paid.String(),
		"penalty":   penalty.String(),
	})
}

func (s *Server) handleHarvest(w http.ResponseWriter, r *http.Request) {
	harvested, err := s.vault.CheckAndHarvest()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"harvested": harvested.String()})
}

func (s *Server) decodeMovement(w http.ResponseWriter, r *http.Request) ([20]byte, *big.Int, bool) {
	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(errors.New("invalid request body")))
		return [20]byte{}, nil, false
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err))
		return [20]byte{}, nil, false
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(req.Amount), 10)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody(errors.New("invalid amount")))
		return [20]byte{}, nil, false
	}
	return addr, amount, true
}

// writeError maps vault sentinel errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, vault.ErrInvalidAmount),
		errors.Is(err, vault.ErrInsufficientBalance):
		status = http.StatusBadRequest
	case errors.Is(err, vault.ErrUnknownParticipant),
		errors.Is(err, vault.ErrEpochReportNotFound):
		status = http.StatusNotFound
	case errors.Is(err, vault.ErrNoActiveProtocol),
		errors.Is(err, common.ErrReentrantCall):
		// Reentrant calls are transient contention under the fail-fast
		// guard, not server faults; the caller simply retries.
		status = http.StatusConflict
	case errors.Is(err, common.ErrModulePaused):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", slog.Any("error", err))
	}
	writeJSON(w, status, errorBody(err))
}

func parseAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil || len(decoded) != len(addr) {
		return addr, errors.New("invalid address")
	}
	copy(addr[:], decoded)
	return addr, nil
}

func errorBody(err error) map[string]string {
	return map[string]string{"error": err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
