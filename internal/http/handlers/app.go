package handlers

import (
	"encoding/json"
	"net/http"

	"mediaforge/internal/archive"
	"mediaforge/internal/credit"
	"mediaforge/internal/infra"
	"mediaforge/internal/orchestrator"
)

// App bundles the collaborators the HTTP handlers need.
type App struct {
	Orchestrator *orchestrator.Orchestrator
	Ledger       *credit.Ledger
	Archive      *archive.Archive
	Logger       infra.Logger
}

func NewApp(orch *orchestrator.Orchestrator, ledger *credit.Ledger, arch *archive.Archive, logger infra.Logger) *App {
	return &App{Orchestrator: orch, Ledger: ledger, Archive: arch, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"code": code, "message": message})
}
