package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"skitgen/cfg"
	"skitgen/internal/app/failure"
	"skitgen/internal/app/ledger"
	"skitgen/internal/app/pipeline"
	"skitgen/pkg/ws"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	maxConfigBytes = 1 << 20
	eventRetention = 10 * time.Minute
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (api *API) createRun(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxConfigBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	format := cfg.FormatJSON
	if r.URL.Query().Get("format") == "yaml" {
		format = cfg.FormatYAML
	}

	c, err := cfg.Parse(data, format)
	if err != nil {
		var ve *failure.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	id := uuid.NewString()

	api.wg.Add(1)
	go func() {
		defer api.wg.Done()
		defer time.AfterFunc(eventRetention, func() { api.events.Drop(id) })

		if _, err := api.runner.Run(api.ctx, c, pipeline.WithRunID(id)); err != nil {
			api.logger.Error("run failed", "run", id, "item", failure.Item(err), "err", err)
			return
		}
		api.logger.Info("run finished", "run", id)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

func (api *API) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	runs, err := api.runs.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []*ledger.Run{}
	}

	writeJSON(w, http.StatusOK, runs)
}

func (api *API) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := api.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if ledger.ErrCode(err) == ledger.ErrCodeNoRows {
			writeError(w, http.StatusNotFound, errors.New("run not found"))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// runEvents streams a run's progress events over a websocket until the run
// ends or the peer goes away.
func (api *API) runEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := api.runs.GetRun(r.Context(), id); err != nil {
		if ledger.ErrCode(err) == ledger.ErrCodeNoRows {
			writeError(w, http.StatusNotFound, errors.New("run not found"))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	conn, err := ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		api.logger.Error("failed to upgrade connection", "err", err)
		return
	}

	client, done := ws.NewWsClient(conn, api.logger)

	events := make(chan pipeline.Event, 64)
	unsub := api.events.Subscribe(id, func(e pipeline.Event) {
		select {
		case events <- e:
		default:
			api.logger.Warn("dropping run event for slow ws client", "run", id, "type", e.Type)
		}
	})
	defer unsub()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		client.DrainRead()
	}()

loop:
	for {
		select {
		case e := <-events:
			if err := client.SendJSON(e); err != nil {
				break loop
			}
			if e.Type == pipeline.EventRunFinished || e.Type == pipeline.EventRunFailed {
				break loop
			}
		case <-gone:
			break loop
		case <-api.ctx.Done():
			break loop
		}
	}

	_ = client.Close()
	<-done
}
