package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Topsis/internal/dataset"
	"github.com/MikeSquared-Agency/Topsis/internal/hermes"
	"github.com/MikeSquared-Agency/Topsis/internal/mailer"
	"github.com/MikeSquared-Agency/Topsis/internal/metrics"
	"github.com/MikeSquared-Agency/Topsis/internal/store"
	"github.com/MikeSquared-Agency/Topsis/internal/topsis"
)

type TopsisHandler struct {
	store     store.Store
	hermes    hermes.Client
	mailer    mailer.Sender
	maxUpload int64
	logger    *slog.Logger
}

func NewTopsisHandler(s store.Store, h hermes.Client, m mailer.Sender, maxUpload int64, logger *slog.Logger) *TopsisHandler {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &TopsisHandler{store: s, hermes: h, mailer: m, maxUpload: maxUpload, logger: logger}
}

// ScoreResponse is the JSON rendering of a scored table.
type ScoreResponse struct {
	RunID  uuid.UUID  `json:"run_id"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
	Scores []float64  `json:"scores"`
	Ranks  []int      `json:"ranks"`
	Best   []string   `json:"best"`
}

// Score handles a multipart upload of a decision matrix. The scored table is
// mailed when an address is given and returned inline otherwise.
func (h *TopsisHandler) Score(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	weights := strings.TrimSpace(r.FormValue("weights"))
	impacts := strings.TrimSpace(r.FormValue("impacts"))
	if weights == "" || impacts == "" {
		writeError(w, http.StatusBadRequest, "weights and impacts are required")
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	if email != "" {
		if !mailer.ValidAddress(email) {
			writeError(w, http.StatusBadRequest, "invalid email address")
			return
		}
		if !h.mailer.Enabled() {
			writeError(w, http.StatusServiceUnavailable, "mail delivery is not configured")
			return
		}
	}

	run := &store.Run{
		ID:        uuid.New(),
		Source:    "api",
		InputName: fh.Filename,
		Impacts:   splitImpacts(impacts),
		Recipient: email,
	}
	// A bad weight list is reported by Analyze with its error kind; the
	// run then records no weights.
	if w, err := topsis.ParseWeights(weights); err == nil {
		run.Weights = w
	}

	res, err := dataset.Analyze(file, weights, impacts)
	if err != nil {
		h.rejected(w, r, run, err)
		return
	}

	var buf bytes.Buffer
	if err := dataset.Write(&buf, res); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render result")
		return
	}

	run.Status = store.RunCompleted
	run.Criteria = res.Matrix.Criteria()
	run.Alternatives = res.Matrix.Len()
	run.Labels = res.Matrix.Labels
	run.Scores = res.Scores
	run.Ranks = res.Ranks

	if email != "" {
		if err := h.mailer.Send(r.Context(), mailer.ResultMessage(email, buf.Bytes())); err != nil {
			metrics.MailsTotal.WithLabelValues("result", "error").Inc()
			h.logger.Error("result delivery failed", "run_id", run.ID, "error", err)
			writeError(w, http.StatusBadGateway, "failed to send email")
			return
		}
		metrics.MailsTotal.WithLabelValues("result", "ok").Inc()
		run.Delivered = true
	}

	h.record(r, run)
	metrics.ObserveRun(run.Source, "", run.Alternatives)
	h.publish(hermes.SubjectRunCompleted(run.ID.String()), hermes.RunCompletedEvent{
		RunID:        run.ID.String(),
		Source:       run.Source,
		Alternatives: run.Alternatives,
		Criteria:     len(run.Criteria),
		Best:         bestLabels(res),
		Timestamp:    time.Now().UTC(),
	})

	if email != "" {
		h.publish(hermes.SubjectRunDelivered(run.ID.String()), hermes.RunDeliveredEvent{RunID: run.ID.String(), Recipient: email})
		writeJSON(w, http.StatusOK, map[string]string{
			"run_id":  run.ID.String(),
			"message": "Result sent to " + email,
		})
		return
	}

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, ScoreResponse{
			RunID:  run.ID,
			Header: res.Header(),
			Rows:   res.Rows(),
			Scores: res.Scores,
			Ranks:  res.Ranks,
			Best:   bestLabels(res),
		})
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="output.csv"`)
	w.Header().Set("X-Run-ID", run.ID.String())
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// rejected records a failed run and answers with the error kind. Errors that
// do not come from the scoring engine are input format problems.
func (h *TopsisHandler) rejected(w http.ResponseWriter, r *http.Request, run *store.Run, err error) {
	kind := topsis.Kind(err)
	if kind == "" {
		kind = "format"
	}
	run.Status = store.RunFailed
	run.ErrorKind = kind
	run.Error = err.Error()
	h.record(r, run)
	metrics.ObserveRun(run.Source, kind, 0)
	h.publish(hermes.SubjectRunFailed(run.ID.String()), hermes.RunFailedEvent{
		RunID:     run.ID.String(),
		Source:    run.Source,
		Kind:      kind,
		Error:     run.Error,
		Timestamp: time.Now().UTC(),
	})

	status := http.StatusUnprocessableEntity
	if kind == "format" {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error(), "kind": kind})
}

// record persists run. A storage failure does not fail the request; the
// caller already has its result.
func (h *TopsisHandler) record(r *http.Request, run *store.Run) {
	if err := h.store.CreateRun(r.Context(), run); err != nil {
		h.logger.Error("failed to record run", "run_id", run.ID, "error", err)
	}
}

func (h *TopsisHandler) publish(subject string, data interface{}) {
	if h.hermes == nil {
		return
	}
	if err := h.hermes.Publish(subject, data); err != nil {
		h.logger.Warn("publish failed", "subject", subject, "error", err)
	}
}

func bestLabels(res *topsis.Result) []string {
	var out []string
	for _, i := range res.Best() {
		out = append(out, res.Matrix.Labels[i])
	}
	return out
}

func splitImpacts(s string) []string {
	var out []string
	for _, imp := range topsis.SplitImpacts(s) {
		out = append(out, string(imp))
	}
	return out
}
