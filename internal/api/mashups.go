package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Topsis/internal/config"
	"github.com/MikeSquared-Agency/Topsis/internal/hermes"
	"github.com/MikeSquared-Agency/Topsis/internal/mailer"
	"github.com/MikeSquared-Agency/Topsis/internal/mashup"
	"github.com/MikeSquared-Agency/Topsis/internal/store"
)

// Waker is notified when a job is queued. The job runner implements it.
type Waker interface {
	Wake()
}

type MashupsHandler struct {
	store  store.Store
	hermes hermes.Client
	mailer mailer.Sender
	waker  Waker
	cfg    config.MashupConfig
	logger *slog.Logger
}

func NewMashupsHandler(s store.Store, h hermes.Client, m mailer.Sender, wk Waker, cfg config.MashupConfig, logger *slog.Logger) *MashupsHandler {
	return &MashupsHandler{store: s, hermes: h, mailer: m, waker: wk, cfg: cfg, logger: logger}
}

type CreateMashupRequest struct {
	Singer   string `json:"singer"`
	Videos   int    `json:"videos"`
	Duration int    `json:"duration"`
	Email    string `json:"email,omitempty"`
}

// Create queues a mashup job. It accepts a JSON body or form fields.
func (h *MashupsHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := decodeMashupRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	mr := mashup.Request{Singer: strings.TrimSpace(req.Singer), Videos: req.Videos, Duration: req.Duration}
	if err := mr.ValidateLimits(h.cfg.MaxVideos, h.cfg.MaxDurationSeconds); err != nil {
		var ve *mashup.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": ve.Msg, "field": ve.Field})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	email := strings.TrimSpace(req.Email)
	if email != "" {
		if !mailer.ValidAddress(email) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "invalid email address", "field": "email"})
			return
		}
		if !h.mailer.Enabled() {
			writeError(w, http.StatusServiceUnavailable, "mail delivery is not configured")
			return
		}
	}

	job := &store.MashupJob{
		ID:              uuid.New(),
		Singer:          mr.Singer,
		Videos:          mr.Videos,
		DurationSeconds: mr.Duration,
		Email:           email,
		Status:          store.JobPending,
	}
	if err := h.store.CreateMashupJob(r.Context(), job); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.hermes != nil {
		if err := h.hermes.Publish(hermes.SubjectMashupQueued(job.ID.String()), hermes.MashupQueuedEvent{
			JobID:    job.ID.String(),
			Singer:   job.Singer,
			Videos:   job.Videos,
			Duration: job.DurationSeconds,
		}); err != nil {
			h.logger.Warn("publish failed", "job_id", job.ID, "error", err)
		}
	}
	if h.waker != nil {
		h.waker.Wake()
	}

	w.Header().Set("Location", "/api/v1/mashups/"+job.ID.String())
	writeJSON(w, http.StatusAccepted, job)
}

func decodeMashupRequest(r *http.Request) (*CreateMashupRequest, error) {
	var req CreateMashupRequest
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errors.New("invalid request body")
		}
		return &req, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, errors.New("invalid form")
	}
	req.Singer = r.FormValue("singer")
	req.Email = r.FormValue("email")
	var err error
	if req.Videos, err = formInt(r, "videos"); err != nil {
		return nil, err
	}
	if req.Duration, err = formInt(r, "duration"); err != nil {
		return nil, err
	}
	return &req, nil
}

func formInt(r *http.Request, field string) (int, error) {
	v := strings.TrimSpace(r.FormValue(field))
	if v == "" {
		return 0, fmt.Errorf("%s is required", field)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", field)
	}
	return n, nil
}

func (h *MashupsHandler) job(w http.ResponseWriter, r *http.Request) *store.MashupJob {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return nil
	}
	job, err := h.store.GetMashupJob(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "mashup job not found")
		return nil
	}
	return job
}

func (h *MashupsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if job := h.job(w, r); job != nil {
		writeJSON(w, http.StatusOK, job)
	}
}

// Download serves the finished archive from local storage, or redirects to
// the remote copy.
func (h *MashupsHandler) Download(w http.ResponseWriter, r *http.Request) {
	job := h.job(w, r)
	if job == nil {
		return
	}
	if job.Status != store.JobCompleted {
		writeError(w, http.StatusConflict, "mashup is "+string(job.Status))
		return
	}
	if job.ArtifactPath == "" {
		if job.ArtifactURL != "" {
			http.Redirect(w, r, job.ArtifactURL, http.StatusFound)
			return
		}
		writeError(w, http.StatusNotFound, "artifact not available")
		return
	}

	f, err := os.Open(job.ArtifactPath)
	if err != nil {
		writeError(w, http.StatusNotFound, "artifact not available")
		return
	}
	defer f.Close()

	name := strings.ReplaceAll(strings.ToLower(job.Singer), " ", "_") + "_mashup.zip"
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	modified := job.UpdatedAt
	if job.CompletedAt != nil {
		modified = *job.CompletedAt
	}
	http.ServeContent(w, r, name, modified.Truncate(time.Second), f)
}
