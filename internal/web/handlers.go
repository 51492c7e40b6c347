package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nordform/catalog-admin/internal/audit"
	"github.com/nordform/catalog-admin/internal/auth"
	"github.com/nordform/catalog-admin/internal/catalog"
	"github.com/nordform/catalog-admin/internal/importer"
	"github.com/nordform/catalog-admin/internal/jobs"
)

// handleHealth reports process liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ----------------------------------------------------------------------------
// Auth
// ----------------------------------------------------------------------------

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// handleLogin proxies the credential check to the CMS and returns its
// bearer token and role to the client.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Identifier == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "identifier and password are required")
		return
	}

	sess, err := s.cms.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		var apiErr *catalog.APIError
		if errors.As(err, &apiErr) {
			writeError(w, http.StatusUnauthorized, apiErr.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "authentication service unavailable")
		return
	}

	s.recordAudit(r, audit.Entry{
		Action:    audit.ActionLogin,
		UserID:    sess.Identity.ID,
		UserEmail: sess.Identity.Email,
	})

	writeJSON(w, http.StatusOK, sess)
}

// ----------------------------------------------------------------------------
// Import
// ----------------------------------------------------------------------------

type importRequest struct {
	Rows    []importer.RawRow     `json:"rows"`
	Mapping importer.FieldMapping `json:"mapping"`
}

// syncImportResponse is returned when the batch ran inline.
type syncImportResponse struct {
	Mode          string   `json:"mode"`
	Success       bool     `json:"success"`
	Processed     int      `json:"processed"`
	Total         int      `json:"total"`
	Errors        []string `json:"errors"`
	PendingAssets int      `json:"pendingAssets"`
}

// backgroundImportResponse is returned when the batch was enqueued.
type backgroundImportResponse struct {
	Mode      string   `json:"mode"`
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	Progress  int      `json:"progress"`
	Total     int      `json:"total"`
	Processed int      `json:"processed"`
	Errors    []string `json:"errors"`
}

// handleStartImport accepts raw rows plus a column mapping and either
// runs the batch inline or enqueues it, depending on volume. The two
// response shapes share the "mode" discriminant; clients branch on it
// rather than probing for an id.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "no session")
		return
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token := auth.TokenFrom(r.Context())
	result, err := s.imports.StartImport(r.Context(), req.Rows, req.Mapping, token, identity.ID)
	if err != nil {
		// Input errors reject the whole request before any row runs;
		// anything else (enqueue failure past the availability check)
		// is on us, not the client.
		if importer.InputError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("import start failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start import")
		return
	}

	s.recordAudit(r, audit.Entry{
		Action:    audit.ActionImportStarted,
		UserID:    identity.ID,
		UserEmail: identity.Email,
		Detail: map[string]any{
			"rows": len(req.Rows),
			"mode": result.Mode.String(),
		},
	})

	if result.Mode == importer.ModeBackground {
		job := result.Job
		writeJSON(w, http.StatusAccepted, backgroundImportResponse{
			Mode:      result.Mode.String(),
			ID:        job.ID,
			Status:    string(job.Status()),
			Progress:  job.Progress,
			Total:     job.Total,
			Processed: job.Processed,
			Errors:    job.Errors,
		})
		return
	}

	batch := result.Batch
	s.recordAudit(r, audit.Entry{
		Action:    audit.ActionImportCompleted,
		UserID:    identity.ID,
		UserEmail: identity.Email,
		Detail: map[string]any{
			"total":     batch.Total,
			"processed": batch.Processed,
			"failed":    len(batch.Errors),
		},
	})

	writeJSON(w, http.StatusOK, syncImportResponse{
		Mode:          result.Mode.String(),
		Success:       true,
		Processed:     batch.Processed,
		Total:         batch.Total,
		Errors:        batch.Errors,
		PendingAssets: batch.PendingAssets,
	})
}

// jobStatusResponse is the poll shape for a background import.
type jobStatusResponse struct {
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	Progress  int      `json:"progress"`
	Total     int      `json:"total"`
	Processed int      `json:"processed"`
	Errors    []string `json:"errors"`
	Error     string   `json:"error,omitempty"`
}

// handleImportStatus returns a snapshot of a background import job.
// Unknown ids are 404; an unreachable job system is 503, never
// conflated with not-found.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "missing job id")
		return
	}

	job, err := s.imports.JobStatus(r.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrNotFound):
			writeError(w, http.StatusNotFound, "job not found")
		case errors.Is(err, jobs.ErrUnavailable):
			writeError(w, http.StatusServiceUnavailable, "job system unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "failed to read job status")
		}
		return
	}

	resp := jobStatusResponse{
		ID:        job.ID,
		Status:    string(job.Status()),
		Progress:  job.Progress,
		Total:     job.Total,
		Processed: job.Processed,
		Errors:    job.Errors,
	}
	if job.Status() == jobs.StatusFailed {
		resp.Error = job.FailedReason
	}
	writeJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------------------
// Media
// ----------------------------------------------------------------------------

type uploadURLRequest struct {
	FileName string `json:"fileName"`
}

type uploadURLResponse struct {
	URL        string `json:"url"`
	ObjectName string `json:"objectName"`
	ExpiresIn  int    `json:"expiresIn"`
}

// handleUploadURL issues a pre-signed PUT URL so the client uploads
// media directly to object storage.
func (s *Server) handleUploadURL(w http.ResponseWriter, r *http.Request) {
	if s.medias == nil {
		writeError(w, http.StatusServiceUnavailable, "media storage not configured")
		return
	}

	var req uploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := path.Base(strings.TrimSpace(req.FileName))
	if name == "" || name == "." || name == "/" {
		writeError(w, http.StatusBadRequest, "fileName is required")
		return
	}

	objectName := uuid.NewString() + "-" + name
	url, err := s.medias.PresignedPutURL(r.Context(), objectName)
	if err != nil {
		slog.Error("presign upload URL failed", "object", objectName, "error", err)
		writeError(w, http.StatusBadGateway, "failed to issue upload URL")
		return
	}

	if identity, ok := auth.IdentityFrom(r.Context()); ok {
		s.recordAudit(r, audit.Entry{
			Action:    audit.ActionUploadURLIssued,
			UserID:    identity.ID,
			UserEmail: identity.Email,
			Detail:    map[string]any{"object": objectName},
		})
	}

	writeJSON(w, http.StatusOK, uploadURLResponse{
		URL:        url,
		ObjectName: objectName,
		ExpiresIn:  int(s.cfg.Media.URLExpiry.Seconds()),
	})
}

type downloadURLResponse struct {
	URL        string `json:"url"`
	ObjectName string `json:"objectName"`
	ExpiresIn  int    `json:"expiresIn"`
}

// handleDownloadURL issues a pre-signed GET URL for a previously
// uploaded object so the console can preview media without this
// service proxying bytes.
func (s *Server) handleDownloadURL(w http.ResponseWriter, r *http.Request) {
	if s.medias == nil {
		writeError(w, http.StatusServiceUnavailable, "media storage not configured")
		return
	}

	objectName := strings.TrimSpace(r.URL.Query().Get("object"))
	if objectName == "" {
		writeError(w, http.StatusBadRequest, "object is required")
		return
	}

	url, err := s.medias.PresignedGetURL(r.Context(), objectName)
	if err != nil {
		slog.Error("presign download URL failed", "object", objectName, "error", err)
		writeError(w, http.StatusBadGateway, "failed to issue download URL")
		return
	}

	writeJSON(w, http.StatusOK, downloadURLResponse{
		URL:        url,
		ObjectName: objectName,
		ExpiresIn:  int(s.cfg.Media.URLExpiry.Seconds()),
	})
}

// ----------------------------------------------------------------------------
// Audit log viewer
// ----------------------------------------------------------------------------

// handleAuditLog returns recent audit entries, newest first.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	if s.audits == nil {
		writeError(w, http.StatusServiceUnavailable, "audit log not configured")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := s.audits.List(r.Context(), limit, offset)
	if err != nil {
		slog.Error("audit log query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read audit log")
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// recordAudit persists an audit entry and logs on failure. Audit write
// failures never fail the operator's action.
func (s *Server) recordAudit(r *http.Request, e audit.Entry) {
	if s.audits == nil {
		return
	}
	e.IPAddress = r.RemoteAddr
	if err := s.audits.Record(r.Context(), e); err != nil {
		slog.Warn("audit record failed", "action", e.Action, "error", err)
	}
}
