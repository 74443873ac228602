package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"clipforge/internal/api"
	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/merge"
	"clipforge/internal/services"
)

const maxUploadBytes = 512 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logger,
		daemon: d,
	}

	router := mux.NewRouter()
	router.Use(srv.requestContext)
	router.HandleFunc("/", srv.handleRoot).Methods(http.MethodGet)
	router.HandleFunc("/api/upload", srv.handleUpload).Methods(http.MethodPost)
	router.HandleFunc("/api/audio", srv.handleListClips).Methods(http.MethodGet)
	router.HandleFunc("/api/processed", srv.handleListMerged).Methods(http.MethodGet)
	// "all" must be routed before the id pattern can swallow it.
	router.HandleFunc("/api/audio/all", srv.handleDeleteAllClips).Methods(http.MethodDelete)
	router.HandleFunc("/api/processed/all", srv.handleDeleteAllMerged).Methods(http.MethodDelete)
	router.HandleFunc("/api/audio/{id}", srv.handleRenameClip).Methods(http.MethodPut)
	router.HandleFunc("/api/audio/{id}", srv.handleDeleteClip).Methods(http.MethodDelete)
	router.HandleFunc("/api/processed/{id}", srv.handleRenameMerged).Methods(http.MethodPut)
	router.HandleFunc("/api/processed/{id}", srv.handleDeleteMerged).Methods(http.MethodDelete)
	router.HandleFunc("/api/download/{id}", srv.handleDownload).Methods(http.MethodGet)
	router.HandleFunc("/api/reorder", srv.handleReorder).Methods(http.MethodPost)
	router.HandleFunc("/api/merge", srv.handleMerge).Methods(http.MethodPost)
	router.HandleFunc("/api/cancel-processing", srv.handleCancel).Methods(http.MethodPost)
	router.HandleFunc("/api/check-processing-status", srv.handleCheckStatus).Methods(http.MethodPost)
	router.HandleFunc("/api/ws", srv.handleWebSocket).Methods(http.MethodGet)
	router.HandleFunc("/api/status", srv.handleStatus).Methods(http.MethodGet)

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := services.WithRequestID(r.Context(), uuid.NewString())
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		logging.WithContext(ctx, s.log()).Debug("request handled",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Duration("elapsed", time.Since(start)))
	})
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"service": "clipforge",
		"status":  "running",
	})
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		s.writeError(w, http.StatusBadRequest, "no files in upload")
		return
	}

	resp := api.UploadListResponse{Files: make([]api.UploadResponse, 0, len(headers))}
	for _, header := range headers {
		file, err := header.Open()
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "unreadable upload part")
			return
		}
		result, err := s.daemon.libSvc.Upload(r.Context(), header.Filename, file)
		_ = file.Close()
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		resp.Files = append(resp.Files, api.UploadResponse{
			Item:         api.FromItem(result.Item),
			IsDuplicate:  result.IsDuplicate,
			UploadedName: result.UploadedName,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleListClips(w http.ResponseWriter, r *http.Request) {
	items, err := s.daemon.libSvc.ListClips(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ListResponse{Files: api.FromItems(items)})
}

func (s *apiServer) handleListMerged(w http.ResponseWriter, r *http.Request) {
	items, err := s.daemon.libSvc.ListMerged(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ListResponse{Files: api.FromItems(items)})
}

func (s *apiServer) handleRenameClip(w http.ResponseWriter, r *http.Request) {
	s.rename(w, r, false)
}

func (s *apiServer) handleRenameMerged(w http.ResponseWriter, r *http.Request) {
	s.rename(w, r, true)
}

func (s *apiServer) rename(w http.ResponseWriter, r *http.Request, merged bool) {
	var req api.RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := s.daemon.libSvc.Rename(r.Context(), mux.Vars(r)["id"], req.DisplayName, merged)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromItem(item))
}

func (s *apiServer) handleDeleteClip(w http.ResponseWriter, r *http.Request) {
	s.deleteOne(w, r, false)
}

func (s *apiServer) handleDeleteMerged(w http.ResponseWriter, r *http.Request) {
	s.deleteOne(w, r, true)
}

func (s *apiServer) deleteOne(w http.ResponseWriter, r *http.Request, merged bool) {
	if err := s.daemon.libSvc.Delete(r.Context(), mux.Vars(r)["id"], merged); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.DeleteAllResponse{Deleted: 1})
}

func (s *apiServer) handleDeleteAllClips(w http.ResponseWriter, r *http.Request) {
	s.deleteAll(w, r, false)
}

func (s *apiServer) handleDeleteAllMerged(w http.ResponseWriter, r *http.Request) {
	s.deleteAll(w, r, true)
}

func (s *apiServer) deleteAll(w http.ResponseWriter, r *http.Request, merged bool) {
	deleted, err := s.daemon.libSvc.DeleteAll(r.Context(), merged)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.DeleteAllResponse{Deleted: deleted})
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	item, err := s.daemon.libSvc.Resolve(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	filename := item.DisplayName + strings.ToLower(filepath.Ext(item.StoredFilename))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	http.ServeFile(w, r, item.Path)
}

func (s *apiServer) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req api.ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	items, err := s.daemon.libSvc.Reorder(r.Context(), req.FileIDs)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ListResponse{Files: api.FromItems(items)})
}

func (s *apiServer) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req api.MergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sub, err := s.daemon.mergeSvc.Submit(r.Context(), merge.SubmitRequest{
		JobID:           req.RequestID,
		FileIDs:         req.FileIDs,
		OutputName:      req.OutputName,
		NormalizeVolume: req.NormalizeVolume,
		GainDB:          req.NormalizeGainDB,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.MergeResponse{
		TaskID:     sub.JobID,
		Status:     string(sub.Status),
		TotalFiles: sub.TotalFiles,
	})
}

func (s *apiServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req api.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.daemon.mergeSvc.Cancel(req.TaskID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CancelResponse{TaskID: req.TaskID, Status: "cancellation requested"})
}

func (s *apiServer) handleCheckStatus(w http.ResponseWriter, r *http.Request) {
	var req api.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	job, err := s.daemon.mergeSvc.Status(req.TaskID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromJob(job))
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	jobCounts := make(map[string]int, len(status.JobCounts))
	for st, count := range status.JobCounts {
		jobCounts[string(st)] = count
	}
	dependencies := make([]api.DependencyStatus, 0, len(status.Dependencies))
	for _, dep := range status.Dependencies {
		dependencies = append(dependencies, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:       status.Running,
		PID:           status.PID,
		LibraryDBPath: status.LibraryDBPath,
		LockFilePath:  status.LockFilePath,
		ClipCount:     status.ClipCount,
		MergedCount:   status.MergedCount,
		JobCounts:     jobCounts,
		Subscribers:   status.Subscribers,
		WorkerCount:   status.WorkerCount,
		QueueDepth:    status.QueueDepth,
		Dependencies:  dependencies,
	})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case services.IsValidation(err):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case services.IsNotFound(err):
		s.writeError(w, http.StatusNotFound, err.Error())
	case services.IsQueueFull(err):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
