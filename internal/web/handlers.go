package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/ibreport/internal/logging"
	"github.com/JonMunkholm/ibreport/internal/report"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 500
	// multipart parts above this size are spooled to disk
	maxFormMemory = 32 << 20
)

var (
	errNoFile       = errors.New("no file provided")
	errFileNotFound = errors.New("result file not found")
	errInvalidRunID = errors.New("invalid run id")
)

// ScriptInfo describes a script for clients.
type ScriptInfo struct {
	Name        string `json:"name"`
	Group       string `json:"group"`
	Usage       string `json:"usage"`
	Description string `json:"description"`
	MinArgs     int    `json:"min_args"`
	NeedsInput  bool   `json:"needs_input"`
	NeedsSource bool   `json:"needs_source"`
}

// FileLink points to one result file of a run.
type FileLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// RunResponse is returned by POST /api/run/{script}.
type RunResponse struct {
	RunID   string     `json:"run_id"`
	Script  string     `json:"script"`
	Files   []FileLink `json:"files"`
	Message string     `json:"message,omitempty"`
}

func (s *Server) handleListScripts(w http.ResponseWriter, r *http.Request) {
	scripts := report.All()
	infos := make([]ScriptInfo, 0, len(scripts))
	for _, sc := range scripts {
		infos = append(infos, ScriptInfo{
			Name:        sc.Name,
			Group:       sc.Group,
			Usage:       sc.Usage,
			Description: sc.Description,
			MinArgs:     sc.MinArgs,
			NeedsInput:  !sc.NoInput,
			NeedsSource: sc.SourceArg,
		})
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleRun runs a script on the uploaded files. The form carries the
// download as "infile", the customer master data as "source" for scripts
// that need it, and the remaining positional arguments as repeated "arg".
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "script")
	script, ok := report.Get(name)
	if !ok {
		err := fmt.Errorf("%w: %s", report.ErrUnknownScript, name)
		respondError(w, r, err, statusFor(err))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		if !script.NoInput || !errors.Is(err, http.ErrNotMultipart) {
			status, ferr := formError(err)
			respondError(w, r, ferr, status)
			return
		}
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	runDir := filepath.Join(s.cfg.ResultsDir, uuid.NewString())
	uploadDir := filepath.Join(runDir, "upload")
	defer os.RemoveAll(uploadDir)

	req := report.Request{
		Script:    script.Name,
		OutputDir: filepath.Join(runDir, "out"),
	}
	if r.MultipartForm != nil {
		req.Args = r.MultipartForm.Value["arg"]
	}

	if !script.NoInput {
		input, err := saveFormFile(r, "infile", uploadDir)
		if err != nil {
			respondError(w, r, err, statusFor(err))
			return
		}
		req.Input = input
	}
	if script.SourceArg {
		source, err := saveFormFile(r, "source", uploadDir)
		if err != nil {
			respondError(w, r, err, statusFor(err))
			return
		}
		req.Args = append([]string{source}, req.Args...)
	}

	logger := logging.WithFields(r.Context(), "script", script.Name)
	logger.Info("run requested", "args", len(req.Args))

	res, err := s.runner.Run(r.Context(), req)
	if err != nil {
		os.RemoveAll(runDir)
		respondError(w, r, err, statusFor(err))
		return
	}

	logger.Info("run stored", "run_id", res.RunID, "dir", runDir, "files", len(res.Outputs))

	resp := RunResponse{RunID: res.RunID, Script: res.Script, Message: res.Message}
	for _, out := range res.Outputs {
		base := filepath.Base(out)
		resp.Files = append(resp.Files, FileLink{
			Name: base,
			URL:  "/api/runs/" + res.RunID + "/files/" + base,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := min(parseIntParam(r, "limit", defaultRunsLimit), maxRunsLimit)
	runs, err := s.recorder.List(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, errInvalidRunID, statusFor(errInvalidRunID))
		return
	}
	run, err := s.recorder.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleRunFile downloads one output of a recorded run. Only files listed
// in the run's outputs are served.
func (s *Server) handleRunFile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, errInvalidRunID, statusFor(errInvalidRunID))
		return
	}
	run, err := s.recorder.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	name := chi.URLParam(r, "name")
	for _, out := range run.Outputs {
		if filepath.Base(out) != name {
			continue
		}
		if strings.EqualFold(filepath.Ext(name), ".csv") {
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		http.ServeFile(w, r, out)
		return
	}
	respondError(w, r, errFileNotFound, statusFor(errFileNotFound))
}

// saveFormFile stores the uploaded file of field in dir and returns its
// path.
func saveFormFile(r *http.Request, field, dir string) (string, error) {
	if r.MultipartForm == nil {
		return "", fmt.Errorf("%w: %s", errNoFile, field)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("%w: %s", errNoFile, field)
	}
	defer file.Close()

	return writeUpload(file, header, filepath.Join(dir, field))
}

func writeUpload(src multipart.File, header *multipart.FileHeader, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := filepath.Base(filepath.Clean("/" + header.Filename))
	if name == "/" || name == "." {
		name = "upload.csv"
	}
	path := filepath.Join(dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("store upload: %w", err)
	}
	return path, dst.Close()
}

func formError(err error) (int, error) {
	var maxBytes *http.MaxBytesError
	// multipart does not wrap every read error
	if errors.As(err, &maxBytes) || strings.Contains(err.Error(), "request body too large") {
		return http.StatusRequestEntityTooLarge, fmt.Errorf("file too large: %w", err)
	}
	return http.StatusBadRequest, fmt.Errorf("%w: %w", errNoFile, err)
}

// parseIntParam extracts a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			return i
		}
	}
	return defaultVal
}
