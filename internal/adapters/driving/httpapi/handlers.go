package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

const pdfMIMEType = "application/pdf"

type searchRequest struct {
	QueryText string `json:"query_text"`
	K         int    `json:"k"`
}

type searchResponse struct {
	Results []domain.SearchResult `json:"results"`
}

type answerRequest struct {
	Query string `json:"query"`
}

type uploadResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
	Detail   string `json:"detail"`

	Report *domain.IngestReport `json:"report"`
}

// root reports that the API is up, with index statistics.
func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, map[string]any{
		"status": "sercha-rag API is running.",
		"index":  s.cfg.Search.Stats(),
	}, http.StatusOK)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// upload stores the PDF under a random name, ingests it and removes it.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, fmt.Sprintf("reading upload: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	mediaType, _, _ := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if mediaType != pdfMIMEType {
		respondError(w, "Invalid file type. Only PDF files are accepted.", http.StatusBadRequest)
		return
	}

	filename := filepath.Base(header.Filename)
	if filename == "." || filename == string(filepath.Separator) {
		respondError(w, "upload has no file name", http.StatusBadRequest)
		return
	}

	tempPath := filepath.Join(s.cfg.UploadDir, uuid.NewString()+".pdf")
	if err := saveUpload(tempPath, file); err != nil {
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("removing upload %s: %v", tempPath, err)
		}
	}()

	report, err := s.cfg.Ingest.Ingest(r.Context(), domain.IngestRequest{
		Path:   tempPath,
		Source: filename,
	})
	if err != nil {
		respondError(w, err.Error(), statusFor(err))
		return
	}

	respondJSON(w, uploadResponse{
		Status:   "success",
		Filename: filename,
		Detail:   "File processed and indexed successfully.",
		Report:   report,
	}, http.StatusOK)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.K == 0 {
		req.K = s.cfg.SearchK
	}
	if err := domain.CheckK(req.K); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	results, err := s.cfg.Search.Search(r.Context(), req.QueryText, req.K)
	if err != nil {
		respondError(w, err.Error(), statusFor(err))
		return
	}
	if results == nil {
		results = []domain.SearchResult{}
	}

	respondJSON(w, searchResponse{Results: results}, http.StatusOK)
}

func (s *Server) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	answer, err := s.cfg.Answer.Answer(r.Context(), req.Query)
	if err != nil {
		body := map[string]string{"error": err.Error()}
		if stage := domain.FailedStage(err); stage != "" {
			body["stage"] = stage
		}
		respondJSON(w, body, statusFor(err))
		return
	}

	respondJSON(w, answer, http.StatusOK)
}

// history lists recent ingest attempts. ?limit bounds the count.
func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := s.cfg.History.History(r.Context(), limit)
	if err != nil {
		respondError(w, err.Error(), statusFor(err))
		return
	}
	if records == nil {
		records = []domain.IngestRecord{}
	}
	respondJSON(w, map[string]any{"records": records}, http.StatusOK)
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close() //nolint:errcheck
		return fmt.Errorf("writing upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("closing upload file: %w", err)
	}
	return nil
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("encoding response: %v", err)
	}
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, map[string]string{"error": message}, statusCode)
}
