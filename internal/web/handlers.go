package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yasurirashmika/dtlc/internal/codegen"
	"github.com/yasurirashmika/dtlc/internal/compiler"
	"github.com/yasurirashmika/dtlc/internal/csvx"
	"github.com/yasurirashmika/dtlc/internal/state"
)

const (
	maxUploadBytes = 16 << 20
	uploadedName   = "uploaded_data.csv"
	generatedName  = "generated_output.py"
)

var (
	loadPathRe = regexp.MustCompile(`load\s+"[^"]+"`)
	savePathRe = regexp.MustCompile(`save\s+"([^"]+)"`)
)

type compileRequest struct {
	Code     string `json:"dtl_code"`
	Filename string `json:"filename"`
}

type compileResponse struct {
	Success         bool        `json:"success"`
	PythonCode      string      `json:"python_code"`
	ExecutionOutput string      `json:"execution_output"`
	OutputData      *outputData `json:"output_data"`
	Warnings        []string    `json:"warnings,omitempty"`
}

type outputData struct {
	Columns   []string            `json:"columns"`
	Rows      []map[string]string `json:"rows"`
	TotalRows int                 `json:"total_rows"`
	Filename  string              `json:"filename"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("csvfile")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No file selected")
		return
	}
	if !strings.HasSuffix(header.Filename, ".csv") {
		writeError(w, http.StatusBadRequest, "Invalid file type. Please upload a CSV.")
		return
	}

	path := filepath.Join(s.uploadsDir, uploadedName)
	dst, err := os.Create(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		writeError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	dst.Close()

	preview, err := csvx.ReadPreview(path, 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Error reading CSV preview: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"filename": uploadedName,
		"preview":  preview,
	})
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "No DTL code provided")
		return
	}

	s.clearOutputs()

	// Point the script at server-managed paths: loads read from the uploads
	// directory, saves land in the outputs directory.
	code := req.Code
	if req.Filename != "" {
		serverPath := normalizePath(filepath.Join(s.uploadsDir, filepath.Base(req.Filename)))
		code = loadPathRe.ReplaceAllString(code, fmt.Sprintf("load %q", serverPath))
	}
	code = savePathRe.ReplaceAllStringFunc(code, func(m string) string {
		name := filepath.Base(savePathRe.FindStringSubmatch(m)[1])
		return fmt.Sprintf("save %q", normalizePath(filepath.Join(s.outputsDir, name)))
	})

	res, err := compiler.Compile(code, compiler.Options{CheckFiles: true, CheckColumns: true})
	if errors.Is(err, compiler.ErrSemantic) {
		writeError(w, http.StatusBadRequest, formatSemanticFailure(res.Report.Errors, res.Report.Warnings))
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	scriptPath := filepath.Join(s.outputsDir, generatedName)
	if _, err := codegen.New(res.Program).WriteFile(scriptPath); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	run := s.startRun(req.Filename)

	execRes, execErr := s.runner.Run(r.Context(), scriptPath)

	out, outErr := s.readOutputPreview()
	if outErr != nil {
		s.finishRun(run, state.RunStatusFailed, "", len(res.Report.Warnings), outErr.Error())
		writeError(w, http.StatusInternalServerError, outErr.Error())
		return
	}
	if out == nil && execErr != nil {
		stderr := ""
		if execRes != nil {
			stderr = execRes.Stderr
		}
		s.finishRun(run, state.RunStatusFailed, "", len(res.Report.Warnings), execErr.Error())
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Script execution failed:\n%s", stderr))
		return
	}

	outputPath := ""
	if out != nil {
		outputPath = filepath.Join(s.outputsDir, out.Filename)
	}
	s.finishRun(run, state.RunStatusCompleted, outputPath, len(res.Report.Warnings), "")

	resp := compileResponse{
		Success:    true,
		PythonCode: res.Code,
		OutputData: out,
		Warnings:   res.Report.Warnings,
	}
	if execRes != nil {
		resp.ExecutionOutput = execRes.Stdout
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDownloadPython(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(s.outputsDir, generatedName)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "Python script not found")
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", generatedName))
	http.ServeFile(w, r, path)
}

func (s *Server) handleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	name := s.firstOutputCSV()
	if name == "" {
		writeError(w, http.StatusNotFound, "No CSV output file found")
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, filepath.Join(s.outputsDir, name))
}

// clearOutputs removes stale artifacts so each compile starts clean.
func (s *Server) clearOutputs() {
	entries, err := os.ReadDir(s.outputsDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".csv") || name == generatedName {
			os.Remove(filepath.Join(s.outputsDir, name))
		}
	}
}

func (s *Server) firstOutputCSV() string {
	entries, err := os.ReadDir(s.outputsDir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".csv") {
			return e.Name()
		}
	}
	return ""
}

func (s *Server) readOutputPreview() (*outputData, error) {
	name := s.firstOutputCSV()
	if name == "" {
		return nil, nil
	}
	preview, err := csvx.ReadPreview(filepath.Join(s.outputsDir, name), s.previewRows)
	if err != nil {
		return nil, fmt.Errorf("Error reading output CSV: %w", err)
	}
	return &outputData{
		Columns:   preview.Columns,
		Rows:      preview.Rows,
		TotalRows: preview.TotalRows,
		Filename:  name,
	}, nil
}

func (s *Server) startRun(script string) *state.Run {
	if s.store == nil {
		return nil
	}
	if script == "" {
		script = uploadedName
	}
	run, err := s.store.CreateRun(script)
	if err != nil {
		s.logger.Error("failed to record run", "error", err)
		return nil
	}
	return run
}

func (s *Server) finishRun(run *state.Run, status state.RunStatus, outputPath string, warnings int, errMsg string) {
	if run == nil || s.store == nil {
		return
	}
	upd := state.RunUpdate{Status: status, OutputPath: outputPath, Warnings: warnings, Error: errMsg}
	if err := s.store.CompleteRun(run.ID, upd); err != nil {
		s.logger.Error("failed to complete run", "run_id", run.ID, "error", err)
	}
}

func formatSemanticFailure(errs, warnings []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Semantic validation failed (%d errors):\n", len(errs))
	for i, e := range errs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("  • " + e)
	}
	if len(warnings) > 0 {
		fmt.Fprintf(&b, "\n\nWarnings (%d):\n", len(warnings))
		for i, warning := range warnings {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("  • " + warning)
		}
	}
	return b.String()
}

func normalizePath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	return filepath.ToSlash(abs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
