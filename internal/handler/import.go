package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pkordes/rideshare-importer/internal/domain"
	"github.com/pkordes/rideshare-importer/internal/upload"
)

// uploadField is the multipart field carrying the export file.
const uploadField = "import"

// errNoFile is reported when the form carries no export file.
var errNoFile = errors.New("no export file was uploaded")

// GetImport handles GET /import: the instructions and the upload form.
func (s *Server) GetImport(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, "form", s.page(r))
}

// PostImport handles POST /import. It stores the uploaded export, imports it
// and streams one line per trip while the import runs. The upload is removed
// afterwards whatever the outcome.
func (s *Server) PostImport(w http.ResponseWriter, r *http.Request) {
	file, err := s.receiveUpload(r)
	if err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.Is(err, upload.ErrTooLarge) || errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		s.log.WarnContext(r.Context(), "upload rejected", "error", err)
		data := s.page(r)
		data.Detail = err.Error()
		s.renderPage(w, r, status, "error", data)
		return
	}
	s.log.InfoContext(r.Context(), "export uploaded", "bytes", file.Size)

	progress := &progressWriter{w: w, base: s.page(r)}
	progress.flusher, _ = w.(http.Flusher)

	// The import runs to completion even if the client disconnects.
	summary, err := s.imports.ImportUpload(context.WithoutCancel(r.Context()), file, progress)
	if err != nil {
		data := s.page(r)
		data.Detail = unwrapMessage(err)
		if !progress.started {
			// Nothing was streamed yet, so the status can still say what went wrong.
			s.renderPage(w, r, statusFor(err), "error", data)
			return
		}
		progress.execute("aborted", data)
		return
	}

	progress.start()
	data := s.page(r)
	data.SiteURL = s.opts.SiteURL
	progress.execute("done", data)
	s.log.InfoContext(r.Context(), "import page complete",
		"imported", summary.Imported(), "failed", summary.Failed, "skipped", summary.Skipped)
}

// receiveUpload streams the export field of the multipart form to disk.
func (s *Server) receiveUpload(r *http.Request) (*upload.File, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("read form: %w", err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, errNoFile
		}
		if err != nil {
			return nil, fmt.Errorf("read form: %w", err)
		}
		if part.FormName() != uploadField || part.FileName() == "" {
			part.Close()
			continue
		}
		file, err := upload.Save(part, s.opts.UploadDir, s.opts.MaxUploadBytes)
		part.Close()
		return file, err
	}
}

func (s *Server) page(r *http.Request) pageData {
	return pageData{
		Msgs:     s.opts.Messages,
		Action:   r.URL.Path,
		MaxBytes: s.opts.MaxUploadBytes,
	}
}

// renderPage writes a complete HTML page.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		s.log.ErrorContext(r.Context(), "render page", "template", name, "error", err)
	}
}

// progressWriter streams the import page. The page head is written with the
// first trip, so a run that fails before any trip can still answer with an
// error status.
type progressWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	base    pageData
	started bool
	err     error
}

// TripProcessed writes and flushes the line for one trip.
func (p *progressWriter) TripProcessed(res domain.TripResult) {
	p.start()
	data := p.base
	data.Result = res
	p.execute("progress", data)
}

func (p *progressWriter) start() {
	if p.started {
		return
	}
	p.started = true
	p.w.Header().Set("Content-Type", "text/html; charset=utf-8")
	p.w.Header().Set("X-Content-Type-Options", "nosniff")
	p.w.WriteHeader(http.StatusOK)
	p.execute("progress-open", p.base)
}

// execute renders one fragment. After the first write error (usually the
// client going away) further output is dropped; the import itself carries on.
func (p *progressWriter) execute(name string, data pageData) {
	if p.err != nil {
		return
	}
	if p.err = pages.ExecuteTemplate(p.w, name, data); p.err != nil {
		return
	}
	if p.flusher != nil {
		p.flusher.Flush()
	}
}
