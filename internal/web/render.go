package web

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"esign-workflows/internal/common/errors"
	"esign-workflows/internal/common/logger"

	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	templateExt = ".html"
	layoutFile  = "layout" + templateExt
)

// Page is the data handed to every template.
type Page struct {
	Title string
	Flash []string
	Form  map[string]string
	Data  interface{}
}

// DonePage is shown after a workflow that sends rather than redirects.
type DonePage struct {
	Title   string
	Heading string
	Message string
	Details []string
}

// ErrorPage carries the provider's error code and message when there is one.
type ErrorPage struct {
	ErrorCode    string
	ErrorMessage string
	Step         string
	Fields       []string
	BatchID      string
	EnvelopeID   string
}

// Renderer executes the embedded pages through a pongo2 template set. Every
// page extends layout.html and fills its content block.
type Renderer struct {
	pages   map[string]*pongo2.Template
	appName string
	logger  logger.Logger
}

func NewRenderer(appName string, log logger.Logger) (*Renderer, error) {
	files, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	set := pongo2.NewSet("web", pongo2.NewFSLoader(files))

	names, err := fs.Glob(files, "*"+templateExt)
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*pongo2.Template, len(names))
	for _, name := range names {
		if name == layoutFile {
			continue
		}
		tpl, err := set.FromFile(name)
		if err != nil {
			return nil, fmt.Errorf("load template %q: %w", name, err)
		}
		pages[strings.TrimSuffix(path.Base(name), templateExt)] = tpl
	}

	return &Renderer{pages: pages, appName: appName, logger: log}, nil
}

// Render executes the named page inside the layout.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) {
	tpl, ok := r.pages[name]
	if !ok {
		r.logger.Error("unknown template", map[string]interface{}{"template": name})
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tpl.ExecuteWriter(page.context(r.appName), &buf); err != nil {
		r.logger.Error("template execution failed", map[string]interface{}{"template": name, "error": err})
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (p Page) context(appName string) pongo2.Context {
	return pongo2.Context{
		"Title":   p.Title,
		"AppName": appName,
		"Flash":   p.Flash,
		"Form":    p.Form,
		"Data":    p.Data,
	}
}

func (r *Renderer) Done(w http.ResponseWriter, done DonePage) {
	r.Render(w, http.StatusOK, "done", Page{Title: done.Title, Data: done})
}

// Error renders err according to its code: validation failures get the 400
// page, remote failures show the provider's code and message.
func (r *Renderer) Error(w http.ResponseWriter, err error) {
	stdErr := errors.Normalize(err)
	data := ErrorPage{Step: stdErr.Step()}
	data.BatchID, _ = stdErr.Metadata[errors.MetaBatchID].(string)
	data.EnvelopeID, _ = stdErr.Metadata[errors.MetaEnvelopeID].(string)

	switch stdErr.Code {
	case errors.ErrCodeValidationFailed:
		data.ErrorMessage = stdErr.Details
		if fields, ok := stdErr.Metadata[errors.MetaFields].([]string); ok {
			data.Fields = fields
		}
		r.Render(w, http.StatusBadRequest, "bad_request", Page{Title: "Bad request", Data: data})
		return

	case errors.ErrCodeRemoteAPIError:
		data.ErrorCode, _ = stdErr.Metadata[errors.MetaProviderErrorCode].(string)
		data.ErrorMessage, _ = stdErr.Metadata[errors.MetaProviderMessage].(string)
		if data.ErrorCode == "" {
			data.ErrorCode = string(stdErr.Code)
		}
		if data.ErrorMessage == "" {
			data.ErrorMessage = stdErr.Details
		}
		r.Render(w, http.StatusBadGateway, "error", Page{Title: "Error", Data: data})
		return

	case errors.ErrCodeBatchPollTimeout:
		data.ErrorCode = string(stdErr.Code)
		data.ErrorMessage = "The bulk send was submitted but is still being processed. Check the batch status in DocuSign."
		r.Render(w, http.StatusGatewayTimeout, "error", Page{Title: "Error", Data: data})
		return

	case errors.ErrCodeDocumentNotFound:
		data.ErrorCode = string(stdErr.Code)
		data.ErrorMessage = stdErr.Details
		r.Render(w, http.StatusNotFound, "error", Page{Title: "Error", Data: data})
		return
	}

	r.logger.Error("request failed", map[string]interface{}{"code": stdErr.Code, "error": err})
	data.ErrorCode = string(stdErr.Code)
	data.ErrorMessage = stdErr.Message
	r.Render(w, http.StatusInternalServerError, "error", Page{Title: "Error", Data: data})
}
