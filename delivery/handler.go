package delivery

import (
	"bytes"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"woorkroom-web/delivery/model"
)

// HTTPEndpoint holds a reference to the core application.
type HTTPEndpoint struct {
	app AppDependencies
}

// homeHandler renders the protected landing page.
func (h *HTTPEndpoint) homeHandler(w http.ResponseWriter, r *http.Request) {
	data := model.HomePage{Notice: takeFlash(w, r)}
	h.render(w, http.StatusOK, homeTemplate, "home.html", data)
}

// errorHandler renders the generic error page.
func (h *HTTPEndpoint) errorHandler(w http.ResponseWriter, r *http.Request) {
	data := model.ErrorPage{
		ID:     r.URL.Query().Get("id"),
		Reason: r.URL.Query().Get("reason"),
	}
	if data.Reason == "" {
		data.Reason = "An unexpected error occurred."
	}
	h.render(w, http.StatusInternalServerError, errorTemplate, "error.html", data)
}

func (h *HTTPEndpoint) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// render executes the template into a buffer first so a failing template never leaves
// a half-written page behind.
func (h *HTTPEndpoint) render(w http.ResponseWriter, status int, t *template.Template, name string, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		h.app.GetLogger().Error("failed to execute template", zap.String("template", name), zap.Error(err))
		http.Error(w, "Failed to render the page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
