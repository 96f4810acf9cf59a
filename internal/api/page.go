package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"rul-dashboard/internal/backend"
	"rul-dashboard/internal/module"
)

//go:embed templates/dashboard.html templates/favicon.svg
var assets embed.FS

const neutralAccent = "hsl(215 16% 47%)"

var pageFuncs = template.FuncMap{
	"accent": func(v module.View) template.CSS {
		return template.CSS(accentOf(v))
	},
	"gaugeStyle": func(v module.View) template.CSS {
		return template.CSS(fmt.Sprintf(
			"background: conic-gradient(%s %.1fdeg, rgba(148, 163, 184, 0.18) 0deg)",
			accentOf(v), v.Assessment.GaugeDegrees))
	},
	"barStyle": func(v module.View) template.CSS {
		return template.CSS(fmt.Sprintf("width: %.1f%%; background: %s",
			v.Assessment.GaugePercent, accentOf(v)))
	},
	"pct": func(f float64) string {
		return fmt.Sprintf("%.0f%%", f)
	},
	"margin": func(m *float64) string {
		if m == nil {
			return "n/a"
		}
		return fmt.Sprintf("%.0f%%", *m)
	},
}

func accentOf(v module.View) string {
	if v.Assessment.Status == nil {
		return neutralAccent
	}
	return v.Assessment.Status.AccentColor
}

var dashboardTemplate = template.Must(
	template.New("dashboard.html").Funcs(pageFuncs).ParseFS(assets, "templates/dashboard.html"),
)

type pageData struct {
	Modules []module.View
	Backend backend.Status
}

/* ---------------- GET / ---------------- */

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	data := pageData{
		Modules: h.dashboard.Views(),
		Backend: h.monitor.Snapshot(),
	}
	if err := dashboardTemplate.Execute(&buf, data); err != nil {
		h.logger.Error("render dashboard: " + err.Error())
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

/* ---------------- POST /modules/{subsystem} ---------------- */

// SubmitForm runs a prediction from a classic form post and redirects back
// to the module card. The outcome is rendered from module state.
func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	m, ok := h.lookup(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	form := make(map[string]string, len(m.Definition().Fields))
	for _, f := range m.Definition().Fields {
		form[f.Name] = r.PostForm.Get(f.Name)
	}
	_, _ = m.Submit(r.Context(), form)

	http.Redirect(w, r, "/#"+string(m.Definition().ID), http.StatusSeeOther)
}

/* ---------------- GET /favicon.svg ---------------- */

func (h *Handler) Favicon(w http.ResponseWriter, r *http.Request) {
	icon, err := assets.ReadFile("templates/favicon.svg")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(icon)
}
