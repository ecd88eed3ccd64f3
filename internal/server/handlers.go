package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/slowvak/midel/internal/auth"
	"github.com/slowvak/midel/internal/catalog"
	"github.com/slowvak/midel/internal/export"
	"github.com/slowvak/midel/internal/issue"
	"github.com/slowvak/midel/internal/publication"
	"github.com/slowvak/midel/internal/render"
)

// loadCatalog reads the catalog fresh for every request so edits show up on
// reload.
func (s *Server) loadCatalog() (publication.Catalog, error) {
	c, warnings, err := publication.Load(s.cfg.CatalogPath)
	if err != nil {
		s.logger.Error("loading catalog", zap.String("path", s.cfg.CatalogPath), zap.Error(err))
		return nil, err
	}
	for _, w := range warnings {
		s.logger.Warn("catalog record", zap.String("warning", w.String()))
	}
	return c, nil
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) auth.Session {
	sess, err := s.authenticator(w, r).Current()
	if err != nil {
		s.logger.Warn("reading session", zap.Error(err))
		return auth.Session{}
	}
	return sess
}

func filterFromQuery(r *http.Request) catalog.Filter {
	q := r.URL.Query()
	return catalog.Filter{
		Query:  q.Get("q"),
		Year:   q.Get("year"),
		Status: q.Get("status"),
		Mode:   catalog.StatusMode(q.Get("mode")),
	}
}

func (s *Server) writePage(w http.ResponseWriter, status int, p render.Page) {
	out, err := render.HTML(p)
	if err != nil {
		s.logger.Error("rendering page", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(out))
}

// page builds the full page for the current request, or the error page when
// the catalog cannot be loaded.
func (s *Server) page(w http.ResponseWriter, r *http.Request, f catalog.Filter) (render.Page, publication.Catalog, bool) {
	sess := s.session(w, r)
	c, err := s.loadCatalog()
	if err != nil {
		return render.ErrorPage(sess), nil, false
	}
	return render.Page{
		View:    catalog.Build(c).Apply(f),
		Filter:  f,
		Session: sess,
		Flash:   popFlash(w, r),
	}, c, true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	f := filterFromQuery(r)
	if err := f.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p, _, ok := s.page(w, r, f)
	if !ok {
		s.writePage(w, http.StatusInternalServerError, p)
		return
	}
	s.writePage(w, http.StatusOK, p)
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(s.cfg.CatalogPath)
	if err != nil {
		s.logger.Error("reading catalog", zap.Error(err))
		http.Error(w, render.LoadErrorMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c, err := s.loadCatalog()
	if err != nil {
		http.Error(w, render.LoadErrorMessage, http.StatusInternalServerError)
		return
	}
	out, err := export.Render(export.Citations(c), f)
	if err != nil {
		s.logger.Error("exporting", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+f.Filename()+`"`)
	_, _ = w.Write(out)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	sess, err := s.authenticator(w, r).Login(r.Context(), username)
	switch {
	case err == nil:
		s.logger.Info("login", zap.String("username", sess.Username))
		setFlash(w, "Logged in as "+sess.Username)
	case errors.Is(err, auth.ErrEmptyUsername):
		setFlash(w, "Enter your GitHub username.")
	case errors.Is(err, auth.ErrNotAllowed):
		s.logger.Info("login rejected", zap.String("username", username))
		setFlash(w, "That username is not on the contributor list.")
	default:
		s.logger.Warn("login", zap.Error(err))
		setFlash(w, "Login failed. Please try again.")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.authenticator(w, r).Logout(); err != nil {
		s.logger.Warn("logout", zap.Error(err))
	}
	setFlash(w, "Logged out")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleCheckTitle(w http.ResponseWriter, r *http.Request) {
	c, err := s.loadCatalog()
	if err != nil {
		http.Error(w, render.LoadErrorMessage, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, catalog.CheckTitle(c, r.URL.Query().Get("title")))
}

func submissionFromForm(r *http.Request) issue.Submission {
	return issue.Submission{
		Title:  r.PostFormValue("title"),
		Author: r.PostFormValue("author"),
		Year:   r.PostFormValue("year"),
		URL:    r.PostFormValue("url"),
	}
}

func confirmed(r *http.Request) bool {
	ok, _ := strconv.ParseBool(r.PostFormValue("confirm_duplicate"))
	return ok
}

// prepare runs the checks shared by preview and submit. It writes the
// response itself and returns nil when the request cannot proceed.
func (s *Server) prepare(w http.ResponseWriter, r *http.Request) *issue.Issue {
	sess := s.session(w, r)
	if !sess.CanSubmit() {
		http.Error(w, "log in as a contributor to submit publications", http.StatusForbidden)
		return nil
	}
	sub := submissionFromForm(r)

	p, c, ok := s.page(w, r, catalog.Filter{})
	if !ok {
		s.writePage(w, http.StatusInternalServerError, p)
		return nil
	}
	p.Form = sub

	if err := sub.Validate(); err != nil {
		p.Flash = err.Error()
		s.writePage(w, http.StatusBadRequest, p)
		return nil
	}

	override := false
	if res := catalog.CheckSubmission(c, sub.Title); res.Duplicate {
		if !confirmed(r) {
			p.Duplicate = &res
			p.Flash = "This title is already listed. Confirm to submit anyway."
			s.writePage(w, http.StatusConflict, p)
			return nil
		}
		override = true
	}

	iss, err := s.cfg.Issues.Build(sub, sess.Username, override)
	if err != nil {
		p.Flash = err.Error()
		s.writePage(w, http.StatusBadRequest, p)
		return nil
	}
	return iss
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	iss := s.prepare(w, r)
	if iss == nil {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.WritePreview(w, iss); err != nil {
		s.logger.Error("rendering preview", zap.Error(err))
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	iss := s.prepare(w, r)
	if iss == nil {
		return
	}
	s.logger.Info("submission", zap.String("title", iss.Title), zap.String("repo", s.cfg.Issues.Repo()))
	http.Redirect(w, r, iss.URL, http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
