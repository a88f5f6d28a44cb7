package http

import (
	"log/slog"
	"net/http"

	"github.com/felipeimp22/persona-finances/internal/core"
)

// handleLogin renders the login form on GET and checks credentials on POST.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderTemplate(w, r, "login.html", struct{ Error string }{})

	case http.MethodPost:
		if resp := ParseFormOrFail(r); resp != nil {
			resp.Write(w)
			return
		}

		person := core.Person(sanitizeInput(r.Form.Get("person")))
		password := r.Form.Get("password")

		if err := s.authn.Authenticate(person, password); err != nil {
			slog.WarnContext(r.Context(), "Login failed", "person", string(person), "client_ip", extractClientIP(r))
			w.WriteHeader(http.StatusUnauthorized)
			s.renderTemplate(w, r, "login.html", struct{ Error string }{Error: "Invalid credentials"})
			return
		}

		sess, err := s.sessions.Create(person)
		if err != nil {
			slog.ErrorContext(r.Context(), "Session creation failed", "error", err)
			InternalServerError("Could not create session").Write(w)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.Token,
			Path:     "/",
			Expires:  sess.ExpiresAt,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		slog.InfoContext(r.Context(), "Login succeeded", "person", string(person))
		http.Redirect(w, r, "/", http.StatusSeeOther)

	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleLogout revokes the session and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	if cookie, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.Revoke(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	slog.InfoContext(r.Context(), "Logout", "person", string(sessionPerson(r)))
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
