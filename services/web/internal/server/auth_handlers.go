package server

import (
	"net/http"
	"strings"

	"dailyreport/pkg/domain"
	"dailyreport/services/web/internal/app"
	"dailyreport/services/web/internal/session"
)

type loginForm struct {
	Email string
	Error string
	Busy  bool
}

type registerForm struct {
	Email   string
	Name    string
	Team    string
	Message string
	Error   string
}

type gateForm struct {
	ID    string
	Error string
}

type resetForm struct {
	Token     string
	Confirmed bool
	Message   string
	Error     string
	Done      bool
}

type forgotForm struct {
	Email   string
	Message string
	Error   string
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request, v *app.Visitor) {
	if v.Session.Snapshot().IsAuthenticated() {
		http.Redirect(w, r, session.ReportsPath, http.StatusSeeOther)
		return
	}
	s.render(w, r, v, http.StatusOK, "login", "Sign in", loginForm{Busy: v.Auth.Busy()})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request, v *app.Visitor) {
	form := loginForm{Email: strings.TrimSpace(r.PostFormValue("email"))}
	if ok, retry := s.allowRate(r, s.loginLimiter); !ok {
		setRetryAfter(w, retry)
		form.Error = msgTooManyAttempts
		s.render(w, r, v, http.StatusTooManyRequests, "login", "Sign in", form)
		return
	}
	next, err := v.Auth.Login(r.Context(), form.Email, r.PostFormValue("password"))
	if err != nil {
		form.Error = domain.MessageOf(err, "Login failed.")
		status := statusFor(err)
		if domain.KindOf(err) == domain.KindRejected {
			status = http.StatusUnauthorized
		}
		s.render(w, r, v, status, "login", "Sign in", form)
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, v *app.Visitor) {
	http.Redirect(w, r, v.Logout(r.Context()), http.StatusSeeOther)
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request, v *app.Visitor) {
	if !v.RegisterUnlocked() {
		s.render(w, r, v, http.StatusOK, "register_gate", "Registration access", gateForm{})
		return
	}
	s.render(w, r, v, http.StatusOK, "register", "Create account", registerForm{})
}

// handleRegister serves both the gate form and the registration form.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request, v *app.Visitor) {
	if !v.RegisterUnlocked() || r.PostFormValue("step") == "gate" {
		s.handleRegisterGate(w, r, v)
		return
	}
	form := registerForm{
		Email: strings.TrimSpace(r.PostFormValue("email")),
		Name:  strings.TrimSpace(r.PostFormValue("name")),
		Team:  strings.TrimSpace(r.PostFormValue("team")),
	}
	msg, err := v.Register(r.Context(), domain.Registration{
		Email:    form.Email,
		Password: r.PostFormValue("password"),
		Name:     form.Name,
		Team:     form.Team,
	})
	if err != nil {
		form.Error = domain.MessageOf(err, "Registration failed.")
		s.render(w, r, v, statusFor(err), "register", "Create account", form)
		return
	}
	form.Message = msg
	s.render(w, r, v, http.StatusOK, "register", "Create account", form)
}

func (s *Server) handleRegisterGate(w http.ResponseWriter, r *http.Request, v *app.Visitor) {
	form := gateForm{ID: r.PostFormValue("gate_id")}
	if ok, retry := s.allowRate(r, s.gateLimiter); !ok {
		setRetryAfter(w, retry)
		form.Error = msgTooManyAttempts
		s.render(w, r, v, http.StatusTooManyRequests, "register_gate", "Registration access", form)
		return
	}
	if err := v.UnlockRegister(r.Context(), form.ID, r.PostFormValue("gate_password")); err != nil {
		form.Error = domain.MessageOf(err, "Access denied.")
		s.render(w, r, v, http.StatusForbidden, "register_gate", "Registration access", form)
		return
	}
	http.Redirect(w, r, "/register", http.StatusSeeOther)
}

func (s *Server) handleForgotForm(w http.ResponseWriter, r *http.Request, v *app.Visitor) {
	s.render(w, r, v, http.StatusOK, "forgot_password", "Forgot password", forgotForm{})
}

func (s *Server) handleForgot(w http.ResponseWriter, r *http.Request, v *app.Visitor) {
	form := forgotForm{Email: strings.TrimSpace(r.PostFormValue("email"))}
	msg, err := v.ForgotPassword(r.Context(), form.Email)
	if err != nil {
		form.Error = domain.MessageOf(err, "Password reset failed.")
		s.render(w, r, v, statusFor(err), "forgot_password", "Forgot password", form)
		return
	}
	form.Message = msg
	s.render(w, r, v, http.StatusOK, "forgot_password", "Forgot password", form)
}

func (s *Server) handleResetForm(w http.ResponseWriter, r *http.Request, v *app.Visitor) {
	form := resetForm{Token: r.URL.Query().Get("token")}
	if err := v.VerifyResetToken(r.Context(), form.Token); err != nil {
		form.Error = domain.MessageOf(err, "This token is invalid or has expired.")
		s.render(w, r, v, http.StatusOK, "reset_password", "Reset password", form)
		return
	}
	form.Confirmed = true
	s.render(w, r, v, http.StatusOK, "reset_password", "Reset password", form)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, v *app.Visitor) {
	form := resetForm{Token: r.PostFormValue("token"), Confirmed: true}
	msg, err := v.ResetPassword(r.Context(), form.Token, r.PostFormValue("password"))
	if err != nil {
		form.Error = domain.MessageOf(err, "Password reset failed.")
		s.render(w, r, v, statusFor(err), "reset_password", "Reset password", form)
		return
	}
	if msg != "" {
		form.Message = msg
		form.Done = true
	}
	s.render(w, r, v, http.StatusOK, "reset_password", "Reset password", form)
}
