package app

import (
	"context"
	"errors"
	"strings"

	"dailyreport/internal/util"
	"dailyreport/pkg/domain"
	"dailyreport/services/web/internal/authclient"
)

const (
	msgGateDenied         = "Access denied."
	msgRegisterRequired   = "Please fill in all fields."
	msgRegisterFailed     = "Registration failed."
	msgResetFailed        = "Password reset failed."
	msgResetTokenInvalid  = "This token is invalid or has expired."
	msgRegisterNotAllowed = "Unlock the registration page first."
)

// RegisterUnlocked reports whether this visitor may see the registration
// form. Always true when no gate is configured.
func (v *Visitor) RegisterUnlocked() bool {
	if !v.gate.Enabled() {
		return true
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.registerUnlocked
}

// UnlockRegister checks the registration gate credentials.
func (v *Visitor) UnlockRegister(ctx context.Context, id, password string) error {
	if err := v.gate.Check(id, password); err != nil {
		util.SecurityEvent(ctx, "register_gate", "denied")
		return domain.NewFailure(domain.KindRejected, msgGateDenied, err)
	}
	v.mu.Lock()
	v.registerUnlocked = true
	v.mu.Unlock()
	util.SecurityEvent(ctx, "register_gate", "success")
	return nil
}

// Register creates an account. The backend's reply text is the message in
// both the success and the rejected case.
func (v *Visitor) Register(ctx context.Context, reg domain.Registration) (string, error) {
	if !v.RegisterUnlocked() {
		return "", domain.NewFailure(domain.KindForbidden, msgRegisterNotAllowed, nil)
	}
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Team = strings.TrimSpace(reg.Team)
	if reg.Email == "" || reg.Password == "" || reg.Name == "" || reg.Team == "" {
		return "", domain.NewFailure(domain.KindValidation, msgRegisterRequired, nil)
	}
	text, err := v.accounts.Register(ctx, reg)
	if err != nil {
		util.SecurityEvent(ctx, "register", "failed", "err", err)
		return "", textFailure(ctx, err, msgRegisterFailed)
	}
	util.SecurityEvent(ctx, "register", "success")
	return text, nil
}

// ForgotPassword requests a reset mail. An empty email sends nothing and
// returns an empty message.
func (v *Visitor) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", nil
	}
	text, err := v.accounts.ForgotPassword(ctx, email)
	if err != nil {
		util.SecurityEvent(ctx, "password_forgot", "failed", "err", err)
		return "", textFailure(ctx, err, msgResetFailed)
	}
	util.SecurityEvent(ctx, "password_forgot", "success")
	return text, nil
}

// VerifyResetToken checks a reset token before the form is shown. A missing
// token fails without a request.
func (v *Visitor) VerifyResetToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return domain.NewFailure(domain.KindValidation, msgResetTokenInvalid, nil)
	}
	if err := v.accounts.VerifyResetToken(ctx, token); err != nil {
		var apiErr *authclient.APIError
		if !errors.As(err, &apiErr) {
			util.LoggerFromContext(ctx).Warn("verify reset token failed", "err", err)
		}
		return domain.NewFailure(domain.KindRejected, msgResetTokenInvalid, err)
	}
	return nil
}

// ResetPassword sets a new password. An empty password sends nothing and
// returns an empty message.
func (v *Visitor) ResetPassword(ctx context.Context, token, password string) (string, error) {
	if password == "" {
		return "", nil
	}
	text, err := v.accounts.ResetPassword(ctx, token, password)
	if err != nil {
		util.SecurityEvent(ctx, "password_reset", "failed", "err", err)
		return "", textFailure(ctx, err, msgResetFailed)
	}
	util.SecurityEvent(ctx, "password_reset", "success")
	return text, nil
}

// textFailure shows the backend's reply verbatim; a transport problem gets
// the generic message.
func textFailure(ctx context.Context, err error, generic string) *domain.Failure {
	var apiErr *authclient.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = generic
		}
		return domain.NewFailure(domain.KindRejected, msg, err)
	}
	if errors.Is(err, authclient.ErrUnexpectedResponse) {
		util.LoggerFromContext(ctx).Error("unexpected auth response", "err", err)
		return domain.NewFailure(domain.KindUnexpected, generic, err)
	}
	util.LoggerFromContext(ctx).Warn("auth request failed", "err", err)
	return domain.NewFailure(domain.KindTransport, generic, err)
}
