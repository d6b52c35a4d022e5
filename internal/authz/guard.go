// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/rolegate/internal/audit"
	"github.com/tomtom215/rolegate/internal/logging"
	"github.com/tomtom215/rolegate/internal/roles"
)

// Request is a command invocation as seen by a handler.
type Request struct {
	UserID string
	Args   []string
}

// Response is what a handler returns to the bot layer.
type Response struct {
	Text string
	Data interface{}
}

// HandlerFunc implements a command.
type HandlerFunc func(ctx context.Context, req Request) (Response, error)

// Resolver looks up a user's role record. *AuthCache implements it.
type Resolver interface {
	Resolve(ctx context.Context, userID string) (Resolution, error)
}

// Denial is returned as the error of a guarded handler when access is
// refused. Only Allowed and Message are meant for the user.
type Denial struct {
	Allowed bool   `json:"allowed"`
	Message string `json:"message"`

	Reason  Reason `json:"-"`
	Handler string `json:"-"`
}

func (d *Denial) Error() string {
	return fmt.Sprintf("access to %s denied: %s", d.Handler, d.Reason)
}

// AsDenial extracts a *Denial from err.
func AsDenial(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// DenialMessages is the user-facing copy shown when a command is refused,
// selected by the command's required role.
type DenialMessages struct {
	Viewer      string `koanf:"viewer"`
	Coordinator string `koanf:"coordinator"`
	Admin       string `koanf:"admin"`
}

// DefaultDenialMessages returns the stock copy.
func DefaultDenialMessages() DenialMessages {
	return DenialMessages{
		Viewer:      "You don't have access to this bot yet. Ask an organiser to add you.",
		Coordinator: "This command is for coordinators. Ask an admin if you need access.",
		Admin:       "This command is restricted to admins.",
	}
}

// For returns the copy for a required role, falling back to the defaults for
// empty entries.
func (m DenialMessages) For(required roles.Role) string {
	def := DefaultDenialMessages()
	pick := func(s, fallback string) string {
		if strings.TrimSpace(s) == "" {
			return fallback
		}
		return s
	}
	switch required {
	case roles.Admin:
		return pick(m.Admin, def.Admin)
	case roles.Coordinator:
		return pick(m.Coordinator, def.Coordinator)
	default:
		return pick(m.Viewer, def.Viewer)
	}
}

// Guard wraps handlers with role checks.
type Guard struct {
	resolver Resolver
	sink     audit.Sink
	messages DenialMessages
	now      func() time.Time
}

// NewGuard creates a guard. Every decision is written to sink.
func NewGuard(resolver Resolver, sink audit.Sink, messages DenialMessages) *Guard {
	return &Guard{resolver: resolver, sink: sink, messages: messages, now: time.Now}
}

// Protect returns next wrapped with a check for required. A blank name, a nil
// handler or an undefined role is a *ConfigurationError.
//
// The wrapper does not recover panics raised by next.
func (g *Guard) Protect(name string, required roles.Role, next HandlerFunc) (HandlerFunc, error) {
	switch {
	case strings.TrimSpace(name) == "":
		configurationErrors.Inc()
		return nil, &ConfigurationError{Handler: name, Reason: "handler name is required"}
	case !required.Valid():
		configurationErrors.Inc()
		return nil, &ConfigurationError{Handler: name, Role: required.String(), Reason: "unknown role"}
	case next == nil:
		configurationErrors.Inc()
		return nil, &ConfigurationError{Handler: name, Reason: "handler is nil"}
	}

	return func(ctx context.Context, req Request) (Response, error) {
		grant, err := g.authorize(ctx, name, required, req)
		if err != nil {
			return Response{}, err
		}
		return next(contextWithAuthorization(ctx, grant), req)
	}, nil
}

// authorize resolves, evaluates and audits one invocation.
func (g *Guard) authorize(ctx context.Context, name string, required roles.Role, req Request) (Authorization, error) {
	start := g.now()

	userID := req.UserID
	if userID == "" {
		userID = UserIDFromContext(ctx)
	}

	res, rerr := g.resolve(ctx, userID)
	var rec *roles.Record
	if rerr == nil {
		rec = res.Record
	} else {
		g.logAnomaly(ctx, name, userID, rerr)
	}

	decision := Evaluate(rec, required)

	attempt := audit.AccessAttempt{
		UserID:       userID,
		Handler:      name,
		RequiredRole: required,
		CacheState:   res.State,
		Stale:        res.Stale,
		Result:       audit.ResultDeny,
		Reason:       string(decision.Reason),
		Timestamp:    start.UTC(),
	}
	if decision.Allowed {
		attempt.Result = audit.ResultAllow
	}
	if rec != nil {
		role, active := rec.Role, rec.Active
		attempt.ResolvedRole = &role
		attempt.Active = &active
		attempt.SourceVersion = rec.SourceVersion
	}
	if rerr != nil {
		attempt.Error = rerr.Error()
	}

	event := audit.NewAccessEvent(attempt)
	event.RequestID = logging.RequestIDFromContext(ctx)
	g.sink.Write(event)

	recordDecision(required, decision, res.State, g.now().Sub(start))

	if !decision.Allowed {
		logging.Ctx(ctx).Debug().
			Str("user_id", userID).
			Str("handler", name).
			Str("required_role", required.String()).
			Str("reason", string(decision.Reason)).
			Msg("Access denied")
		return Authorization{}, &Denial{
			Allowed: false,
			Message: g.messages.For(required),
			Reason:  decision.Reason,
			Handler: name,
		}
	}

	return Authorization{
		UserID:     userID,
		Handler:    name,
		Required:   required,
		Record:     *rec,
		CacheState: res.State,
		Stale:      res.Stale,
	}, nil
}

// resolve calls the resolver and converts a panic into an error so the
// invocation fails closed.
func (g *Guard) resolve(ctx context.Context, userID string) (res Resolution, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = Resolution{State: audit.CacheMiss}
			err = fmt.Errorf("%w: %v", ErrResolverPanic, r)
		}
	}()

	if userID == "" {
		return Resolution{State: audit.CacheMiss}, ErrMissingUserID
	}
	res, err = g.resolver.Resolve(ctx, userID)
	if res.State == "" {
		res.State = audit.CacheMiss
	}
	return res, err
}

func (g *Guard) logAnomaly(ctx context.Context, handler, userID string, err error) {
	kind := "source_error"
	switch {
	case errors.Is(err, ErrCacheNotReady):
		kind = "not_ready"
	case errors.Is(err, ErrMissingUserID):
		kind = "missing_user"
	case errors.Is(err, ErrResolverPanic):
		kind = "panic"
	}
	resolveAnomalies.WithLabelValues(kind).Inc()

	level := zerolog.WarnLevel
	if kind == "panic" {
		level = zerolog.ErrorLevel
	}
	logging.Ctx(ctx).WithLevel(level).
		Err(err).
		Str("kind", kind).
		Str("user_id", userID).
		Str("handler", handler).
		Msg("Role resolution failed; treating user as having no record")
}
