// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/rolegate/internal/authz"
	"github.com/tomtom215/rolegate/internal/commands"
	"github.com/tomtom215/rolegate/internal/logging"
	"github.com/tomtom215/rolegate/internal/validation"
)

// CommandRequest is the body of a command call.
type CommandRequest struct {
	Args []string `json:"args" validate:"max=16,dive,max=256"`
}

// CommandResponse is returned when a command was allowed and succeeded.
type CommandResponse struct {
	Allowed bool        `json:"allowed"`
	Text    string      `json:"text"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the body of every non-denial error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthLive always reports alive.
func (router *Router) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(router.startTime).Seconds(),
	})
}

// HealthReady reports 503 until the first successful role load.
func (router *Router) HealthReady(w http.ResponseWriter, r *http.Request) {
	ready := router.readiness != nil && router.readiness.Ready()
	status, label := http.StatusOK, "ready"
	if !ready {
		status, label = http.StatusServiceUnavailable, "not_ready"
	}
	respondJSON(w, r, status, map[string]interface{}{
		"status":         label,
		"ready_to_serve": ready,
		"uptime":         time.Since(router.startTime).Seconds(),
	})
}

// ListCommands returns the registered commands.
func (router *Router) ListCommands(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"commands": router.commands.Routes(),
	})
}

// RunCommand runs the command named in the path.
func (router *Router) RunCommand(w http.ResponseWriter, r *http.Request) {
	router.invoke(w, r, chi.URLParam(r, "name"))
}

// AdminRefresh runs the refresh command.
func (router *Router) AdminRefresh(w http.ResponseWriter, r *http.Request) {
	router.invoke(w, r, commands.Refresh)
}

func (router *Router) invoke(w http.ResponseWriter, r *http.Request, name string) {
	body, err := router.decodeCommandRequest(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	// The user id comes from the token via the request context.
	resp, err := router.commands.Invoke(r.Context(), name, authz.Request{Args: body.Args})
	if err != nil {
		router.respondInvokeError(w, r, name, err)
		return
	}

	respondJSON(w, r, http.StatusOK, CommandResponse{
		Allowed: true,
		Text:    resp.Text,
		Data:    resp.Data,
	})
}

func (router *Router) respondInvokeError(w http.ResponseWriter, r *http.Request, name string, err error) {
	if denial, ok := authz.AsDenial(err); ok {
		respondJSON(w, r, http.StatusForbidden, denial)
		return
	}

	switch {
	case errors.Is(err, authz.ErrUnknownCommand):
		respondError(w, r, http.StatusNotFound, "unknown_command", "unknown command", nil)
	case errors.Is(err, commands.ErrBadArgument):
		respondError(w, r, http.StatusBadRequest, "invalid_arguments", err.Error(), nil)
	case r.Context().Err() != nil:
		// Client went away; nothing useful to write.
		logging.Ctx(r.Context()).Debug().Str("command", name).Msg("Command canceled by client")
	default:
		respondError(w, r, http.StatusInternalServerError, "internal_error", "command failed", err)
	}
}

func (router *Router) decodeCommandRequest(r *http.Request) (CommandRequest, error) {
	var body CommandRequest
	if r.Body == nil || r.Body == http.NoBody {
		return body, nil
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, router.config.MaxBodyBytes))
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return body, errors.New("request body must be JSON: {\"args\":[...]}")
	}
	if verr := validation.ValidateStruct(&body); verr != nil {
		return body, verr
	}
	return body, nil
}

// respondJSON writes v as JSON with status.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write JSON response")
	}
}

// respondError writes an ErrorResponse. err is logged, not returned.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("code", code).Int("status", status).Msg("API error")
	}
	respondJSON(w, r, status, ErrorResponse{Error: code, Message: message})
}
