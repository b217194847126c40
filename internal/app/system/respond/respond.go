// internal/app/system/respond/respond.go
//
// Package respond writes JSON responses and the JSON error envelope:
//
//	{"error": {"code": "...", "message": "...", "details": ...}}
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/learnportal/internal/app/system/apperr"
	"go.uber.org/zap"
)

// Production hides internal error messages from clients. Set once at startup.
var Production bool

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes v with 200.
func OK(w http.ResponseWriter, v any) { JSON(w, http.StatusOK, v) }

// Created writes v with 201.
func Created(w http.ResponseWriter, v any) { JSON(w, http.StatusCreated, v) }

// NoContent writes 204.
func NoContent(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }

// Error writes err as the error envelope. Classified client errors are written
// as-is. Anything else is logged once here and reported as a 500; in
// production the message is generic.
func Error(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.Internal(err)
	}

	status := ae.Status()
	msg := ae.Message
	if status >= http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("actor", actorID(r)),
				zap.String("code", ae.Code),
				zap.Error(err))
		}
		if Production && ae.Kind == apperr.KindInternal {
			msg = "internal server error"
		} else if ae.Kind == apperr.KindInternal && ae.Err != nil {
			msg = ae.Err.Error()
		}
	}

	JSON(w, status, map[string]errorBody{
		"error": {Code: ae.Code, Message: msg, Details: ae.Details},
	})
}

// actorIDFunc is installed by the auth package so error logs carry the caller.
var actorIDFunc func(*http.Request) string

// SetActorFunc registers how to read the caller id from a request.
func SetActorFunc(f func(*http.Request) string) { actorIDFunc = f }

func actorID(r *http.Request) string {
	if actorIDFunc == nil {
		return ""
	}
	return actorIDFunc(r)
}
