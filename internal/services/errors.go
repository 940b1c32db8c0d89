package services

import (
	"errors"
	"net/http"

	"prepmate/api/internal/engine"
	"prepmate/api/internal/repositories"
)

// Error is an operation failure carrying the HTTP status the API should
// return. Engine failures pass their classified status through verbatim.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string { return e.Detail }

func badRequest(detail string) *Error {
	return &Error{Status: http.StatusBadRequest, Detail: detail}
}

func forbidden(detail string) *Error {
	return &Error{Status: http.StatusForbidden, Detail: detail}
}

func notFound(detail string) *Error {
	return &Error{Status: http.StatusNotFound, Detail: detail}
}

func badGateway(detail string) *Error {
	return &Error{Status: http.StatusBadGateway, Detail: detail}
}

// asServiceError normalizes repository and engine failures into *Error;
// anything unrecognized becomes a 500.
func asServiceError(err error) *Error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		return &Error{Status: engErr.Status, Detail: engErr.Detail}
	}
	switch {
	case errors.Is(err, repositories.ErrSessionNotFound):
		return notFound("Interview session not found.")
	case errors.Is(err, repositories.ErrTurnNotFound):
		return notFound("Interview question not found.")
	}
	return &Error{Status: http.StatusInternalServerError, Detail: "Internal server error."}
}
