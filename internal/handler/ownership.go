package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/josh-kwaku/bank-ledger/internal/auth"
)

// ownerFromPath returns the {id} path value when it names the caller.
// Requests for any other customer get a 404 so ids cannot be enumerated.
func ownerFromPath(r *http.Request) (uuid.UUID, *AppError) {
	customerID, appErr := caller(r)
	if appErr != nil {
		return uuid.Nil, appErr
	}

	pathID, err := uuid.Parse(r.PathValue("id"))
	if err != nil || pathID != customerID {
		return uuid.Nil, ErrResourceNotFound
	}
	return customerID, nil
}

func caller(r *http.Request) (uuid.UUID, *AppError) {
	customerID, ok := auth.CustomerIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, ErrMissingToken
	}
	return customerID, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, *AppError) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, ErrResourceNotFound
	}
	return id, nil
}
