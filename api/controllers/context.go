package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kwesidadzie/bundlehub-backend/api/middleware"
	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
)

// currentAgentID reads the authenticated agent id seeded by the auth
// middleware.
func currentAgentID(ctx context.Context) (uuid.UUID, error) {
	raw := middleware.AgentIDFromContext(ctx)
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, nil
}

// pathUUID parses a uuid URL parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+name)
	}
	return id, nil
}
