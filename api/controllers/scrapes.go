package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/wbdash/api/responses"
	"github.com/angelmondragon/wbdash/api/validators"
	"github.com/angelmondragon/wbdash/internal/dashboard"
	"github.com/angelmondragon/wbdash/internal/scrapes"
	pkgerrors "github.com/angelmondragon/wbdash/pkg/errors"
	"github.com/angelmondragon/wbdash/pkg/logger"
	"github.com/angelmondragon/wbdash/pkg/pagination"
)

const (
	maxCursorLength = 256
	maxStatusLength = 32
)

// ScrapeRunner submits a scrape and refreshes the dashboard on success.
type ScrapeRunner interface {
	Scrape(ctx context.Context, query string, limit int) (*dashboard.ScrapeResult, error)
}

var _ ScrapeRunner = (*dashboard.Scraper)(nil)

type scrapeRequest struct {
	Query string `json:"query" validate:"required,max=200"`
	Limit *int   `json:"limit"`
}

type scrapeResponse struct {
	RunID        *uuid.UUID     `json:"run_id,omitempty"`
	Count        int            `json:"count"`
	Message      string         `json:"message"`
	Category     string         `json:"category,omitempty"`
	RefreshError string         `json:"refresh_error,omitempty"`
	View         dashboard.View `json:"view"`
}

// ScrapeSubmit runs a scrape synchronously and returns the refreshed view.
// Range checks on limit live in the scraper so the CLI shares them.
func ScrapeSubmit(runner ScrapeRunner, dash DashboardService, defaultLimit int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body scrapeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit := defaultLimit
		if body.Limit != nil {
			limit = *body.Limit
		}

		res, err := runner.Scrape(r.Context(), body.Query, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := scrapeResponse{
			Count:    res.Count,
			Message:  res.Message,
			Category: res.Category,
			View:     dash.View(),
		}
		if res.RunID != uuid.Nil {
			id := res.RunID
			out.RunID = &id
		}
		if res.RefreshError != nil {
			out.RefreshError = res.RefreshError.Error()
		}
		responses.WriteSuccess(w, out)
	}
}

// ScrapeHistory lists recorded scrape runs, newest first.
func ScrapeHistory(svc scrapes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor, err := validators.ParseQueryString(r, "cursor", maxCursorLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.ParseQueryString(r, "status", maxStatusLength)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), scrapes.ListParams{
			Limit:  limit,
			Cursor: cursor,
			Status: status,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ScrapeDetail returns one scrape run.
func ScrapeDetail(svc scrapes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "runId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid scrape run id"))
			return
		}
		run, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, run)
	}
}
