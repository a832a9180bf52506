package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/wbdash/api/responses"
	"github.com/angelmondragon/wbdash/api/validators"
	"github.com/angelmondragon/wbdash/internal/catalog"
	"github.com/angelmondragon/wbdash/internal/dashboard"
	"github.com/angelmondragon/wbdash/pkg/enums"
	pkgerrors "github.com/angelmondragon/wbdash/pkg/errors"
	"github.com/angelmondragon/wbdash/pkg/logger"
)

const maxSearchLength = 200

// DashboardService is the coordinator surface the dashboard handlers drive.
type DashboardService interface {
	View() dashboard.View
	SetFilter(ctx context.Context, f catalog.FilterSpec) *dashboard.Pending
	SetSearch(query string) dashboard.View
	SetSort(ctx context.Context, sort catalog.SortSpec) *dashboard.Pending
	ToggleSort(ctx context.Context, field enums.SortField) *dashboard.Pending
	Refresh(ctx context.Context) error
}

var _ DashboardService = (*dashboard.Coordinator)(nil)

// DashboardView returns the current snapshot.
func DashboardView(svc DashboardService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, svc.View())
	}
}

type filterRequest struct {
	MinPrice    *float64 `json:"min_price" validate:"omitempty,gte=0"`
	MaxPrice    *float64 `json:"max_price" validate:"omitempty,gte=0"`
	MinRating   *float64 `json:"min_rating" validate:"omitempty,gte=0,lte=5"`
	MinReviews  *int     `json:"min_reviews" validate:"omitempty,gte=0"`
	Category    string   `json:"category" validate:"max=200"`
	SearchQuery string   `json:"search_query" validate:"max=200"`
}

func (f filterRequest) toSpec() catalog.FilterSpec {
	return catalog.FilterSpec{
		MinPrice:    f.MinPrice,
		MaxPrice:    f.MaxPrice,
		MinRating:   f.MinRating,
		MinReviews:  f.MinReviews,
		Category:    f.Category,
		SearchQuery: validators.SanitizeString(f.SearchQuery, maxSearchLength),
	}
}

// DashboardSetFilter replaces the filter and waits for the product fetch it
// triggers. A failed fetch is reported through the view's errors map.
func DashboardSetFilter(svc DashboardService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body filterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeAfter(w, r, logg, svc, svc.SetFilter(r.Context(), body.toSpec()))
	}
}

type searchRequest struct {
	Query string `json:"query" validate:"max=200"`
}

// DashboardSetSearch narrows the visible rows by name without a fetch.
func DashboardSetSearch(svc DashboardService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body searchRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.SetSearch(validators.SanitizeString(body.Query, maxSearchLength)))
	}
}

type sortRequest struct {
	Field     string  `json:"field" validate:"required"`
	Direction *string `json:"direction"`
}

// DashboardSetSort toggles the sort on field, or applies the explicit direction
// when one is given.
func DashboardSetSort(svc DashboardService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body sortRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		field, err := enums.ParseSortField(body.Field)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort field").WithDetails(map[string]any{"allowed": enums.SortFields()}))
			return
		}
		if body.Direction == nil {
			writeAfter(w, r, logg, svc, svc.ToggleSort(r.Context(), field))
			return
		}
		dir, err := enums.ParseSortDirection(*body.Direction)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort direction"))
			return
		}
		writeAfter(w, r, logg, svc, svc.SetSort(r.Context(), catalog.SortSpec{Field: field, Direction: dir}))
	}
}

// DashboardRefresh re-fetches every slice as one batch.
func DashboardRefresh(svc DashboardService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Refresh(r.Context()); err != nil && logg != nil {
			logg.Warn(logg.WithError(r.Context(), err), "dashboard.refresh.partial")
		}
		responses.WriteSuccess(w, svc.View())
	}
}

// writeAfter waits for pending fetches bounded by the request and then renders
// the view. Only a cancelled request is rendered as an error.
func writeAfter(w http.ResponseWriter, r *http.Request, logg *logger.Logger, svc DashboardService, pending *dashboard.Pending) {
	err := pending.Wait(r.Context())
	if ctxErr := r.Context().Err(); ctxErr != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNetworkUnavailable, ctxErr, "request ended before the catalog answered"))
		return
	}
	if err != nil && logg != nil {
		logg.Debug(logg.WithError(r.Context(), err), "dashboard.fetch.failed")
	}
	responses.WriteSuccess(w, svc.View())
}
