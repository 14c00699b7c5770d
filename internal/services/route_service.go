package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
	"tourbooking/internal/repositories"
	"tourbooking/internal/utils"
)

type RouteService struct {
	Routes    repositories.RouteRepository
	Trips     repositories.TripRepository
	Tours     TourService
	Now       func() time.Time
	RequestID string
}

type RouteInput struct {
	Name          string                `json:"name"`
	Code          string                `json:"code"`
	StartLocation string                `json:"startLocation"`
	EndLocation   string                `json:"endLocation"`
	DurationDays  int                   `json:"durationDays"`
	Description   string                `json:"description"`
	Itinerary     []models.ItineraryDay `json:"itinerary"`
	Images        []string              `json:"images"`
}

func (in RouteInput) toRoute() (models.Route, error) {
	r := models.Route{
		Name:          utils.NormalizeSpace(in.Name),
		Code:          strings.ToUpper(strings.TrimSpace(in.Code)),
		StartLocation: utils.NormalizeSpace(in.StartLocation),
		EndLocation:   utils.NormalizeSpace(in.EndLocation),
		DurationDays:  in.DurationDays,
		Description:   strings.TrimSpace(in.Description),
		Itinerary:     in.Itinerary,
		Images:        []string{},
	}
	switch {
	case r.Name == "":
		return r, domain.ValidationError{Field: "name", Msg: "required"}
	case r.Code == "":
		return r, domain.ValidationError{Field: "code", Msg: "required"}
	case r.StartLocation == "":
		return r, domain.ValidationError{Field: "startLocation", Msg: "required"}
	case r.EndLocation == "":
		return r, domain.ValidationError{Field: "endLocation", Msg: "required"}
	case r.DurationDays < 1:
		return r, domain.ValidationError{Field: "durationDays", Msg: "must be at least 1"}
	}
	seen := map[int]bool{}
	for i, d := range r.Itinerary {
		if d.Day < 1 || d.Day > r.DurationDays {
			return r, domain.ValidationError{Field: "itinerary", Msg: fmt.Sprintf("day %d is outside 1..%d", d.Day, r.DurationDays)}
		}
		if seen[d.Day] {
			return r, domain.ValidationError{Field: "itinerary", Msg: fmt.Sprintf("day %d listed twice", d.Day)}
		}
		seen[d.Day] = true
		r.Itinerary[i].Title = strings.TrimSpace(d.Title)
		if r.Itinerary[i].Attractions == nil {
			r.Itinerary[i].Attractions = []string{}
		}
	}
	for _, img := range in.Images {
		if img = strings.TrimSpace(img); img != "" {
			r.Images = append(r.Images, img)
		}
	}
	return r, nil
}

func (s RouteService) List(ctx context.Context, q domain.ListQuery) (domain.Page[models.Route], error) {
	routes, total, err := s.Routes.List(ctx, q)
	if err != nil {
		return domain.Page[models.Route]{}, internal(err)
	}
	return domain.NewPage(routes, q, total), nil
}

func (s RouteService) Get(ctx context.Context, id int64) (models.Route, error) {
	r, err := s.Routes.GetByID(ctx, id)
	return r, internal(err)
}

// BookableTrips lists the trips of a route a customer can still book.
func (s RouteService) BookableTrips(ctx context.Context, routeID int64) ([]models.Trip, error) {
	if _, err := s.Routes.GetByID(ctx, routeID); err != nil {
		return nil, internal(err)
	}
	trips, err := s.Trips.ListBookable(ctx, routeID, nowOr(s.Now))
	return trips, internal(err)
}

func (s RouteService) Create(ctx context.Context, in RouteInput) (models.Route, error) {
	r, err := in.toRoute()
	if err != nil {
		return models.Route{}, err
	}
	id, err := s.Routes.Create(ctx, r)
	if err != nil {
		return models.Route{}, internal(err)
	}
	utils.LogEvent(s.RequestID, "routes", "create", fmt.Sprintf("route_id=%d code=%s", id, r.Code))
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

func (s RouteService) Update(ctx context.Context, id int64, in RouteInput) (models.Route, error) {
	r, err := in.toRoute()
	if err != nil {
		return models.Route{}, err
	}
	r.ID = id
	if err := s.Routes.Update(ctx, r); err != nil {
		return models.Route{}, internal(err)
	}
	utils.LogEvent(s.RequestID, "routes", "update", fmt.Sprintf("route_id=%d", id))
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

func (s RouteService) invalidate(ctx context.Context) {
	s.Tours.InvalidateHome(ctx)
	s.Tours.InvalidateSuggestions(ctx)
}

// Delete refuses routes that still have trips.
func (s RouteService) Delete(ctx context.Context, id int64) error {
	n, err := s.Routes.CountTrips(ctx, id)
	if err != nil {
		return internal(err)
	}
	if n > 0 {
		return domain.ConflictError{Resource: "route", Msg: fmt.Sprintf("route still has %d trip(s)", n)}
	}
	if err := s.Routes.Delete(ctx, id); err != nil {
		return internal(err)
	}
	utils.LogEvent(s.RequestID, "routes", "delete", fmt.Sprintf("route_id=%d", id))
	s.invalidate(ctx)
	return nil
}
