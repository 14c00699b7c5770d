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

	"golang.org/x/sync/errgroup"
)

const (
	suggestionLimit    = 8
	homeSectionSize    = 6
	suggestionTTL      = 5 * time.Minute
	homeTTL            = time.Minute
	homeCacheKey       = "home"
	suggestCachePrefix = "suggest:"
)

// TourService serves the customer storefront: search, suggestions, home feed and favorites.
type TourService struct {
	Routes    repositories.RouteRepository
	Trips     repositories.TripRepository
	Favorites repositories.FavoriteRepository
	Cache     Cache
	Now       func() time.Time
	RequestID string
}

// SearchInput is the storefront filter form; empty fields are ignored.
type SearchInput struct {
	Keyword       string
	StartLocation string
	EndLocation   string
	MinPrice      int64
	MaxPrice      int64
	DepartureFrom string
	DepartureTo   string
}

// HomeFeed is the landing page payload.
type HomeFeed struct {
	Latest   []models.Route `json:"latest"`
	Popular  []models.Route `json:"popular"`
	Upcoming []models.Trip  `json:"upcoming"`
}

func (s TourService) Search(ctx context.Context, userID int64, in SearchInput, q domain.ListQuery) (domain.Page[models.Route], error) {
	f := repositories.TourSearch{
		Keyword:       utils.NormalizeSpace(in.Keyword),
		StartLocation: utils.NormalizeSpace(in.StartLocation),
		EndLocation:   utils.NormalizeSpace(in.EndLocation),
		MinPrice:      in.MinPrice,
		MaxPrice:      in.MaxPrice,
		Now:           nowOr(s.Now),
	}
	if f.MinPrice < 0 || f.MaxPrice < 0 {
		return domain.Page[models.Route]{}, domain.ValidationError{Field: "price", Msg: "must not be negative"}
	}
	if f.MaxPrice > 0 && f.MinPrice > f.MaxPrice {
		return domain.Page[models.Route]{}, domain.ValidationError{Field: "price", Msg: "minPrice is greater than maxPrice"}
	}
	var err error
	if f.DepartureFrom, err = optionalDate("departureFrom", in.DepartureFrom); err != nil {
		return domain.Page[models.Route]{}, err
	}
	if f.DepartureTo, err = optionalDate("departureTo", in.DepartureTo); err != nil {
		return domain.Page[models.Route]{}, err
	}
	if f.DepartureFrom != nil && f.DepartureTo != nil && f.DepartureTo.Before(*f.DepartureFrom) {
		return domain.Page[models.Route]{}, domain.ValidationError{Field: "departureTo", Msg: "is before departureFrom"}
	}

	routes, total, err := s.Routes.Search(ctx, f, q)
	if err != nil {
		return domain.Page[models.Route]{}, internal(err)
	}
	if err := s.markFavorites(ctx, userID, routes); err != nil {
		return domain.Page[models.Route]{}, err
	}
	return domain.NewPage(routes, q, total), nil
}

// Suggestions returns route names matching a keyword prefix. Blank keywords yield nothing.
func (s TourService) Suggestions(ctx context.Context, keyword string) ([]string, error) {
	keyword = strings.ToLower(utils.NormalizeSpace(keyword))
	if keyword == "" {
		return []string{}, nil
	}
	out, err := cached(ctx, s.Cache, "suggestions", suggestCachePrefix+keyword, suggestionTTL, func() ([]string, error) {
		return s.Routes.Suggestions(ctx, keyword, suggestionLimit)
	})
	if err != nil {
		return nil, internal(err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// Home loads the three landing sections concurrently.
func (s TourService) Home(ctx context.Context) (HomeFeed, error) {
	feed, err := cached(ctx, s.Cache, "home", homeCacheKey, homeTTL, func() (HomeFeed, error) {
		var feed HomeFeed
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			feed.Latest, err = s.Routes.Latest(gctx, homeSectionSize)
			return err
		})
		g.Go(func() (err error) {
			feed.Popular, err = s.Routes.Popular(gctx, homeSectionSize)
			return err
		})
		g.Go(func() (err error) {
			feed.Upcoming, err = s.Trips.Upcoming(gctx, nowOr(s.Now), homeSectionSize)
			return err
		})
		return feed, g.Wait()
	})
	if err != nil {
		return HomeFeed{}, internal(err)
	}
	return feed, nil
}

// InvalidateHome drops the cached landing feed after catalogue changes.
func (s TourService) InvalidateHome(ctx context.Context) {
	if s.Cache != nil {
		_ = s.Cache.Delete(ctx, homeCacheKey)
	}
}

// InvalidateSuggestions drops cached suggestions after a route is added,
// renamed or removed.
func (s TourService) InvalidateSuggestions(ctx context.Context) {
	if s.Cache != nil {
		_ = s.Cache.DeletePrefix(ctx, suggestCachePrefix)
	}
}

func (s TourService) FavoriteRoutes(ctx context.Context, userID int64) ([]models.Route, error) {
	routes, err := s.Favorites.ListRoutes(ctx, userID)
	if err != nil {
		return nil, internal(err)
	}
	for i := range routes {
		routes[i].Favorited = true
	}
	return routes, nil
}

// ToggleFavorite flips the favorite flag and returns the new state.
func (s TourService) ToggleFavorite(ctx context.Context, userID, routeID int64) (bool, error) {
	if _, err := s.Routes.GetByID(ctx, routeID); err != nil {
		return false, internal(err)
	}
	on, err := s.Favorites.Toggle(ctx, userID, routeID)
	if err != nil {
		return false, internal(err)
	}
	utils.LogEvent(s.RequestID, "tours", "toggle_favorite", fmt.Sprintf("user_id=%d route_id=%d favorited=%t", userID, routeID, on))
	return on, nil
}

func (s TourService) markFavorites(ctx context.Context, userID int64, routes []models.Route) error {
	if userID <= 0 || len(routes) == 0 {
		return nil
	}
	ids, err := s.Favorites.RouteIDs(ctx, userID)
	if err != nil {
		return internal(err)
	}
	for i := range routes {
		routes[i].Favorited = ids[routes[i].ID]
	}
	return nil
}

func optionalDate(field, v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := utils.ParseDate(v)
	if err != nil {
		return nil, domain.ValidationError{Field: field, Msg: "expected YYYY-MM-DD", Err: err}
	}
	return &t, nil
}
