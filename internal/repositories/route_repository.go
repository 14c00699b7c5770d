package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	intdb "tourbooking/internal/db"
	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
)

type RouteRepository struct {
	conn
}

func NewRouteRepository(db *sql.DB) RouteRepository {
	return RouteRepository{conn{DB: db}}
}

const routeColumns = `r.id, r.name, r.code, r.start_location, r.end_location, r.duration_days,
	COALESCE(r.description,''), COALESCE(r.itinerary,'[]'), COALESCE(r.images,'[]'), r.created_at, r.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoute(s rowScanner, extra ...any) (models.Route, error) {
	var (
		r                 models.Route
		itinerary, images []byte
	)
	dest := []any{&r.ID, &r.Name, &r.Code, &r.StartLocation, &r.EndLocation, &r.DurationDays,
		&r.Description, &itinerary, &images, &r.CreatedAt, &r.UpdatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return r, err
	}
	if err := json.Unmarshal(itinerary, &r.Itinerary); err != nil {
		return r, fmt.Errorf("route %d itinerary: %w", r.ID, err)
	}
	if err := json.Unmarshal(images, &r.Images); err != nil {
		return r, fmt.Errorf("route %d images: %w", r.ID, err)
	}
	return r, nil
}

func marshalRouteJSON(r models.Route) ([]byte, []byte, error) {
	if r.Itinerary == nil {
		r.Itinerary = []models.ItineraryDay{}
	}
	if r.Images == nil {
		r.Images = []string{}
	}
	it, err := json.Marshal(r.Itinerary)
	if err != nil {
		return nil, nil, err
	}
	img, err := json.Marshal(r.Images)
	if err != nil {
		return nil, nil, err
	}
	return it, img, nil
}

func (r RouteRepository) Create(ctx context.Context, route models.Route) (int64, error) {
	it, img, err := marshalRouteJSON(route)
	if err != nil {
		return 0, err
	}
	res, err := r.q().ExecContext(ctx, `
		INSERT INTO routes (name, code, start_location, end_location, duration_days, description, itinerary, images)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		route.Name, route.Code, route.StartLocation, route.EndLocation, route.DurationDays, route.Description, it, img)
	if err != nil {
		if isDuplicate(err) {
			return 0, domain.ConflictError{Resource: "route", Msg: "code already exists", Err: err}
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (r RouteRepository) Update(ctx context.Context, route models.Route) error {
	it, img, err := marshalRouteJSON(route)
	if err != nil {
		return err
	}
	res, err := r.q().ExecContext(ctx, `
		UPDATE routes SET name=?, code=?, start_location=?, end_location=?, duration_days=?, description=?, itinerary=?, images=?
		WHERE id=?`,
		route.Name, route.Code, route.StartLocation, route.EndLocation, route.DurationDays, route.Description, it, img, route.ID)
	if err != nil {
		if isDuplicate(err) {
			return domain.ConflictError{Resource: "route", Msg: "code already exists", Err: err}
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 for unchanged rows too; confirm existence.
		if _, err := r.GetByID(ctx, route.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r RouteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q().ExecContext(ctx, `DELETE FROM routes WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "route"}
	}
	return nil
}

func (r RouteRepository) GetByID(ctx context.Context, id int64) (models.Route, error) {
	row := r.q().QueryRowContext(ctx, `SELECT `+routeColumns+` FROM routes r WHERE r.id=? LIMIT 1`, id)
	route, err := scanRoute(row)
	if err != nil {
		return models.Route{}, notFound("route", err)
	}
	return route, nil
}

// CountTrips counts trips scheduled from a route; used to refuse deletes.
func (r RouteRepository) CountTrips(ctx context.Context, routeID int64) (int, error) {
	var n int
	err := r.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM trips WHERE route_id=?`, routeID).Scan(&n)
	return n, err
}

func (r RouteRepository) List(ctx context.Context, q domain.ListQuery) ([]models.Route, int, error) {
	q = q.Normalize()
	var w intdb.Where
	if q.Keyword != "" {
		w.Add("(r.name LIKE ? OR r.code LIKE ? OR r.start_location LIKE ? OR r.end_location LIKE ?)",
			like(q.Keyword), like(q.Keyword), like(q.Keyword), like(q.Keyword))
	}
	if v := q.Filter("startLocation"); v != "" {
		w.Add("r.start_location LIKE ?", like(v))
	}
	if v := q.Filter("endLocation"); v != "" {
		w.Add("r.end_location LIKE ?", like(v))
	}

	var total int
	if err := r.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM routes r WHERE `+w.SQL(), w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := orderBy(q.SortField, q.SortDesc, map[string]string{
		"name":      "r.name",
		"code":      "r.code",
		"createdAt": "r.created_at",
		"duration":  "r.duration_days",
	}, "r.id DESC")
	args := append(w.Args(), q.PageSize, q.Offset())
	rows, err := r.q().QueryContext(ctx, `SELECT `+routeColumns+` FROM routes r WHERE `+w.SQL()+` ORDER BY `+order+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []models.Route{}
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, route)
	}
	return out, total, rows.Err()
}

// TourSearch filters for the customer search page.
type TourSearch struct {
	Keyword       string
	StartLocation string
	EndLocation   string
	MinPrice      int64
	MaxPrice      int64
	DepartureFrom *time.Time
	DepartureTo   *time.Time
	Now           time.Time
}

// Search returns routes with at least one bookable trip matching the filters,
// with the cheapest matching price attached.
func (r RouteRepository) Search(ctx context.Context, s TourSearch, q domain.ListQuery) ([]models.Route, int, error) {
	q = q.Normalize()
	var w intdb.Where
	w.Add("t.status=?", string(domain.TripScheduled))
	w.Add("t.available_seats>0")
	w.Add("t.departure_date>?", s.Now)
	if kw := strings.TrimSpace(s.Keyword); kw != "" {
		w.Add("(r.name LIKE ? OR r.start_location LIKE ? OR r.end_location LIKE ?)", like(kw), like(kw), like(kw))
	}
	if v := strings.TrimSpace(s.StartLocation); v != "" {
		w.Add("r.start_location LIKE ?", like(v))
	}
	if v := strings.TrimSpace(s.EndLocation); v != "" {
		w.Add("r.end_location LIKE ?", like(v))
	}
	if s.MinPrice > 0 {
		w.Add("t.price>=?", s.MinPrice)
	}
	if s.MaxPrice > 0 {
		w.Add("t.price<=?", s.MaxPrice)
	}
	if s.DepartureFrom != nil {
		w.Add("t.departure_date>=?", *s.DepartureFrom)
	}
	if s.DepartureTo != nil {
		w.Add("t.departure_date<=?", *s.DepartureTo)
	}

	from := ` FROM routes r JOIN trips t ON t.route_id = r.id WHERE ` + w.SQL()

	var total int
	if err := r.q().QueryRowContext(ctx, `SELECT COUNT(DISTINCT r.id)`+from, w.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := orderBy(q.SortField, q.SortDesc, map[string]string{
		"price":    "min_price",
		"name":     "r.name",
		"duration": "r.duration_days",
	}, "r.id DESC")
	args := append(w.Args(), q.PageSize, q.Offset())
	rows, err := r.q().QueryContext(ctx, `SELECT `+routeColumns+`, MIN(t.price) AS min_price`+from+
		` GROUP BY r.id ORDER BY `+order+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []models.Route{}
	for rows.Next() {
		var minPrice int64
		route, err := scanRoute(rows, &minPrice)
		if err != nil {
			return nil, 0, err
		}
		route.MinPrice = minPrice
		out = append(out, route)
	}
	return out, total, rows.Err()
}

// Suggestions returns distinct route names and locations starting with or containing keyword.
func (r RouteRepository) Suggestions(ctx context.Context, keyword string, limit int) ([]string, error) {
	kw := like(keyword)
	rows, err := r.q().QueryContext(ctx, `
		SELECT s FROM (
			SELECT name AS s FROM routes WHERE name LIKE ?
			UNION SELECT start_location FROM routes WHERE start_location LIKE ?
			UNION SELECT end_location FROM routes WHERE end_location LIKE ?
		) x ORDER BY CHAR_LENGTH(s) ASC, s ASC LIMIT ?`, kw, kw, kw, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Latest returns the newest routes.
func (r RouteRepository) Latest(ctx context.Context, limit int) ([]models.Route, error) {
	return r.collect(ctx, `SELECT `+routeColumns+` FROM routes r ORDER BY r.created_at DESC, r.id DESC LIMIT ?`, limit)
}

// Popular orders routes by seats booked across their trips.
func (r RouteRepository) Popular(ctx context.Context, limit int) ([]models.Route, error) {
	return r.collect(ctx, `
		SELECT `+routeColumns+`
		FROM routes r JOIN trips t ON t.route_id = r.id
		GROUP BY r.id
		ORDER BY SUM(t.total_seats - t.available_seats) DESC, r.id DESC
		LIMIT ?`, limit)
}

func (r RouteRepository) collect(ctx context.Context, query string, args ...any) ([]models.Route, error) {
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Route{}
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, route)
	}
	return out, rows.Err()
}

// FavoriteRepository stores the user ↔ route favorites relation.
type FavoriteRepository struct {
	conn
}

func NewFavoriteRepository(db *sql.DB) FavoriteRepository {
	return FavoriteRepository{conn{DB: db}}
}

// Toggle flips the favorite and reports the resulting state.
func (r FavoriteRepository) Toggle(ctx context.Context, userID, routeID int64) (bool, error) {
	res, err := r.q().ExecContext(ctx, `DELETE FROM favorites WHERE user_id=? AND route_id=?`, userID, routeID)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}
	if _, err := r.q().ExecContext(ctx, `INSERT INTO favorites (user_id, route_id) VALUES (?, ?)`, userID, routeID); err != nil {
		return false, err
	}
	return true, nil
}

func (r FavoriteRepository) ListRoutes(ctx context.Context, userID int64) ([]models.Route, error) {
	rows, err := r.q().QueryContext(ctx, `
		SELECT `+routeColumns+`
		FROM favorites f JOIN routes r ON r.id = f.route_id
		WHERE f.user_id=?
		ORDER BY f.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Route{}
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		route.Favorited = true
		out = append(out, route)
	}
	return out, rows.Err()
}

// RouteIDs returns the set of routes a user has favorited.
func (r FavoriteRepository) RouteIDs(ctx context.Context, userID int64) (map[int64]bool, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT route_id FROM favorites WHERE user_id=?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}
