package handlers

import (
	"net/http"

	"tourbooking/internal/services"

	"github.com/gin-gonic/gin"
)

func tourService(c *gin.Context) services.TourService {
	d := current()
	return services.TourService{Cache: d.Cache, Now: d.Now, RequestID: requestID(c)}
}

// SearchTours is the storefront search; favorites are flagged for signed-in callers.
func SearchTours(c *gin.Context) {
	minPrice, ok := queryInt64(c, "minPrice")
	if !ok {
		return
	}
	maxPrice, ok := queryInt64(c, "maxPrice")
	if !ok {
		return
	}
	in := services.SearchInput{
		Keyword:       c.Query("keyword"),
		StartLocation: c.Query("startLocation"),
		EndLocation:   c.Query("endLocation"),
		MinPrice:      minPrice,
		MaxPrice:      maxPrice,
		DepartureFrom: c.Query("departureFrom"),
		DepartureTo:   c.Query("departureTo"),
	}
	page, err := tourService(c).Search(c.Request.Context(), caller(c).UserID, in, listQuery(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, page)
}

func TourSuggestions(c *gin.Context) {
	out, err := tourService(c).Suggestions(c.Request.Context(), c.Query("keyword"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, out)
}

func TourHome(c *gin.Context) {
	feed, err := tourService(c).Home(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, feed)
}

func FavoriteTours(c *gin.Context) {
	routes, err := tourService(c).FavoriteRoutes(c.Request.Context(), caller(c).UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, routes)
}

// ToggleFavorite answers with the state the server settled on.
func ToggleFavorite(c *gin.Context) {
	routeID, ok := paramID(c, "routeId")
	if !ok {
		return
	}
	on, err := tourService(c).ToggleFavorite(c.Request.Context(), caller(c).UserID, routeID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"routeId": routeID, "favorited": on})
}
