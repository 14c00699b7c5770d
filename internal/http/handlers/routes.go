package handlers

import (
	"net/http"

	"tourbooking/internal/services"

	"github.com/gin-gonic/gin"
)

func routeService(c *gin.Context) services.RouteService {
	return services.RouteService{Tours: tourService(c), Now: current().Now, RequestID: requestID(c)}
}

func ListRoutes(c *gin.Context) {
	page, err := routeService(c).List(c.Request.Context(), listQuery(c, "startLocation", "endLocation"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, page)
}

func GetRoute(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	r, err := routeService(c).Get(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, r)
}

// RouteTrips lists the trips of a route that can still be booked.
func RouteTrips(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	trips, err := routeService(c).BookableTrips(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, trips)
}

func CreateRoute(c *gin.Context) {
	var in services.RouteInput
	if !BindJSONOrError(c, &in) {
		return
	}
	r, err := routeService(c).Create(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusCreated, r)
}

func UpdateRoute(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.RouteInput
	if !BindJSONOrError(c, &in) {
		return
	}
	r, err := routeService(c).Update(c.Request.Context(), id, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, r)
}

func DeleteRoute(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := routeService(c).Delete(c.Request.Context(), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}
