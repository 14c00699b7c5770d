package handlers

import (
	"net/http"

	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
	"tourbooking/internal/services"

	"github.com/gin-gonic/gin"
)

func tripService(c *gin.Context) services.TripService {
	return services.TripService{Tours: tourService(c), Now: current().Now, RequestID: requestID(c)}
}

func ListTrips(c *gin.Context) {
	page, err := tripService(c).List(c.Request.Context(), listQuery(c, "routeId", "departureFrom", "departureTo"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, page)
}

func GetTrip(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	t, err := tripService(c).Get(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, t)
}

func TripAvailability(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	a, err := tripService(c).Availability(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, a)
}

func CreateTrip(c *gin.Context) {
	var in models.TripInput
	if !BindJSONOrError(c, &in) {
		return
	}
	t, err := tripService(c).Create(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusCreated, t)
}

func UpdateTrip(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in models.TripInput
	if !BindJSONOrError(c, &in) {
		return
	}
	t, err := tripService(c).Update(c.Request.Context(), id, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, t)
}

func DeleteTrip(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := tripService(c).Delete(c.Request.Context(), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

type tripStatusRequest struct {
	Status string `json:"status"`
}

// ChangeTripStatus moves a trip through its lifecycle and cascades to bookings.
func ChangeTripStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req tripStatusRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	status, valid := domain.ParseTripStatus(req.Status)
	if !valid {
		RespondDomainError(c, domain.ValidationError{Field: "status", Msg: "must be SCHEDULED, ONGOING, FINISHED or CANCELED"})
		return
	}
	t, err := tripService(c).ChangeStatus(c.Request.Context(), id, status)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, t)
}
