package handlers

import (
	"net/http"

	"tourbooking/internal/domain"
	"tourbooking/internal/services"

	"github.com/gin-gonic/gin"
)

func bookingService(c *gin.Context) services.BookingService {
	d := current()
	return services.BookingService{Gateway: d.Gateway, Now: d.Now, RequestID: requestID(c)}
}

type confirmRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

func ListBookings(c *gin.Context) {
	page, err := bookingService(c).List(c.Request.Context(), caller(c), listQuery(c, "tripId", "userId"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, page)
}

func GetBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	b, err := bookingService(c).Get(c.Request.Context(), caller(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, b)
}

// ConfirmBooking reserves seats and issues the invoice.
func ConfirmBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req confirmRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	method := domain.MethodCash
	if req.PaymentMethod != "" {
		m, valid := domain.ParsePaymentMethod(req.PaymentMethod)
		if !valid {
			RespondDomainError(c, domain.ValidationError{Field: "paymentMethod", Msg: "must be CASH, BANK_TRANSFER or PAYOS"})
			return
		}
		method = m
	}
	b, err := bookingService(c).Confirm(c.Request.Context(), caller(c), id, method)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, b)
}

func CancelBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	b, err := bookingService(c).Cancel(c.Request.Context(), caller(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, b)
}

func UpdateBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.BookingUpdate
	if !BindJSONOrError(c, &in) {
		return
	}
	b, err := bookingService(c).Update(c.Request.Context(), caller(c), id, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, b)
}

func DeleteBooking(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := bookingService(c).Delete(c.Request.Context(), caller(c), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

func ListTravelers(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ts, err := bookingService(c).ListTravelers(c.Request.Context(), caller(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, ts)
}

func AddTraveler(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.TravelerInput
	if !BindJSONOrError(c, &in) {
		return
	}
	t, err := bookingService(c).AddTraveler(c.Request.Context(), caller(c), id, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusCreated, t)
}

func UpdateTraveler(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	travelerID, ok := paramID(c, "travelerId")
	if !ok {
		return
	}
	var in services.TravelerInput
	if !BindJSONOrError(c, &in) {
		return
	}
	t, err := bookingService(c).UpdateTraveler(c.Request.Context(), caller(c), id, travelerID, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, t)
}

func DeleteTraveler(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	travelerID, ok := paramID(c, "travelerId")
	if !ok {
		return
	}
	if err := bookingService(c).DeleteTraveler(c.Request.Context(), caller(c), id, travelerID); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": travelerID, "deleted": true})
}

func docsService(c *gin.Context) services.DocsService {
	return services.DocsService{Bookings: bookingService(c), RequestID: requestID(c)}
}

// TravelerETicket renders the e-ticket PDF of one traveler.
func TravelerETicket(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	travelerID, ok := paramID(c, "travelerId")
	if !ok {
		return
	}
	data, filename, err := docsService(c).GenerateETicket(c.Request.Context(), caller(c), id, travelerID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	attachment(c, data, filename)
}
