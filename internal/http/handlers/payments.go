package handlers

import (
	"net/http"
	"strconv"

	"tourbooking/internal/payos"
	"tourbooking/internal/services"

	"github.com/gin-gonic/gin"
)

func paymentService(c *gin.Context) services.PaymentService {
	d := current()
	return services.PaymentService{
		Gateway:   d.Gateway,
		ReturnURL: d.Env.PaymentReturnURL,
		CancelURL: d.Env.PaymentCancelURL,
		Now:       d.Now,
		RequestID: requestID(c),
	}
}

type createLinkRequest struct {
	BookingID int64 `json:"bookingId"`
}

func orderCodeParam(c *gin.Context) (int64, bool) {
	code, err := strconv.ParseInt(c.Param("orderCode"), 10, 64)
	if err != nil || code <= 0 {
		RespondError(c, http.StatusBadRequest, "invalid orderCode", err)
		return 0, false
	}
	return code, true
}

// CreatePaymentLink returns an open PayOS link for a confirmed booking, reusing one when possible.
func CreatePaymentLink(c *gin.Context) {
	var req createLinkRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.BookingID <= 0 {
		RespondError(c, http.StatusBadRequest, "bookingId is required", nil)
		return
	}
	link, err := paymentService(c).CreateLink(c.Request.Context(), caller(c), req.BookingID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusCreated, link)
}

// PaymentLinkStatus is polled by the client until the link settles.
func PaymentLinkStatus(c *gin.Context) {
	code, ok := orderCodeParam(c)
	if !ok {
		return
	}
	link, err := paymentService(c).Status(c.Request.Context(), caller(c), code)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, link)
}

func CancelPaymentLink(c *gin.Context) {
	code, ok := orderCodeParam(c)
	if !ok {
		return
	}
	link, err := paymentService(c).Cancel(c.Request.Context(), caller(c), code)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, link)
}

// PaymentWebhook receives PayOS notifications; unknown orders are acknowledged.
func PaymentWebhook(c *gin.Context) {
	var wh payos.Webhook
	if !BindJSONOrError(c, &wh) {
		return
	}
	if err := paymentService(c).HandleWebhook(c.Request.Context(), wh); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"success": true})
}
