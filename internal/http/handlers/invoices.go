package handlers

import (
	"net/http"

	"tourbooking/internal/domain"
	"tourbooking/internal/services"

	"github.com/gin-gonic/gin"
)

func invoiceService(c *gin.Context) services.InvoiceService {
	d := current()
	return services.InvoiceService{Gateway: d.Gateway, Now: d.Now, RequestID: requestID(c)}
}

type paymentMethodRequest struct {
	PaymentMethod string `json:"paymentMethod"`
}

func (r paymentMethodRequest) method(def domain.PaymentMethod) (domain.PaymentMethod, error) {
	if r.PaymentMethod == "" {
		if def == "" {
			return "", domain.ValidationError{Field: "paymentMethod", Msg: "required"}
		}
		return def, nil
	}
	m, ok := domain.ParsePaymentMethod(r.PaymentMethod)
	if !ok {
		return "", domain.ValidationError{Field: "paymentMethod", Msg: "must be CASH, BANK_TRANSFER or PAYOS"}
	}
	return m, nil
}

func ListInvoices(c *gin.Context) {
	page, err := invoiceService(c).List(c.Request.Context(), caller(c), listQuery(c, "paymentMethod", "bookingId"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, page)
}

func GetInvoice(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	inv, err := invoiceService(c).Get(c.Request.Context(), caller(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, inv)
}

// InvoicePDF renders the invoice of the booking the invoice belongs to.
func InvoicePDF(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	rc := caller(c)
	inv, err := invoiceService(c).Get(c.Request.Context(), rc, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	data, filename, err := docsService(c).GenerateInvoice(c.Request.Context(), rc, inv.BookingID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	attachment(c, data, filename)
}

// ChangePaymentMethod is refused inside the pre-departure lock window.
func ChangePaymentMethod(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req paymentMethodRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	method, err := req.method("")
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	inv, err := invoiceService(c).ChangeMethod(c.Request.Context(), caller(c), id, method)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, inv)
}

// MarkInvoicePaid records an offline payment; defaults to cash.
func MarkInvoicePaid(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req paymentMethodRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	method, err := req.method(domain.MethodCash)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	inv, err := invoiceService(c).MarkPaid(c.Request.Context(), caller(c), id, method)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, inv)
}
