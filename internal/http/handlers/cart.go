package handlers

import (
	"net/http"

	"tourbooking/internal/services"

	"github.com/gin-gonic/gin"
)

func cartService(c *gin.Context) services.CartService {
	return services.CartService{Now: current().Now, RequestID: requestID(c)}
}

type addToCartRequest struct {
	TripID   int64 `json:"tripId"`
	Quantity int   `json:"quantity"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartRemoveRequest struct {
	IDs []int64 `json:"ids"`
}

func ListCart(c *gin.Context) {
	items, err := cartService(c).List(c.Request.Context(), caller(c).UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, items)
}

// AddToCart merges into an existing line for the same trip.
func AddToCart(c *gin.Context) {
	var req addToCartRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.TripID <= 0 {
		RespondError(c, http.StatusBadRequest, "tripId is required", nil)
		return
	}
	it, err := cartService(c).Add(c.Request.Context(), caller(c).UserID, req.TripID, req.Quantity)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusCreated, it)
}

func UpdateCartItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req cartQuantityRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	it, err := cartService(c).UpdateQuantity(c.Request.Context(), caller(c).UserID, id, req.Quantity)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, it)
}

func DeleteCartItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := cartService(c).Remove(c.Request.Context(), caller(c).UserID, id); err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// RemoveCartItems deletes several lines at once.
func RemoveCartItems(c *gin.Context) {
	var req cartRemoveRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if len(req.IDs) == 0 {
		RespondError(c, http.StatusBadRequest, "ids must not be empty", nil)
		return
	}
	n, err := cartService(c).RemoveMany(c.Request.Context(), caller(c).UserID, req.IDs)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"deleted": n})
}

func CartExists(c *gin.Context) {
	tripID, ok := queryInt64(c, "tripId")
	if !ok {
		return
	}
	if tripID <= 0 {
		RespondError(c, http.StatusBadRequest, "tripId is required", nil)
		return
	}
	exists, err := cartService(c).Exists(c.Request.Context(), caller(c).UserID, tripID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"tripId": tripID, "exists": exists})
}

// PromoteCartItem opens (or reuses) the pending booking behind a cart line.
func PromoteCartItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	b, err := cartService(c).PromoteToBooking(c.Request.Context(), caller(c).UserID, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, b)
}
