package handlers

import (
	"net/http"

	"tourbooking/internal/domain/models"
	"tourbooking/internal/services"

	"github.com/gin-gonic/gin"
)

func userService(c *gin.Context) services.UserService {
	return services.UserService{RequestID: requestID(c)}
}

type lockRequest struct {
	Locked bool `json:"locked"`
}

func ListStaff(c *gin.Context) {
	page, err := userService(c).ListStaff(c.Request.Context(), listQuery(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, page)
}

func GetStaff(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	u, err := userService(c).GetStaff(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, u)
}

func CreateStaff(c *gin.Context) {
	var in models.StaffInput
	if !BindJSONOrError(c, &in) {
		return
	}
	u, err := userService(c).CreateStaff(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusCreated, u)
}

func UpdateStaff(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in models.StaffInput
	if !BindJSONOrError(c, &in) {
		return
	}
	u, err := userService(c).UpdateStaff(c.Request.Context(), id, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, u)
}

func LockStaff(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req lockRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	u, err := userService(c).SetStaffLocked(c.Request.Context(), caller(c), id, req.Locked)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, u)
}

func ListCustomers(c *gin.Context) {
	page, err := userService(c).ListCustomers(c.Request.Context(), listQuery(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, page)
}

func GetCustomer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	u, err := userService(c).GetCustomer(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, u)
}

// LockCustomer also revokes the customer's sessions when locking.
func LockCustomer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req lockRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	u, err := userService(c).SetCustomerLocked(c.Request.Context(), id, req.Locked)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	respondData(c, http.StatusOK, u)
}
