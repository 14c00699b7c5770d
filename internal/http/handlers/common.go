package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	intconfig "tourbooking/internal/config"
	"tourbooking/internal/domain"
	"tourbooking/internal/http/middleware"
	"tourbooking/internal/services"
	"tourbooking/internal/utils"

	"github.com/gin-gonic/gin"
)

// Deps carries the collaborators handlers cannot resolve from the shared DB.
type Deps struct {
	Env     intconfig.Env
	Cache   services.Cache
	Gateway services.PaymentGateway
	Logger  utils.Logger
	Now     func() time.Time
}

var (
	depsMu sync.RWMutex
	deps   Deps
)

// Configure stores handler dependencies; called once from main before serving.
func Configure(d Deps) {
	depsMu.Lock()
	defer depsMu.Unlock()
	deps = d
}

func current() Deps {
	depsMu.RLock()
	defer depsMu.RUnlock()
	return deps
}

// respondData wraps every successful payload in {"data": ...}.
func respondData(c *gin.Context, status int, v any) {
	c.JSON(status, gin.H{"data": v})
}

// RespondError sends the standard error payload with request_id included.
func RespondError(c *gin.Context, status int, message string, err error) {
	code := strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	if err != nil {
		utils.L().Debug("request error", "request_id", middleware.GetRequestID(c), "error", err.Error())
	}
	respondError(c, status, code, message)
}

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		RespondError(c, http.StatusBadRequest, "request body is empty", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid payload", err)
		return false
	}
	return true
}

// bindOptionalJSON accepts an empty body and leaves dst untouched in that case.
func bindOptionalJSON[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid payload", err)
		return false
	}
	return true
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, http.StatusBadRequest, "invalid "+name, err)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(c.Query(key))); err == nil {
		return n
	}
	return def
}

func queryInt64(c *gin.Context, key string) (int64, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid "+key, err)
		return 0, false
	}
	return n, true
}

// listQuery reads paging and sorting plus the named filters from the query string.
func listQuery(c *gin.Context, filters ...string) domain.ListQuery {
	q := domain.ListQuery{
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "pageSize", domain.DefaultPageSize),
		Keyword:   c.Query("keyword"),
		Status:    c.Query("status"),
		SortField: c.Query("sortBy"),
		SortDesc:  strings.EqualFold(c.Query("sortOrder"), "desc"),
	}
	for _, k := range filters {
		if v := strings.TrimSpace(c.Query(k)); v != "" {
			if q.Filters == nil {
				q.Filters = map[string]string{}
			}
			q.Filters[k] = v
		}
	}
	return q.Normalize()
}

func requestID(c *gin.Context) string {
	return middleware.GetRequestID(c)
}

func caller(c *gin.Context) domain.RequestContext {
	return middleware.Caller(c)
}

func attachment(c *gin.Context, data []byte, filename string) {
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
