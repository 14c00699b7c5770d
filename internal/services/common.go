package services

import (
	"database/sql"
	"strings"
	"time"

	intconfig "tourbooking/internal/config"
	"tourbooking/internal/domain"

	"github.com/google/uuid"
)

func dbOr(db *sql.DB) *sql.DB {
	if db != nil {
		return db
	}
	return intconfig.DB
}

func nowOr(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now()
}

// newCode builds a short human-facing reference such as "BK-3F9A1C2D".
func newCode(prefix string) string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return prefix + "-" + raw[:8]
}

// checkOwner lets staff through and customers only onto their own records.
// Foreign records are reported as missing so ids do not leak.
func checkOwner(rc domain.RequestContext, ownerID int64, resource string) error {
	if rc.IsStaff() || rc.UserID == ownerID {
		return nil
	}
	return domain.NotFoundError{Resource: resource}
}

// scopeUser returns the user filter for list queries: 0 (everyone) for staff.
func scopeUser(rc domain.RequestContext) int64 {
	if rc.IsStaff() {
		return 0
	}
	return rc.UserID
}

func requireStaff(rc domain.RequestContext) error {
	if !rc.IsStaff() {
		return domain.ForbiddenError{Msg: "staff only"}
	}
	return nil
}

// internal wraps unexpected storage errors while letting typed domain errors through.
func internal(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsValidation(err) || domain.IsNotFound(err) || domain.IsConflict(err) ||
		domain.IsUnauthorized(err) || domain.IsForbidden(err) || domain.IsInternal(err) {
		return err
	}
	return domain.InternalError{Err: err}
}
