package services

import (
	"context"
	"fmt"
	"strings"

	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
	"tourbooking/internal/repositories"
	"tourbooking/internal/utils"
)

var staffRoles = []string{domain.RoleStaff, domain.RoleAdmin}

// UserService is the back-office account administration: staff CRUD and
// locking of staff and customer accounts.
type UserService struct {
	Users     repositories.UserRepository
	Tokens    repositories.RefreshTokenRepository
	RequestID string
}

func (s UserService) ListStaff(ctx context.Context, q domain.ListQuery) (domain.Page[models.User], error) {
	return s.list(ctx, staffRoles, q)
}

func (s UserService) ListCustomers(ctx context.Context, q domain.ListQuery) (domain.Page[models.User], error) {
	return s.list(ctx, []string{domain.RoleCustomer}, q)
}

func (s UserService) list(ctx context.Context, roles []string, q domain.ListQuery) (domain.Page[models.User], error) {
	users, total, err := s.Users.List(ctx, roles, q)
	if err != nil {
		return domain.Page[models.User]{}, internal(err)
	}
	return domain.NewPage(users, q, total), nil
}

func (s UserService) GetStaff(ctx context.Context, id int64) (models.User, error) {
	return s.getWithRole(ctx, id, true)
}

func (s UserService) GetCustomer(ctx context.Context, id int64) (models.User, error) {
	return s.getWithRole(ctx, id, false)
}

func (s UserService) getWithRole(ctx context.Context, id int64, staff bool) (models.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, internal(err)
	}
	isStaff := u.Role == domain.RoleStaff || u.Role == domain.RoleAdmin
	if isStaff != staff {
		resource := "customer"
		if staff {
			resource = "staff"
		}
		return models.User{}, domain.NotFoundError{Resource: resource}
	}
	return u, nil
}

func (s UserService) CreateStaff(ctx context.Context, in models.StaffInput) (models.User, error) {
	u, err := staffFromInput(in)
	if err != nil {
		return models.User{}, err
	}
	if u.PasswordHash, err = hashPassword(in.Password); err != nil {
		return models.User{}, err
	}
	if u.ID, err = s.Users.Create(ctx, u); err != nil {
		return models.User{}, internal(err)
	}
	utils.LogEvent(s.RequestID, "staff", "create", fmt.Sprintf("user_id=%d role=%s", u.ID, u.Role))
	return s.GetStaff(ctx, u.ID)
}

// UpdateStaff edits a staff profile; a blank password keeps the current one.
func (s UserService) UpdateStaff(ctx context.Context, id int64, in models.StaffInput) (models.User, error) {
	cur, err := s.GetStaff(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	u, err := staffFromInput(in)
	if err != nil {
		return models.User{}, err
	}
	u.ID, u.Active = id, cur.Active
	if in.Password != "" {
		if u.PasswordHash, err = hashPassword(in.Password); err != nil {
			return models.User{}, err
		}
	}
	if err := s.Users.Update(ctx, u); err != nil {
		return models.User{}, internal(err)
	}
	utils.LogEvent(s.RequestID, "staff", "update", fmt.Sprintf("user_id=%d", id))
	return s.GetStaff(ctx, id)
}

func (s UserService) SetStaffLocked(ctx context.Context, rc domain.RequestContext, id int64, locked bool) (models.User, error) {
	if rc.UserID == id && locked {
		return models.User{}, domain.ConflictError{Resource: "staff", Msg: "you cannot lock your own account"}
	}
	if _, err := s.GetStaff(ctx, id); err != nil {
		return models.User{}, err
	}
	if err := s.setLocked(ctx, id, locked); err != nil {
		return models.User{}, err
	}
	return s.GetStaff(ctx, id)
}

func (s UserService) SetCustomerLocked(ctx context.Context, id int64, locked bool) (models.User, error) {
	if _, err := s.GetCustomer(ctx, id); err != nil {
		return models.User{}, err
	}
	if err := s.setLocked(ctx, id, locked); err != nil {
		return models.User{}, err
	}
	return s.GetCustomer(ctx, id)
}

// setLocked also ends every session of a locked account.
func (s UserService) setLocked(ctx context.Context, id int64, locked bool) error {
	if err := s.Users.SetLocked(ctx, id, locked); err != nil {
		return internal(err)
	}
	if locked {
		if err := s.Tokens.RevokeAllForUser(ctx, id); err != nil {
			return internal(err)
		}
	}
	utils.LogEvent(s.RequestID, "users", "set_locked", fmt.Sprintf("user_id=%d locked=%t", id, locked))
	return nil
}

func staffFromInput(in models.StaffInput) (models.User, error) {
	u := models.User{
		FullName: utils.NormalizeSpace(in.FullName),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:    utils.NormalizePhone(in.Phone),
		Role:     strings.ToUpper(strings.TrimSpace(in.Role)),
		Active:   true,
	}
	if u.Role == "" {
		u.Role = domain.RoleStaff
	}
	if u.Role != domain.RoleStaff && u.Role != domain.RoleAdmin {
		return u, domain.ValidationError{Field: "role", Msg: "must be STAFF or ADMIN"}
	}
	if err := validateContact(u.FullName, u.Email, u.Phone); err != nil {
		return u, err
	}
	return u, nil
}
