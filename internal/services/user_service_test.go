package services

import (
	"context"
	"testing"

	"tourbooking/internal/domain"
	"tourbooking/internal/domain/models"
	"tourbooking/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestCreateStaffValidatesContact(t *testing.T) {
	svc := UserService{}
	cases := []models.StaffInput{
		{FullName: "Le Thu", Email: "thu@tour.vn", Phone: "12345", Password: "secret123"},
		{FullName: "Le Thu", Email: "thu@", Password: "secret123"},
		{FullName: "Le Thu", Email: "thu@tour.vn", Role: "CUSTOMER", Password: "secret123"},
		{FullName: "Le Thu", Email: "thu@tour.vn", Password: "1"},
	}
	for i, in := range cases {
		if _, err := svc.CreateStaff(context.Background(), in); !domain.IsValidation(err) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestLockCustomerRevokesSessions(t *testing.T) {
	db, mock := newMock(t)
	svc := UserService{Users: repositories.NewUserRepository(db), Tokens: repositories.NewRefreshTokenRepository(db)}
	row := func(locked bool) *sqlmock.Rows {
		return userRows().AddRow(8, "Pham Hoa", "hoa@example.com", "", "x", domain.RoleCustomer, locked, true, testNow, testNow)
	}

	mock.ExpectQuery("FROM users WHERE id").WithArgs(int64(8)).WillReturnRows(row(false))
	mock.ExpectExec("UPDATE users SET locked").WithArgs(true, int64(8)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked=1 WHERE user_id").WithArgs(int64(8)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM users WHERE id").WithArgs(int64(8)).WillReturnRows(row(true))

	u, err := svc.SetCustomerLocked(context.Background(), 8, true)
	if err != nil {
		t.Fatalf("SetCustomerLocked error: %v", err)
	}
	if !u.Locked {
		t.Fatalf("expected locked user, got %+v", u)
	}
	expectationsMet(t, mock)
}

func TestStaffEndpointsHideCustomers(t *testing.T) {
	db, mock := newMock(t)
	svc := UserService{Users: repositories.NewUserRepository(db)}

	mock.ExpectQuery("FROM users WHERE id").WithArgs(int64(8)).
		WillReturnRows(userRows().AddRow(8, "Pham Hoa", "hoa@example.com", "", "x", domain.RoleCustomer, false, true, testNow, testNow))

	if _, err := svc.GetStaff(context.Background(), 8); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestStaffCannotLockThemselves(t *testing.T) {
	svc := UserService{}
	admin := domain.RequestContext{UserID: 1, Role: domain.RoleAdmin}
	if _, err := svc.SetStaffLocked(context.Background(), admin, 1, true); !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
