package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func userApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	handler := NewUserHandler(db)

	app := fiber.New()
	app.Get("/api/admin/users", handler.ListUsers)
	app.Put("/api/admin/users/:id/role", handler.UpdateUserRole)
	return app
}

func putRole(t *testing.T, app *fiber.App, userID, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPut, "/api/admin/users/"+userID+"/role", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestUpdateUserRolePromotesToAdmin(t *testing.T) {
	db, mock := newMockDB(t)
	app := userApp(t, db)

	mock.ExpectExec(`UPDATE "users" SET`).WillReturnResult(sqlmock.NewResult(0, 1))

	resp := putRole(t, app, uuid.NewString(), `{"role":"admin"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserRoleRejectsUnknownRole(t *testing.T) {
	db, mock := newMockDB(t)
	app := userApp(t, db)

	resp := putRole(t, app, uuid.NewString(), `{"role":"emperor"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUserRoleUserNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	app := userApp(t, db)

	mock.ExpectExec(`UPDATE "users" SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	resp := putRole(t, app, uuid.NewString(), `{"role":"customer"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListUsersFiltersByRole(t *testing.T) {
	db, mock := newMockDB(t)
	app := userApp(t, db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "email", "full_name", "role"}).
			AddRow(uuid.NewString(), "owner@winenation.test", "Shop Owner", "admin"))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users?role=admin", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}
