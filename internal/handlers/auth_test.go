package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/winenation/internal/config"
)

func authApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	cfg := &config.Config{JWTSecret: "test-secret", TokenExpires: time.Hour}
	handler := NewAuthHandler(db, cfg)

	app := fiber.New()
	app.Post("/api/auth/setup-admin", handler.SetupAdmin)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestSetupAdminCreatesFirstAdmin(t *testing.T) {
	db, mock := newMockDB(t)
	app := authApp(t, db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`INSERT INTO "users"`).WillReturnResult(sqlmock.NewResult(0, 1))

	resp := postJSON(t, app, "/api/auth/setup-admin",
		`{"email":"owner@winenation.test","full_name":"Shop Owner","password":"opensesame"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetupAdminLockedOnceAdminExists(t *testing.T) {
	db, mock := newMockDB(t)
	app := authApp(t, db)

	// One admin on record is enough to close the bootstrap; no user row is
	// ever read or written.
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	resp := postJSON(t, app, "/api/auth/setup-admin",
		`{"email":"second@winenation.test","full_name":"Second Admin","password":"opensesame"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetupAdminRequiresFields(t *testing.T) {
	db, _ := newMockDB(t)
	app := authApp(t, db)

	resp := postJSON(t, app, "/api/auth/setup-admin", `{"email":"owner@winenation.test"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
