package handlers

import (
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/medcita/clinic-backend/models"
)

const (
	countEmailSQL  = "SELECT COUNT(*) FROM users WHERE email = $1"
	loadByEmailSQL = "SELECT id, name, email, password, role, mfa_enabled, mfa_secret, created_at FROM users WHERE email = $1"
)

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hashed)
}

func TestRegister(t *testing.T) {
	body := map[string]string{
		"name":     "Ana Garcia",
		"email":    "ana@example.com",
		"password": "s3cret-pass",
		"role":     models.RolePatient,
	}

	t.Run("patient registers", func(t *testing.T) {
		mock := setupMock(t)
		app := newTestApp()

		mock.ExpectQuery(regexp.QuoteMeta(countEmailSQL)).
			WithArgs("ana@example.com").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(regexp.QuoteMeta(insertUserSQL)).
			WithArgs("Ana Garcia", "ana@example.com", pgxmock.AnyArg(), models.RolePatient).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/register", body))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "user registered")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		mock := setupMock(t)
		app := newTestApp()

		mock.ExpectQuery(regexp.QuoteMeta(countEmailSQL)).
			WithArgs("ana@example.com").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/register", body))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "already registered")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		setupMock(t)
		app := newTestApp()

		bad := map[string]string{"name": "X", "email": "x@example.com", "password": "p", "role": "admin"}
		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/register", bad))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("doctor registers with inline profile", func(t *testing.T) {
		mock := setupMock(t)
		app := newTestApp()

		withProfile := map[string]interface{}{
			"name":     "Luis Soto",
			"email":    "luis@example.com",
			"password": "s3cret-pass",
			"role":     models.RoleDoctor,
			"doctor": map[string]interface{}{
				"specialty":        "cardiology",
				"license":          "MED-1234",
				"experience_years": 8,
				"consultation_fee": 50,
			},
		}

		mock.ExpectQuery(regexp.QuoteMeta(countEmailSQL)).
			WithArgs("luis@example.com").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(regexp.QuoteMeta(insertUserSQL)).
			WithArgs("Luis Soto", "luis@example.com", pgxmock.AnyArg(), models.RoleDoctor).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(2, time.Now()))
		mock.ExpectQuery(regexp.QuoteMeta(insertDoctorSQL)).
			WithArgs(2, "cardiology", "MED-1234", 8, float64(50), "[]").
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(5, time.Now(), time.Now()))

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/register", withProfile))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "MED-1234")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLogin(t *testing.T) {
	hashed := hashPassword(t, "s3cret-pass")
	userRow := func(mfaEnabled bool) *pgxmock.Rows {
		return pgxmock.NewRows([]string{"id", "name", "email", "password", "role", "mfa_enabled", "mfa_secret", "created_at"}).
			AddRow(1, "Ana Garcia", "ana@example.com", hashed, models.RolePatient, mfaEnabled, "", time.Now())
	}

	t.Run("valid credentials issue tokens", func(t *testing.T) {
		mock := setupMock(t)
		app := newTestApp()

		mock.ExpectQuery(regexp.QuoteMeta(loadByEmailSQL)).
			WithArgs("ana@example.com").
			WillReturnRows(userRow(false))
		mock.ExpectExec(regexp.QuoteMeta(insertRefreshTokenSQL)).
			WithArgs(1, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/login",
			map[string]string{"email": "ana@example.com", "password": "s3cret-pass"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body := readBody(t, resp)
		assert.Contains(t, body, "access_token")
		assert.Contains(t, body, "refresh_token")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong password", func(t *testing.T) {
		mock := setupMock(t)
		app := newTestApp()

		mock.ExpectQuery(regexp.QuoteMeta(loadByEmailSQL)).
			WithArgs("ana@example.com").
			WillReturnRows(userRow(false))

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/login",
			map[string]string{"email": "ana@example.com", "password": "wrong"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown email", func(t *testing.T) {
		mock := setupMock(t)
		app := newTestApp()

		mock.ExpectQuery(regexp.QuoteMeta(loadByEmailSQL)).
			WithArgs("ghost@example.com").
			WillReturnError(pgx.ErrNoRows)

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/login",
			map[string]string{"email": "ghost@example.com", "password": "whatever"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mfa-enabled account demands a code", func(t *testing.T) {
		mock := setupMock(t)
		app := newTestApp()

		mock.ExpectQuery(regexp.QuoteMeta(loadByEmailSQL)).
			WithArgs("ana@example.com").
			WillReturnRows(userRow(true))

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/login",
			map[string]string{"email": "ana@example.com", "password": "s3cret-pass"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "requires_mfa")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRefresh(t *testing.T) {
	t.Run("valid token is rotated", func(t *testing.T) {
		mock := setupMock(t)
		app := newTestApp()

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, expires_at, revoked FROM refresh_tokens WHERE token = $1")).
			WithArgs("old-token").
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "expires_at", "revoked"}).
				AddRow(3, 1, time.Now().Add(time.Hour), false))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT role FROM users WHERE id = $1")).
			WithArgs(1).
			WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow(models.RolePatient))
		mock.ExpectExec(regexp.QuoteMeta(rotateRefreshTokenSQL)).
			WithArgs(3, 1, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/refresh",
			map[string]string{"refresh_token": "old-token"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, readBody(t, resp), "access_token")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expired token is refused", func(t *testing.T) {
		mock := setupMock(t)
		app := newTestApp()

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, expires_at, revoked FROM refresh_tokens WHERE token = $1")).
			WithArgs("stale").
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "expires_at", "revoked"}).
				AddRow(3, 1, time.Now().Add(-time.Hour), false))

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/refresh",
			map[string]string{"refresh_token": "stale"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("revoked token is refused", func(t *testing.T) {
		mock := setupMock(t)
		app := newTestApp()

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, expires_at, revoked FROM refresh_tokens WHERE token = $1")).
			WithArgs("revoked").
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "expires_at", "revoked"}).
				AddRow(3, 1, time.Now().Add(time.Hour), true))

		resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/v1/auth/refresh",
			map[string]string{"refresh_token": "revoked"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
