package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"backend-pameran/internal/config"
	"backend-pameran/internal/http/middleware"
	"backend-pameran/internal/models"
	"backend-pameran/internal/realtime"
	"backend-pameran/internal/service"
	"backend-pameran/internal/token"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

type testEnv struct {
	app      *fiber.App
	mock     sqlmock.Sqlmock
	codec    *token.Codec
	sessions *config.Sessions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	log := zerolog.Nop()
	codec := token.NewCodec("handler-secret")
	sessions := config.NewSessions(codec, time.Hour)
	membership := service.NewMembership(db, nil, &log)
	hub := realtime.NewCheckinHub(&log)
	go hub.Run()
	t.Cleanup(hub.Stop)

	h := New(Deps{
		DB:            db,
		Auth:          service.NewAuth(db, sessions, nil, &log),
		Registrations: service.NewRegistrations(db, sessions, membership, &log),
		Tickets:       service.NewTickets(db, codec, &log),
		Checkins:      service.NewCheckins(db, codec, nil, hub, &log),
		Hub:           hub,
		Log:           &log,
	})

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(&log)})
	Routes(app, h, middleware.JWTAuth(sessions, membership))

	return &testEnv{app: app, mock: mock, codec: codec, sessions: sessions}
}

func (e *testEnv) bearer(t *testing.T, userID int64, role string) string {
	t.Helper()
	tok, err := e.sessions.GenerateToken(models.User{ID: userID, FullName: "Test", Email: "t@x.com", Role: role})
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok
}

func (e *testEnv) expectCaller(userID int64, role string, exhibitions ...int64) {
	e.mock.ExpectQuery("SELECT role FROM users").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow(role))
	rows := sqlmock.NewRows([]string{"exhibition_id"})
	for _, id := range exhibitions {
		rows.AddRow(id)
	}
	e.mock.ExpectQuery("SELECT exhibition_id FROM registrations").
		WithArgs(userID).
		WillReturnRows(rows)
}

func (e *testEnv) do(t *testing.T, method, target, auth string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return resp.StatusCode, out
}

func TestRegisterVisitorEndpoint(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectBegin()
	env.mock.ExpectQuery("SELECT id FROM exhibitions").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	env.mock.ExpectQuery("SELECT id, role FROM users").
		WithArgs("jane@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "role"}))
	env.mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(10, 1))
	env.mock.ExpectExec("INSERT INTO registrations").WillReturnResult(sqlmock.NewResult(100, 1))
	env.mock.ExpectCommit()

	status, body := env.do(t, http.MethodPost, "/registrations", "", fiber.Map{
		"exhibition_id": 1,
		"full_name":     "Jane Doe",
		"email":         "jane@x.com",
		"role":          "visitor",
	})

	if status != http.StatusCreated {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	user := body["user"].(map[string]any)
	reg := body["registration"].(map[string]any)
	if user["role"] != "user" || reg["exhibition_id"] != float64(1) {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["staff_linked"]; ok {
		t.Errorf("staff_linked present for visitor: %v", body)
	}
	if tok, _ := body["access_token"].(string); tok == "" {
		t.Error("access_token missing")
	}
	if err := env.mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRegisterEndpointErrors(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/registrations", "", fiber.Map{
		"exhibition_id": 1,
		"full_name":     "Sam",
		"email":         "sam@x.com",
		"role":          "staff",
	})
	if status != http.StatusBadRequest || body["code"] != "VALIDATION_ERROR" || body["success"] != false {
		t.Fatalf("missing unit_code: %d %v", status, body)
	}
	if details, _ := body["details"].(map[string]any); details["field"] != "unit_code" {
		t.Errorf("details = %v", body["details"])
	}

	env.mock.ExpectBegin()
	env.mock.ExpectQuery("SELECT id FROM exhibitions").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	env.mock.ExpectQuery("SELECT id, role FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "role"}))
	env.mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(11, 1))
	env.mock.ExpectExec("INSERT INTO registrations").WillReturnResult(sqlmock.NewResult(101, 1))
	env.mock.ExpectQuery("SELECT id FROM units").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	env.mock.ExpectRollback()

	status, body = env.do(t, http.MethodPost, "/registrations", "", fiber.Map{
		"exhibition_id": 1,
		"full_name":     "Sam",
		"email":         "sam@x.com",
		"role":          "staff",
		"unit_code":     "NOPE",
	})
	if status != http.StatusBadRequest || body["code"] != "UNIT_NOT_FOUND" {
		t.Fatalf("unknown unit: %d %v", status, body)
	}

	req := httptest.NewRequest(http.MethodPost, "/registrations", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body status = %d", resp.StatusCode)
	}
}

func TestQRTokenEndpoint(t *testing.T) {
	env := newTestEnv(t)
	auth := env.bearer(t, 42, models.RoleUser)

	env.expectCaller(42, models.RoleUser, 1)
	status, body := env.do(t, http.MethodGet, "/tickets/qr-token?exhibition_id=99", auth, nil)
	if status != http.StatusForbidden || body["code"] != "ACCESS_DENIED" {
		t.Fatalf("unregistered exhibition: %d %v", status, body)
	}
	if _, ok := body["qr_token"]; ok {
		t.Error("qr_token returned on 403")
	}

	env.expectCaller(42, models.RoleUser, 1)
	status, body = env.do(t, http.MethodGet, "/tickets/qr-token?exhibition_id=1", auth, nil)
	if status != http.StatusOK || body["expires_in"] != float64(300) {
		t.Fatalf("registered exhibition: %d %v", status, body)
	}

	claims := &token.AccessClaims{}
	if err := env.codec.Verify(body["qr_token"].(string), claims); err != nil {
		t.Fatalf("qr_token does not verify: %v", err)
	}
	if claims.UID != 42 || claims.EID != 1 {
		t.Errorf("claims = %+v", claims)
	}
}

func TestQRImageEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.expectCaller(42, models.RoleUser, 1)

	req := httptest.NewRequest(http.MethodGet, "/tickets/qr-image?exhibition_id=1&size=200", nil)
	req.Header.Set("Authorization", env.bearer(t, 42, models.RoleUser))
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("status = %d content-type = %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if resp.Header.Get("X-Expires-In") != "300" {
		t.Errorf("X-Expires-In = %q", resp.Header.Get("X-Expires-In"))
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/tickets/qr-token?exhibition_id=1", "", nil)
	if status != http.StatusUnauthorized || body["code"] != "UNAUTHORIZED" {
		t.Errorf("no header: %d %v", status, body)
	}

	status, body = env.do(t, http.MethodGet, "/tickets/qr-token?exhibition_id=1", "Bearer nope", nil)
	if status != http.StatusUnauthorized || body["code"] != "INVALID_TOKEN" {
		t.Errorf("garbage token: %d %v", status, body)
	}
}

func TestVerifyEndpoint(t *testing.T) {
	env := newTestEnv(t)
	staff := env.bearer(t, 5, models.RoleStaff)

	qr, err := env.codec.Sign(token.NewAccessClaims(42, 1, env.codec.Now()))
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.Split(qr, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	env.expectCaller(5, models.RoleStaff, 1)
	status, body := env.do(t, http.MethodPost, "/tickets/verify", staff, fiber.Map{"token": tampered})
	if status != http.StatusBadRequest || body["code"] != "INVALID_QR_TOKEN" {
		t.Fatalf("tampered: %d %v", status, body)
	}

	env.expectCaller(42, models.RoleUser, 1)
	status, body = env.do(t, http.MethodPost, "/tickets/verify", env.bearer(t, 42, models.RoleUser), fiber.Map{"token": qr})
	if status != http.StatusForbidden {
		t.Fatalf("visitor scanning: %d %v", status, body)
	}

	env.expectCaller(5, models.RoleStaff, 1)
	env.mock.ExpectQuery("SELECT us.unit_id FROM unit_staff").
		WillReturnRows(sqlmock.NewRows([]string{"unit_id"}).AddRow(7))
	env.mock.ExpectBegin()
	env.mock.ExpectQuery("FROM registrations r JOIN users u").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "picture_url"}).AddRow(42, "Jane Doe", nil))
	env.mock.ExpectExec("INSERT INTO checkins").WillReturnResult(sqlmock.NewResult(1, 1))
	env.mock.ExpectCommit()

	status, body = env.do(t, http.MethodPost, "/tickets/verify", staff, fiber.Map{"token": qr})
	if status != http.StatusOK || body["success"] != true || body["message"] != "checked in" {
		t.Fatalf("first scan: %d %v", status, body)
	}

	env.expectCaller(5, models.RoleStaff, 1)
	env.mock.ExpectQuery("SELECT us.unit_id FROM unit_staff").
		WillReturnRows(sqlmock.NewRows([]string{"unit_id"}).AddRow(7))
	env.mock.ExpectBegin()
	env.mock.ExpectQuery("FROM registrations r JOIN users u").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "picture_url"}).AddRow(42, "Jane Doe", nil))
	env.mock.ExpectExec("INSERT INTO checkins").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	env.mock.ExpectQuery("SELECT checkin_at FROM checkins").
		WillReturnRows(sqlmock.NewRows([]string{"checkin_at"}).AddRow(time.Now().UTC()))
	env.mock.ExpectCommit()

	status, body = env.do(t, http.MethodPost, "/tickets/verify", staff, fiber.Map{"token": qr})
	if status != http.StatusConflict || body["success"] != false || body["code"] != "ALREADY_CHECKED_IN" {
		t.Fatalf("second scan: %d %v", status, body)
	}
	if _, ok := body["visitor"]; !ok {
		t.Error("duplicate scan should still identify the visitor")
	}
	if err := env.mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestVerifyEndpointRejectsNegativeUnit(t *testing.T) {
	env := newTestEnv(t)
	env.expectCaller(5, models.RoleStaff, 1)

	status, body := env.do(t, http.MethodPost, "/tickets/verify", env.bearer(t, 5, models.RoleStaff),
		fiber.Map{"token": "x", "unit_id": -1})
	if status != http.StatusBadRequest || body["code"] != "VALIDATION_ERROR" {
		t.Fatalf("negative unit: %d %v", status, body)
	}
}

func TestVerifyEndpointMissingToken(t *testing.T) {
	env := newTestEnv(t)
	staff := env.bearer(t, 5, models.RoleStaff)

	for _, body := range []fiber.Map{{"token": ""}, {"unit_id": 7}} {
		env.expectCaller(5, models.RoleStaff, 1)
		status, out := env.do(t, http.MethodPost, "/tickets/verify", staff, body)
		if status != http.StatusBadRequest || out["code"] != "INVALID_QR_TOKEN" {
			t.Errorf("body %v: %d %v", body, status, out)
		}
	}
	if err := env.mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/healthz", "", nil)
	if status != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("healthz: %d %v", status, body)
	}
}
