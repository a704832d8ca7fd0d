package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"hemobank/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func seedHospital(t *testing.T, s *Server, username, password string) *models.Hospital {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	hospital := &models.Hospital{
		Username: username,
		Name:     "Mercy General",
		Password: string(hashed),
		City:     "Portland",
	}
	if err := s.db.Create(hospital).Error; err != nil {
		t.Fatalf("seed hospital: %v", err)
	}
	return hospital
}

func TestHospitalLoginIssuesSession(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)
	s.redis = newTestRedis(t)
	seedHospital(t, s, "mercy-general", "correct horse battery")

	app := fiber.New()
	app.Post("/login", s.HospitalLogin)
	app.Get("/whoami", s.HospitalAuthRequired(), func(c *fiber.Ctx) error {
		id, username := currentHospital(c)
		return c.JSON(fiber.Map{"id": id, "username": username})
	})

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/login",
		HospitalLoginRequest{Username: "mercy-general", Password: "correct horse battery"}))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("expected a session token")
	}

	// Use the token against a protected route.
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	who := decodeBody(t, resp)
	if who["username"] != "mercy-general" {
		t.Fatalf("unexpected identity: %v", who)
	}
}

func TestHospitalLoginRejectsBadPassword(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)
	s.redis = newTestRedis(t)
	seedHospital(t, s, "mercy-general", "correct horse battery")

	app := fiber.New()
	app.Post("/login", s.HospitalLogin)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/login",
		HospitalLoginRequest{Username: "mercy-general", Password: "wrong"}))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestHospitalAuthRequiredWithoutToken(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)
	s.redis = newTestRedis(t)

	app := fiber.New()
	app.Get("/protected", s.HospitalAuthRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["error"] != "Unauthorized: Hospital login required" {
		t.Fatalf("unexpected error message: %v", body["error"])
	}
}

func TestHospitalLogoutRevokesSession(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)
	s.redis = newTestRedis(t)
	seedHospital(t, s, "mercy-general", "correct horse battery")

	app := fiber.New()
	app.Post("/login", s.HospitalLogin)
	app.Post("/logout", s.HospitalAuthRequired(), s.HospitalLogout)
	app.Get("/protected", s.HospitalAuthRequired(), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/login",
		HospitalLoginRequest{Username: "mercy-general", Password: "correct horse battery"}))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	token := decodeBody(t, resp)["token"].(string)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}
