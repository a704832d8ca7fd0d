package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"hemobank/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

func seedAdmin(t *testing.T, s *Server, username, password string) {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := s.db.Create(&models.AdminUser{Username: username, Password: string(hashed)}).Error; err != nil {
		t.Fatalf("seed admin: %v", err)
	}
}

func adminApp(s *Server) *fiber.App {
	app := fiber.New()
	app.Post("/admin/login", s.AdminLogin)
	hospitals := app.Group("/admin/hospitals", s.AdminRequired())
	hospitals.Get("/", s.GetHospitals)
	hospitals.Post("/", s.CreateHospital)
	hospitals.Put("/:id", s.UpdateHospital)
	hospitals.Delete("/:id", s.DeleteHospital)
	return app
}

func adminToken(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/admin/login",
		AdminLoginRequest{Username: "ops", Password: "operations pass"}))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on login, got %d", resp.StatusCode)
	}
	token, _ := decodeBody(t, resp)["token"].(string)
	if token == "" {
		t.Fatal("expected a JWT")
	}
	return token
}

func TestAdminHospitalLifecycle(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)
	seedAdmin(t, s, "ops", "operations pass")

	app := adminApp(s)
	token := adminToken(t, app)

	// Unauthenticated access is rejected.
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/admin/hospitals/", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	// Create a hospital.
	req := jsonRequest(t, http.MethodPost, "/admin/hospitals/", HospitalUpsertRequest{
		Username: "mercy-general",
		Name:     "Mercy General",
		Password: "long enough pass",
		City:     "Portland",
	})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	created := decodeBody(t, resp)["hospital"].(map[string]any)
	id := uint(created["id"].(float64))

	// Duplicate username conflicts.
	req = jsonRequest(t, http.MethodPost, "/admin/hospitals/", HospitalUpsertRequest{
		Username: "mercy-general",
		Name:     "Other",
		Password: "long enough pass",
	})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	// Update the city.
	req = jsonRequest(t, http.MethodPut, fmt.Sprintf("/admin/hospitals/%d", id),
		HospitalUpsertRequest{City: "Salem"})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var stored models.Hospital
	if err := db.First(&stored, id).Error; err != nil {
		t.Fatalf("reload hospital: %v", err)
	}
	if stored.City != "Salem" {
		t.Fatalf("expected Salem, got %s", stored.City)
	}

	// Delete it.
	req = httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/admin/hospitals/%d", id), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAdminLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)
	seedAdmin(t, s, "ops", "operations pass")

	app := adminApp(s)
	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/admin/login",
		AdminLoginRequest{Username: "ops", Password: "wrong"}))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAdminRequiredRejectsGarbageToken(t *testing.T) {
	t.Parallel()

	db := setupHandlerTestDB(t)
	s := newTestServer(t, db)

	app := adminApp(s)
	req := httptest.NewRequest(http.MethodGet, "/admin/hospitals/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
