package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-at-least-32-characters-long!"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func authApp(t *testing.T) *fiber.App {
	t.Helper()
	t.Setenv("JWT_SECRET", testSecret)

	app := fiber.New()
	app.Get("/protected", AuthMiddleware, func(c *fiber.Ctx) error {
		userID, err := GetUserID(c)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"user_id": userID, "wallet": GetWallet(c)})
	})
	return app
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	app := authApp(t)

	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id": 42,
		"wallet":  "4Nd1mYFHGQMiZ1ZkZZgwyUrKvYzUKGwEuUXXSb9Qe7CG",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("got status %d, want 200", resp.StatusCode)
	}
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	app := authApp(t)

	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("got status %d, want 401", resp.StatusCode)
	}
}

func TestAuthMiddlewareRejectsWrongSecret(t *testing.T) {
	app := authApp(t)

	token := signToken(t, "some-other-secret-that-is-long-enough!!", jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("got status %d, want 401", resp.StatusCode)
	}
}

func TestAuthMiddlewareFailsWithoutConfiguredSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	app := fiber.New()
	app.Get("/protected", AuthMiddleware, func(c *fiber.Ctx) error {
		return c.SendStatus(200)
	})

	token := signToken(t, testSecret, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 500 {
		t.Fatalf("got status %d, want 500", resp.StatusCode)
	}
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	app := authApp(t)

	req := httptest.NewRequest("GET", "/protected", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("got status %d, want 401", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "NotBearer xyz")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("got status %d, want 401", resp.StatusCode)
	}
}
