package http_test

import (
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apihttp "github.com/rodrigofm92/chamado-import-service/internal/api/http"
)

func TestRequestTimeoutBoundsHandlerContext(t *testing.T) {
	app := fiber.New()
	apihttp.RegisterMiddlewares(app, zap.NewNop(), nil, 2*time.Second)

	var deadlineSet bool
	app.Get("/deadline-check", func(c *fiber.Ctx) error {
		_, deadlineSet = c.UserContext().Deadline()
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(stdhttp.MethodGet, "/deadline-check", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !deadlineSet {
		t.Error("handler context carries no deadline; request timeout is not applied")
	}
}

func TestDomainErrorsRenderAsEnvelope(t *testing.T) {
	app := fiber.New()
	apihttp.RegisterMiddlewares(app, zap.NewNop(), nil, 0)

	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("unexpected")
	})

	resp, err := app.Test(httptest.NewRequest(stdhttp.MethodGet, "/boom", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != stdhttp.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}
