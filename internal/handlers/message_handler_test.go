package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/vibechat/vibechat-backend/internal/models"
	"github.com/vibechat/vibechat-backend/internal/repository"
	"github.com/vibechat/vibechat-backend/internal/service"
)

// brokenMessageRepo fails every write the way an unreachable store would.
type brokenMessageRepo struct {
	createErr error
}

func (r *brokenMessageRepo) CreateWithProjection(*models.Message) error {
	return r.createErr
}

func (r *brokenMessageRepo) FindByID(uint) (*models.Message, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *brokenMessageRepo) FindWindow(uint, int) ([]models.Message, error) {
	return nil, nil
}

func (r *brokenMessageRepo) LoadLikes(uint) (repository.LikeState, int, bool, error) {
	return repository.LikeState{}, 0, false, nil
}

func (r *brokenMessageRepo) CommitLikes(uint, repository.LikeState, int) (bool, error) {
	return false, nil
}

func (r *brokenMessageRepo) DeleteWithProjection(uint, uint, *models.MessageSummary, bool) error {
	return nil
}

func newSendTestApp(repo repository.MessageRepositoryInterface) *fiber.App {
	handler := NewMessageHandler(service.NewMessageService(repo, nil), nil, nil, nil)
	app := fiber.New()
	app.Post("/api/rooms/:id/messages", func(c *fiber.Ctx) error {
		c.Locals("userID", uint(1))
		c.Locals("name", "alice")
		return handler.SendMessage(c)
	})
	return app
}

func TestSendMessageStoreFailureIsInternal(t *testing.T) {
	app := newSendTestApp(&brokenMessageRepo{
		createErr: errors.New("pq: connection refused host=db-internal-1"),
	})

	req := httptest.NewRequest("POST", "/api/rooms/1/messages", strings.NewReader(`{"text":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Errorf("status = %d, want %d for a store failure", resp.StatusCode, fiber.StatusInternalServerError)
	}

	body, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(body), "db-internal-1") {
		t.Errorf("response leaks internal error detail: %s", body)
	}
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("response is not JSON: %s", body)
	}
	if envelope["code"] != "send_failed" {
		t.Errorf("code = %v, want send_failed", envelope["code"])
	}
}

func TestSendMessageValidationFailureIsBadRequest(t *testing.T) {
	app := newSendTestApp(&brokenMessageRepo{createErr: errors.New("unreachable")})

	// Empty payload never reaches the store; only validation speaks.
	req := httptest.NewRequest("POST", "/api/rooms/1/messages", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("status = %d, want %d for an invalid payload", resp.StatusCode, fiber.StatusBadRequest)
	}
	body, _ := io.ReadAll(resp.Body)
	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("response is not JSON: %s", body)
	}
	if envelope["code"] != "invalid_message" {
		t.Errorf("code = %v, want invalid_message", envelope["code"])
	}
}
