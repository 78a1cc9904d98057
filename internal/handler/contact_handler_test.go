package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horizon-etudes/backoffice-api/internal/dto"
	"github.com/horizon-etudes/backoffice-api/internal/models"
	"github.com/horizon-etudes/backoffice-api/internal/service"
	"github.com/horizon-etudes/backoffice-api/pkg/response"
)

type contactStoreStub struct {
	messages map[string]*models.ContactMessage
}

func newContactStoreStub() *contactStoreStub {
	return &contactStoreStub{messages: make(map[string]*models.ContactMessage)}
}

func (s *contactStoreStub) Create(ctx context.Context, message *models.ContactMessage) error {
	message.ID = "c1"
	s.messages[message.ID] = message
	return nil
}

func (s *contactStoreStub) GetByID(ctx context.Context, id string) (*models.ContactMessage, error) {
	if msg, ok := s.messages[id]; ok {
		return msg, nil
	}
	return nil, sql.ErrNoRows
}

func (s *contactStoreStub) List(ctx context.Context, filter models.ContactFilter) ([]models.ContactMessage, int, error) {
	var out []models.ContactMessage
	for _, msg := range s.messages {
		out = append(out, *msg)
	}
	return out, len(out), nil
}

func (s *contactStoreStub) UpdateStatus(ctx context.Context, id string, status models.ContactStatus) error {
	msg, ok := s.messages[id]
	if !ok {
		return sql.ErrNoRows
	}
	msg.Status = status
	return nil
}

type contactNotifierStub struct{ received int }

func (s *contactNotifierStub) ContactMessageReceived(*models.ContactMessage) { s.received++ }

func newContactHandlerForTest() (*ContactHandler, *contactStoreStub, *contactNotifierStub) {
	store := newContactStoreStub()
	notifier := &contactNotifierStub{}
	svc := service.NewContactService(store, notifier, nil, nil)
	return NewContactHandler(svc), store, notifier
}

func TestContactHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, store, notifier := newContactHandlerForTest()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.CreateContactMessageRequest{
		FirstName: "Moussa",
		LastName:  "Ndiaye",
		Email:     "Moussa@Example.com",
		Subject:   "Demande d'information",
		Message:   "Bonjour, je souhaite des informations sur vos services.",
	})
	req, _ := http.NewRequest(http.MethodPost, "/contact", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, store.messages, 1)
	assert.Equal(t, 1, notifier.received)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Nil(t, envelope.Error)
}

func TestContactHandlerSubmitInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, store, _ := newContactHandlerForTest()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/contact", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	h.Submit(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.messages)
}

func TestContactHandlerUpdateStatusNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h, _, _ := newContactHandlerForTest()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.UpdateContactStatusRequest{Status: "READ"})
	req, _ := http.NewRequest(http.MethodPatch, "/contact/missing/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.UpdateStatus(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
