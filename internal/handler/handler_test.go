package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nmalakhov/canteen-activity/internal/activity"
	"github.com/nmalakhov/canteen-activity/internal/middleware"
	"github.com/nmalakhov/canteen-activity/internal/model"
)

type stubService struct {
	entries []model.ActivityEntry
	err     error
	mode    model.StorageMode
}

func (s *stubService) GetActivity(ctx context.Context, userID string) ([]model.ActivityEntry, error) {
	return s.entries, s.err
}

func (s *stubService) StorageMode(ctx context.Context) model.StorageMode {
	return s.mode
}

func newTestServer(t *testing.T, svc Service) (*httptest.Server, *middleware.AuthMiddleware) {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret")
	h := NewHandler(svc, logger, auth, nil, "")

	srv := httptest.NewServer(h.SetupRouter())
	t.Cleanup(srv.Close)

	return srv, auth
}

func doActivityRequest(t *testing.T, srv *httptest.Server, cookie *http.Cookie) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/user/activity", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return res
}

func TestGetActivity_NoCookie(t *testing.T) {
	srv, _ := newTestServer(t, &stubService{})

	res := doActivityRequest(t, srv, nil)
	defer res.Body.Close()

	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestGetActivity_ReturnsEntries(t *testing.T) {
	createdAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := &stubService{
		entries: []model.ActivityEntry{
			{
				ID:               "RES-1",
				Title:            "Заказ RES-1",
				CreatedAt:        createdAt,
				Status:           "Paid",
				StatusNormalized: "paid",
				Kind:             model.KindOrder,
				Direction:        model.DirectionDebit,
				Sign:             -1,
				Amount:           decimal.NewFromInt(150),
			},
		},
	}
	srv, auth := newTestServer(t, svc)

	res := doActivityRequest(t, srv, &http.Cookie{Name: "auth_token", Value: auth.SignUserID("U1")})
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q", ct)
	}

	var got []map[string]any
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}

	e := got[0]
	if e["id"] != "RES-1" || e["kind"] != "ORDER" || e["direction"] != "DEBIT" {
		t.Fatalf("unexpected entry: %v", e)
	}
	if e["amount"] != "150" {
		t.Fatalf("amount = %v, want \"150\"", e["amount"])
	}
	if e["sign"] != float64(-1) {
		t.Fatalf("sign = %v, want -1", e["sign"])
	}
	if e["created_at"] != createdAt.Format(time.RFC3339) {
		t.Fatalf("created_at = %v", e["created_at"])
	}
}

// Пустая история — успешный ответ с пустым массивом, а не 204 и не 404.
func TestGetActivity_EmptyHistory(t *testing.T) {
	srv, auth := newTestServer(t, &stubService{entries: []model.ActivityEntry{}})

	res := doActivityRequest(t, srv, &http.Cookie{Name: "auth_token", Value: auth.SignUserID("U1")})
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var got []json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %d entries", len(got))
	}
}

func TestGetActivity_UnknownUser(t *testing.T) {
	srv, auth := newTestServer(t, &stubService{err: activity.ErrUnauthorized})

	res := doActivityRequest(t, srv, &http.Cookie{Name: "auth_token", Value: auth.SignUserID("ghost")})
	defer res.Body.Close()

	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestGetActivity_InternalError(t *testing.T) {
	srv, auth := newTestServer(t, &stubService{err: errors.New("backend down")})

	res := doActivityRequest(t, srv, &http.Cookie{Name: "auth_token", Value: auth.SignUserID("U1")})
	defer res.Body.Close()

	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusInternalServerError)
	}
}

func TestPing(t *testing.T) {
	tests := []struct {
		name       string
		mode       model.StorageMode
		wantStatus int
	}{
		{name: "document backend live", mode: model.StorageModeDocument, wantStatus: http.StatusOK},
		{name: "serving from snapshot", mode: model.StorageModeSnapshot, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, &stubService{mode: tt.mode})

			res, err := srv.Client().Get(srv.URL + "/ping")
			if err != nil {
				t.Fatalf("do request: %v", err)
			}
			defer res.Body.Close()

			if res.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", res.StatusCode, tt.wantStatus)
			}

			var body pingResponse
			if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if body.Mode != string(tt.mode) {
				t.Fatalf("mode = %q, want %q", body.Mode, tt.mode)
			}
		})
	}
}

func TestRouter_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, &stubService{})

	res, err := srv.Client().Get(srv.URL + "/api/user/balance")
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "Not Found") {
		t.Fatalf("unexpected body %q", string(body))
	}
}
