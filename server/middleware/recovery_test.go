package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kbukum/mediascribe/logger"
	"github.com/kbukum/mediascribe/server/middleware"
)

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &logs)
	h := middleware.Recovery(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("decoder exploded")
	}))

	rr := serve(h, httptest.NewRequest(http.MethodPost, "/v1/jobs", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("body %q: %v", rr.Body.String(), err)
	}
	if body.Error.Code != "INTERNAL_ERROR" || strings.Contains(body.Error.Message, "exploded") {
		t.Errorf("error = %+v", body.Error)
	}
	if !strings.Contains(logs.String(), "decoder exploded") || !strings.Contains(logs.String(), `"stack"`) {
		t.Errorf("panic not logged with stack: %s", logs.String())
	}
}

func TestRecovery_PassesThrough(t *testing.T) {
	rr := serve(middleware.Recovery(logger.Nop())(http.HandlerFunc(ok)), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if rr.Code != http.StatusOK || rr.Body.Len() != 0 {
		t.Errorf("status = %d body = %q", rr.Code, rr.Body.String())
	}
}

func TestRecovery_RepanicsAbortHandler(t *testing.T) {
	h := middleware.Recovery(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want ErrAbortHandler", rec)
		}
	}()
	serve(h, httptest.NewRequest(http.MethodGet, "/v1/jobs/x/events", http.NoBody))
}
