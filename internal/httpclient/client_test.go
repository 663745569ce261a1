package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("Expected method GET, got %s", r.Method)
		}
		if r.URL.Path != "/test" {
			t.Errorf("Expected path /test, got %s", r.URL.Path)
		}
		if r.Header.Get("X-Test-Header") != "test-value" {
			t.Errorf("Expected header X-Test-Header: test-value, got %s", r.Header.Get("X-Test-Header"))
		}
		if r.Header.Get("User-Agent") != "surge-test" {
			t.Errorf("Expected default User-Agent to apply, got %s", r.Header.Get("User-Agent"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"success"}`))
	}))
	defer server.Close()

	client := NewClient(
		WithTimeout(5*time.Second),
		WithDefaultHeader("User-Agent", "surge-test"),
		WithBaseURL(server.URL),
	)

	req := NewRequest("GET", "/test").WithHeader("X-Test-Header", "test-value")

	resp, err := client.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("Error executing request: %v", err)
	}

	if resp.StatusCode() != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode())
	}
	if got := resp.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", got)
	}
	if resp.BodyString() != `{"message":"success"}` {
		t.Errorf("Unexpected body: %s", resp.BodyString())
	}
	if !resp.IsSuccess() {
		t.Error("Expected a success response")
	}
	if resp.Duration() <= 0 {
		t.Error("Expected a positive request duration")
	}
}

func TestClient_DoRequestBaseURLWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL("http://unreachable.invalid"))

	resp, err := client.Do(context.Background(), NewRequest("GET", "/").WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("Error executing request: %v", err)
	}
	if resp.StatusCode() != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", resp.StatusCode())
	}
}

func TestClient_DoRequestHeaderOverridesDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/xml" {
			t.Errorf("Expected the request header to win, got %s", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(
		WithBaseURL(server.URL),
		WithDefaultHeader("Accept", "application/json"),
	)

	_, err := client.Do(context.Background(), NewRequest("GET", "/").WithHeader("Accept", "application/xml"))
	if err != nil {
		t.Fatalf("Error executing request: %v", err)
	}
}

func TestClient_FollowRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/from", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/to", http.StatusFound)
	})
	mux.HandleFunc("/to", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	following := NewClient(WithBaseURL(server.URL))
	resp, err := following.Do(context.Background(), NewRequest("GET", "/from"))
	if err != nil {
		t.Fatalf("Error executing request: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		t.Errorf("Expected the redirect to be followed, got %d", resp.StatusCode())
	}

	pinned := NewClient(WithBaseURL(server.URL), WithFollowRedirects(false))
	resp, err = pinned.Do(context.Background(), NewRequest("GET", "/from"))
	if err != nil {
		t.Fatalf("Error executing request: %v", err)
	}
	if resp.StatusCode() != http.StatusFound {
		t.Errorf("Expected the raw 302, got %d", resp.StatusCode())
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	if _, err := client.Do(ctx, NewRequest("GET", "/slow")); err == nil {
		t.Fatal("Expected an error after context cancellation")
	}
}

func TestNewResponseFake(t *testing.T) {
	resp := NewResponse(http.StatusTeapot, nil, []byte("short and stout"))
	if resp.StatusCode() != http.StatusTeapot {
		t.Errorf("Expected 418, got %d", resp.StatusCode())
	}
	if !resp.IsClientError() || resp.IsSuccess() {
		t.Error("Expected a client error response")
	}
	if resp.BodyString() != "short and stout" {
		t.Errorf("Unexpected body: %s", resp.BodyString())
	}
}

func TestResponse_JSON(t *testing.T) {
	resp := NewResponse(http.StatusOK, nil, []byte(`{"id": 7, "name": "ada"}`))

	var got struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := resp.JSON(&got); err != nil {
		t.Fatalf("Error unmarshaling body: %v", err)
	}
	if got.ID != 7 || got.Name != "ada" {
		t.Errorf("Unexpected payload: %+v", got)
	}
}
