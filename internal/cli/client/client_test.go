package client

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func staticTokenClient(url, token string) *Client {
	c := New(url)
	c.SetTokenProvider(func() (string, error) { return token, nil })
	return c
}

func TestDecodeItems_BareArray(t *testing.T) {
	items, err := decodeItems[Workload]([]byte(`[{"id": 1, "name": "w1"}, {"id": 2, "name": "w2"}]`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(items) != 2 || items[0].Name != "w1" || items[1].ID != 2 {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestDecodeItems_WrappedObject(t *testing.T) {
	items, err := decodeItems[Workload]([]byte(`{"items": [{"id": 3, "name": "w3"}], "total": 1}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != 3 {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestDecodeItems_InvalidBody(t *testing.T) {
	if _, err := decodeItems[Workload]([]byte(`"not a collection"`)); err == nil {
		t.Error("expected error for non-collection body")
	}
}

func TestAPIError_DetailExtraction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "Workload not found"}`))
	}))
	defer server.Close()

	c := staticTokenClient(server.URL, "tok")
	_, err := c.GetWorkload(42)
	if err == nil {
		t.Fatal("expected error")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", apiErr.Status)
	}
	if apiErr.Detail != "Workload not found" {
		t.Errorf("expected detail 'Workload not found', got %q", apiErr.Detail)
	}
}

func TestAPIError_PlainBodyFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	c := staticTokenClient(server.URL, "tok")
	_, err := c.GetWorkload(1)

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Detail != "upstream down" {
		t.Errorf("expected raw body as detail, got %q", apiErr.Detail)
	}
}

func TestUnauthorizedHandler_FiresOn401(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Could not validate credentials"}`))
	}))
	defer server.Close()

	c := staticTokenClient(server.URL, "stale")
	fired := false
	c.SetUnauthorizedHandler(func() { fired = true })

	_, err := c.Me()
	if !IsUnauthorized(err) {
		t.Fatalf("expected 401 error, got %v", err)
	}
	if !fired {
		t.Error("expected unauthorized handler to fire")
	}
}

func TestUnauthorizedHandler_FiresOnLogin401(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "Invalid credentials"}`))
	}))
	defer server.Close()

	c := New(server.URL)
	fired := false
	c.SetUnauthorizedHandler(func() { fired = true })

	if _, err := c.Login("alice", "wrong"); err == nil {
		t.Fatal("expected login to fail")
	}
	if !fired {
		t.Error("a 401 must fire the unauthorized handler regardless of endpoint")
	}
}

func TestBearerHeaderAttached(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"id": 1, "username": "alice"}`))
	}))
	defer server.Close()

	c := staticTokenClient(server.URL, "token-xyz")
	if _, err := c.Me(); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if gotAuth != "Bearer token-xyz" {
		t.Errorf("expected bearer header, got %q", gotAuth)
	}
}

func TestListPath(t *testing.T) {
	cases := []struct {
		skip, limit int
		want        string
	}{
		{0, 0, "/api/workloads"},
		{10, 0, "/api/workloads?skip=10"},
		{0, 25, "/api/workloads?skip=0&limit=25"},
		{10, 25, "/api/workloads?skip=10&limit=25"},
	}

	for _, tc := range cases {
		got := listPath("/api/workloads", tc.skip, tc.limit)
		if got != tc.want {
			t.Errorf("listPath(%d, %d) = %q, want %q", tc.skip, tc.limit, got, tc.want)
		}
	}
}
