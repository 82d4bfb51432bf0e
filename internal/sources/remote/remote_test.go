package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/customers":
			fmt.Fprint(w, `[{"id":1,"name":"A"},{"id":2,"name":"B"}]`)
		case "/api/transactions":
			fmt.Fprint(w, `[{"id":1,"customer_id":1,"date":"2024-01-01","amount":10},{"id":3,"customer_id":2,"date":"2024-01-01","amount":20}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/api/", srv.Client(), nil)
	if err != nil {
		t.Fatal(err)
	}
	snap, err := c.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Customers) != 2 || len(snap.Transactions) != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.CustomerName(2) != "B" {
		t.Fatal("customer index not built")
	}
}

func TestFetchSnapshotErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(error) bool
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			check: func(err error) bool { return IsStatus(err, http.StatusNotFound) },
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"customers":`)
			},
			check: func(err error) bool { return err != nil && !IsStatus(err, http.StatusOK) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			c, _ := New(srv.URL, srv.Client(), nil)
			snap, err := c.FetchSnapshot(context.Background())
			if snap != nil || !tt.check(err) {
				t.Fatalf("unexpected result snap=%v err=%v", snap, err)
			}
		})
	}
}

func TestFetchSnapshotHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c, _ := New(srv.URL, srv.Client(), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.FetchSnapshot(ctx); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, in := range []string{"", "ftp://x", "://bad"} {
		if _, err := New(in, nil, nil); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}
