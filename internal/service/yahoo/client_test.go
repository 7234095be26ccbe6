package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func chartBody(symbol string, stamps []int64, closes []string) string {
	return fmt.Sprintf(`{"chart":{"result":[{"meta":{"symbol":%q},"timestamp":[%s],"indicators":{"quote":[{"close":[%s]}]}}],"error":null}}`,
		symbol, joinInt64(stamps), strings.Join(closes, ","))
}

func joinInt64(xs []int64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%d", x)
	}
	return strings.Join(parts, ",")
}

func TestDailyClosesSkipsNulls(t *testing.T) {
	d1 := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	d3 := d1.AddDate(0, 0, 2)
	body := chartBody("TRY=X", []int64{d1.Unix(), d2.Unix(), d3.Unix()}, []string{"7.42", "null", "7.51"})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "TRY=X") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, time.Minute, nil)
	got, err := c.DailyCloses(context.Background(), "TRY=X", d1, d3)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 closes, got %d", len(got))
	}
	if got[d1] != 7.42 || got[d3] != 7.51 {
		t.Fatalf("unexpected closes %v", got)
	}
	if _, ok := got[d2]; ok {
		t.Fatalf("null close should be omitted")
	}
}

func TestDailyClosesCachesResponses(t *testing.T) {
	d := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		_, _ = w.Write([]byte(chartBody("EUR=X", []int64{d.Unix()}, []string{"1.18"})))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, time.Minute, nil)
	for i := 0; i < 3; i++ {
		if _, err := c.DailyCloses(context.Background(), "EUR=X", d, d); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if n := atomic.LoadInt64(&hits); n != 1 {
		t.Fatalf("expected 1 upstream hit, got %d", n)
	}
}

func TestDailyClosesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[],"error":{"code":"Not Found","description":"no data"}}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, time.Minute, nil)
	_, err := c.DailyCloses(context.Background(), "BAD=X", time.Now().AddDate(0, 0, -5), time.Now())
	if err == nil || !strings.Contains(err.Error(), "no data") {
		t.Fatalf("expected API error, got %v", err)
	}
}
