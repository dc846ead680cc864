package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRouterHealthz(t *testing.T) {
	ts := httptest.NewServer(NewRouter())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck // test cleanup
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestRouterMetricsExposesCollectors(t *testing.T) {
	ObservePage("contest", OutcomeOK)
	ts := httptest.NewServer(NewRouter())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close() //nolint:errcheck // test cleanup
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "atcoder_crawl_pages_total") {
		t.Fatal("expected crawl page counter in exposition")
	}
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	ts := httptest.NewServer(NewRouter())
	defer ts.Close()

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "404"))
	resp, err := http.Get(ts.URL + "/missing")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "404"))
	if after-before != 1 {
		t.Fatalf("expected one 404 to be recorded, got %v", after-before)
	}
}
