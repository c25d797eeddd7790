package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/railway-ticket-booking/internal/config"
)

func TestCaptureWriterReportsFullSizePastTheCap(t *testing.T) {
	cw := &captureWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK, limit: 5}

	if _, err := cw.Write([]byte(`{"ite`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := cw.Write([]byte(`ms":[1,2,3]}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// The buffer caps at the limit but size keeps counting, so the
	// store guard can tell a truncated capture from a complete one.
	if got := cw.buf.Len(); got != 5 {
		t.Fatalf("expected capture buffer capped at 5 bytes, got %d", got)
	}
	if cw.size != 17 {
		t.Fatalf("expected true size 17, got %d", cw.size)
	}
	if cw.size <= cw.limit {
		t.Fatalf("oversized response must fail the store guard (size=%d limit=%d)", cw.size, cw.limit)
	}
}

func TestCaptureWriterWithinLimitKeepsWholeBody(t *testing.T) {
	cw := &captureWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK, limit: 64}

	body := `{"items":[1,2,3]}`
	if _, err := cw.Write([]byte(body)); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if cw.buf.String() != body {
		t.Fatalf("expected full capture %q, got %q", body, cw.buf.String())
	}
	if cw.size != int64(len(body)) {
		t.Fatalf("expected size %d, got %d", len(body), cw.size)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": []string{"application/json"}}
	body := []byte(`{"items":[1,2,3]}`)

	payload, err := encodePayload(http.StatusOK, hdr, body)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	status, gotHdr, gotBody, ok := decodePayload(payload)
	if !ok {
		t.Fatal("decode rejected a valid payload")
	}
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
	if gotHdr.Get("Content-Type") != "application/json" {
		t.Fatalf("content type lost: %v", gotHdr)
	}
	if string(gotBody) != string(body) {
		t.Fatalf("body corrupted: %q", gotBody)
	}
}

func TestDecodePayloadRejectsShortInput(t *testing.T) {
	if _, _, _, ok := decodePayload([]byte{1, 2, 3}); ok {
		t.Fatal("expected short payload to be rejected")
	}
}

func TestCacheKeyIncludesQueryByDefault(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "trains", KeyStrategy: "route_query"}
	e := echo.New()

	keyFor := func(target string) string {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/v1/trains/search")
		return cacheKeyFrom(cfg, c)
	}

	lagos := keyFor("/v1/trains/search?from=Lagos&to=Ibadan&date=2025-04-12")
	abuja := keyFor("/v1/trains/search?from=Abuja&to=Kaduna&date=2025-04-12")
	if lagos == abuja {
		t.Fatal("different searches must not share a cache key")
	}
	if again := keyFor("/v1/trains/search?from=Lagos&to=Ibadan&date=2025-04-12"); again != lagos {
		t.Fatal("identical searches must share a cache key")
	}
}
