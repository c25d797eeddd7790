package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPaystackInitialize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transaction/initialize" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_x" {
			t.Fatalf("wrong auth header %q", got)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if body["amount"].(float64) != 840000 {
			t.Fatalf("amount not forwarded in kobo: %v", body["amount"])
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]string{
				"authorization_url": "https://checkout.paystack.com/abc",
				"access_code":       "abc",
				"reference":         "ref-abc",
			},
		})
	}))
	defer srv.Close()

	g := NewPaystackGateway(srv.URL, "sk_test_x")
	res, err := g.Initialize(context.Background(), InitializeRequest{
		Email:      "buyer@example.com",
		AmountKobo: 840000,
		Reference:  "ref-abc",
	})
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if res.AuthorizationURL != "https://checkout.paystack.com/abc" {
		t.Fatalf("wrong authorization url %q", res.AuthorizationURL)
	}
	if res.Reference != "ref-abc" {
		t.Fatalf("wrong reference %q", res.Reference)
	}
}

func TestPaystackVerifySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/ref-abc" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]interface{}{
				"reference": "ref-abc",
				"status":    "success",
				"amount":    840000,
			},
		})
	}))
	defer srv.Close()

	g := NewPaystackGateway(srv.URL, "sk_test_x")
	res, err := g.Verify(context.Background(), "ref-abc")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !res.Success() {
		t.Fatalf("expected success, got status %q", res.Status)
	}
	if res.AmountKobo != 840000 {
		t.Fatalf("wrong amount %d", res.AmountKobo)
	}
}

func TestPaystackVerifyAbandonedIsNotSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]interface{}{
				"reference": "ref-abc",
				"status":    "abandoned",
				"amount":    840000,
			},
		})
	}))
	defer srv.Close()

	g := NewPaystackGateway(srv.URL, "sk_test_x")
	res, err := g.Verify(context.Background(), "ref-abc")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if res.Success() {
		t.Fatalf("abandoned transaction must not count as success")
	}
}

func TestPaystackEnvelopeFailureSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  false,
			"message": "Transaction reference not found",
		})
	}))
	defer srv.Close()

	g := NewPaystackGateway(srv.URL, "sk_test_x")
	if _, err := g.Verify(context.Background(), "nope"); err == nil {
		t.Fatal("expected an error for an unknown reference")
	}
}
