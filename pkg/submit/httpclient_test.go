package submit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-scoreform/pkg/prediction"
)

func TestHTTPClient_Success(t *testing.T) {
	var gotBody prediction.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(prediction.Response{
			Success: true,
			Result: &prediction.Result{
				Prediction:    "Standard",
				Probabilities: map[string]float64{"Poor": 0.2, "Standard": 0.5, "Good": 0.3},
			},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	result, err := client.Classify(context.Background(), prediction.Request{Age: 35, Occupation: "Engineer"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if result.Prediction != "Standard" {
		t.Fatalf("unexpected prediction: %q", result.Prediction)
	}
	if gotBody.Age != 35 || gotBody.Occupation != "Engineer" {
		t.Fatalf("request not serialised: %+v", gotBody)
	}
}

func TestHTTPClient_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(prediction.Response{
			Success: false,
			Error:   "Model missing feature credit_history_age",
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	_, err := client.Classify(context.Background(), prediction.Request{})
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Message != "Model missing feature credit_history_age" {
		t.Fatalf("upstream message altered: %q", upstream.Message)
	}
}

func TestHTTPClient_MalformedResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(prediction.Response{
			Success: true,
			Result: &prediction.Result{
				Prediction:    "Good",
				Probabilities: map[string]float64{"Good": 0.4},
			},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	if _, err := client.Classify(context.Background(), prediction.Request{}); err == nil {
		t.Fatalf("expected error for broken probability distribution")
	}
}

func TestHTTPClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // refuse connections

	client := NewHTTPClient(server.URL)
	_, err := client.Classify(context.Background(), prediction.Request{})
	if err == nil {
		t.Fatalf("expected transport error")
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		t.Fatalf("transport failure must not be an UpstreamError")
	}
}
