package prediction

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func sampleValues() map[string]string {
	return map[string]string{
		"age":                      "35",
		"occupation":               "engineer",
		"annual_income":            "85000",
		"monthly_salary":           "6500.50",
		"num_bank_accounts":        "3",
		"num_credit_cards":         "2",
		"interest_rate":            "12.5",
		"num_loans":                "1",
		"delay_from_due_date":      "4",
		"num_delayed_payments":     "2",
		"credit_utilization_ratio": "34.2",
		"credit_history_age":       "120",
		"outstanding_debt":         "1500.75",
		"total_emi_per_month":      "450",
		"amount_invested_monthly":  "300",
		"monthly_balance":          "1200.25",
		"credit_mix":               "Good",
		"payment_of_min_amount":    "Yes",
		"payment_behaviour":        "Low_spent_Medium_value_payments",
	}
}

func TestParseValues(t *testing.T) {
	req, err := ParseValues(sampleValues())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if req.Age != 35 || req.Occupation != "engineer" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.MonthlySalary != 6500.50 {
		t.Fatalf("unexpected salary: %v", req.MonthlySalary)
	}
	if req.PaymentBehaviour != "Low_spent_Medium_value_payments" {
		t.Fatalf("unexpected payment behaviour: %q", req.PaymentBehaviour)
	}
}

func TestParseValues_NamesOffendingField(t *testing.T) {
	values := sampleValues()
	values["num_loans"] = "two"

	_, err := ParseValues(values)
	if err == nil {
		t.Fatalf("expected error for non-numeric count")
	}
	if !strings.Contains(err.Error(), `"num_loans"`) {
		t.Fatalf("error should name the field: %v", err)
	}
}

func TestParseValues_RejectsFractionalCount(t *testing.T) {
	values := sampleValues()
	values["num_bank_accounts"] = "2.5"
	if _, err := ParseValues(values); err == nil {
		t.Fatalf("expected error for fractional count")
	}
}

func TestRequestValuesRoundTrip(t *testing.T) {
	req, err := ParseValues(sampleValues())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	// flattening and reparsing must land on the same request even when the
	// textual form differs (e.g. trailing zeros)
	again, err := ParseValues(req.Values())
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if diff := cmp.Diff(req, again); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestResultValidate(t *testing.T) {
	result := &Result{
		Prediction:     "Good",
		PredictionCode: 2,
		Probabilities:  map[string]float64{"Poor": 0.1, "Standard": 0.3, "Good": 0.6},
		Timestamp:      time.Now(),
	}
	if err := result.Validate(); err != nil {
		t.Fatalf("expected valid result, got %v", err)
	}
}

func TestResultValidate_RejectsBadDistribution(t *testing.T) {
	cases := []struct {
		name   string
		result *Result
	}{
		{"nil result", nil},
		{"empty label", &Result{Probabilities: map[string]float64{"Good": 1}}},
		{"missing probabilities", &Result{Prediction: "Good"}},
		{"sum below one", &Result{Prediction: "Good", Probabilities: map[string]float64{"Good": 0.5, "Poor": 0.2}}},
		{"negative probability", &Result{Prediction: "Good", Probabilities: map[string]float64{"Good": 1.2, "Poor": -0.2}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.result.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
