package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/goliatone/go-scoreform/pkg/prediction"
)

// Scaling holds the standardisation parameters for one numeric feature.
type Scaling struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Model is a pre-trained multinomial linear classifier loaded from disk.
// Weights and intercepts are keyed by class and feature name so the document
// stays order-independent.
type Model struct {
	Name       string                        `json:"name"`
	Version    string                        `json:"version"`
	Accuracy   float64                       `json:"accuracy"`
	Classes    []string                      `json:"classes"`
	Scaling    map[string]Scaling            `json:"scaling,omitempty"`
	Encodings  map[string]map[string]float64 `json:"encodings,omitempty"`
	Weights    map[string]map[string]float64 `json:"weights"`
	Intercepts map[string]float64            `json:"intercepts"`
}

// LoadModel reads and checks a model document from disk.
func LoadModel(path string) (*Model, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("classifier: read model: %w", err)
	}
	var model Model
	if err := json.Unmarshal(payload, &model); err != nil {
		return nil, fmt.Errorf("classifier: decode model: %w", err)
	}
	if err := model.check(); err != nil {
		return nil, err
	}
	return &model, nil
}

func (m *Model) check() error {
	if len(m.Classes) == 0 {
		return errors.New("classifier: model declares no classes")
	}
	for _, class := range m.Classes {
		if _, ok := m.Weights[class]; !ok {
			return fmt.Errorf("classifier: model has no weights for class %q", class)
		}
	}
	return nil
}

// FeatureCount reports how many features feed the first class's weights.
func (m *Model) FeatureCount() int {
	for _, class := range m.Classes {
		return len(m.Weights[class])
	}
	return 0
}

// featureVector flattens a request into named numeric features, encoding
// categoricals and applying standardisation. Unseen categories encode to 0,
// matching the upstream model's handling.
func (m *Model) featureVector(req prediction.Request) map[string]float64 {
	features := map[string]float64{
		"age":                      float64(req.Age),
		"annual_income":            req.AnnualIncome,
		"monthly_salary":           req.MonthlySalary,
		"num_bank_accounts":        float64(req.NumBankAccounts),
		"num_credit_cards":         float64(req.NumCreditCards),
		"interest_rate":            req.InterestRate,
		"num_loans":                float64(req.NumLoans),
		"delay_from_due_date":      float64(req.DelayFromDueDate),
		"num_delayed_payments":     float64(req.NumDelayedPayments),
		"credit_utilization_ratio": req.CreditUtilizationRatio,
		"credit_history_age":       float64(req.CreditHistoryAge),
		"outstanding_debt":         req.OutstandingDebt,
		"total_emi_per_month":      req.TotalEMIPerMonth,
		"amount_invested_monthly":  req.AmountInvestedMonthly,
		"monthly_balance":          req.MonthlyBalance,
	}

	categorical := map[string]string{
		"occupation":            req.Occupation,
		"credit_mix":            req.CreditMix,
		"payment_of_min_amount": req.PaymentOfMinAmount,
		"payment_behaviour":     req.PaymentBehaviour,
	}
	for name, value := range categorical {
		features[name] = m.Encodings[name][value]
	}

	for name, scale := range m.Scaling {
		if scale.Std == 0 {
			continue
		}
		if value, ok := features[name]; ok {
			features[name] = (value - scale.Mean) / scale.Std
		}
	}
	return features
}

// scores computes the per-class linear scores for a feature vector.
func (m *Model) scores(features map[string]float64) []float64 {
	scores := make([]float64, len(m.Classes))
	for i, class := range m.Classes {
		score := m.Intercepts[class]
		for feature, weight := range m.Weights[class] {
			score += weight * features[feature]
		}
		scores[i] = score
	}
	return scores
}

// softmax converts scores into a probability distribution.
func softmax(scores []float64) []float64 {
	max := math.Inf(-1)
	for _, score := range scores {
		if score > max {
			max = score
		}
	}
	sum := 0.0
	out := make([]float64, len(scores))
	for i, score := range scores {
		out[i] = math.Exp(score - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// defaultModel is the built-in fallback used when no model file is present.
// Its weights encode coarse heuristics over standardised features.
func defaultModel() *Model {
	return &Model{
		Name:     "credit-score-baseline",
		Version:  "0.0.0-builtin",
		Accuracy: 0.85,
		Classes:  []string{"Poor", "Standard", "Good"},
		Scaling: map[string]Scaling{
			"age":                      {Mean: 38, Std: 12},
			"annual_income":            {Mean: 55000, Std: 30000},
			"monthly_salary":           {Mean: 4200, Std: 2300},
			"num_bank_accounts":        {Mean: 3, Std: 2},
			"num_credit_cards":         {Mean: 4, Std: 2},
			"interest_rate":            {Mean: 13, Std: 8},
			"num_loans":                {Mean: 2, Std: 2},
			"delay_from_due_date":      {Mean: 15, Std: 12},
			"num_delayed_payments":     {Mean: 10, Std: 6},
			"credit_utilization_ratio": {Mean: 32, Std: 10},
			"credit_history_age":       {Mean: 180, Std: 100},
			"outstanding_debt":         {Mean: 1400, Std: 1100},
			"total_emi_per_month":      {Mean: 110, Std: 130},
			"amount_invested_monthly":  {Mean: 190, Std: 190},
			"monthly_balance":          {Mean: 400, Std: 200},
		},
		Encodings: map[string]map[string]float64{
			"credit_mix": {"Bad": -1, "Standard": 0, "Good": 1},
			"payment_of_min_amount": {"No": 0, "Yes": 1},
			"payment_behaviour": {
				"Low_spent_Small_value_payments":   -0.5,
				"Low_spent_Medium_value_payments":  -0.2,
				"Low_spent_Large_value_payments":   0.1,
				"High_spent_Small_value_payments":  -0.3,
				"High_spent_Medium_value_payments": 0.2,
				"High_spent_Large_value_payments":  0.5,
			},
			"occupation": {
				"Engineer": 0.3, "Doctor": 0.4, "Lawyer": 0.3, "Manager": 0.2,
				"Accountant": 0.2, "Teacher": 0.1, "Nurse": 0.1, "Sales": 0,
				"Entrepreneur": 0.1, "Artist": -0.1, "Student": -0.3, "Other": 0,
			},
		},
		Weights: map[string]map[string]float64{
			"Poor": {
				"delay_from_due_date":      0.9,
				"num_delayed_payments":     0.8,
				"outstanding_debt":         0.7,
				"credit_utilization_ratio": 0.5,
				"interest_rate":            0.4,
				"num_loans":                0.3,
				"credit_mix":               -0.6,
				"credit_history_age":       -0.5,
				"monthly_balance":          -0.4,
				"payment_of_min_amount":    0.2,
			},
			"Standard": {
				"num_bank_accounts":  0.1,
				"num_credit_cards":   0.1,
				"payment_behaviour":  0.1,
				"monthly_salary":     0.1,
				"credit_history_age": 0.1,
			},
			"Good": {
				"annual_income":            0.6,
				"monthly_salary":           0.5,
				"credit_history_age":       0.7,
				"credit_mix":               0.6,
				"amount_invested_monthly":  0.4,
				"monthly_balance":          0.4,
				"age":                      0.2,
				"occupation":               0.2,
				"delay_from_due_date":      -0.8,
				"num_delayed_payments":     -0.7,
				"outstanding_debt":         -0.6,
				"credit_utilization_ratio": -0.4,
			},
		},
		Intercepts: map[string]float64{"Poor": -0.2, "Standard": 0.3, "Good": -0.1},
	}
}
