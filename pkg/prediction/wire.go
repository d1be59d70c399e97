// Package prediction defines the wire contract between the form and the
// classification endpoint.
package prediction

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Request is the flat applicant payload sent to the prediction endpoint.
type Request struct {
	Age                    int     `json:"age"`
	Occupation             string  `json:"occupation"`
	AnnualIncome           float64 `json:"annual_income"`
	MonthlySalary          float64 `json:"monthly_salary"`
	NumBankAccounts        int     `json:"num_bank_accounts"`
	NumCreditCards         int     `json:"num_credit_cards"`
	InterestRate           float64 `json:"interest_rate"`
	NumLoans               int     `json:"num_loans"`
	DelayFromDueDate       int     `json:"delay_from_due_date"`
	NumDelayedPayments     int     `json:"num_delayed_payments"`
	CreditUtilizationRatio float64 `json:"credit_utilization_ratio"`
	CreditHistoryAge       int     `json:"credit_history_age"`
	OutstandingDebt        float64 `json:"outstanding_debt"`
	TotalEMIPerMonth       float64 `json:"total_emi_per_month"`
	AmountInvestedMonthly  float64 `json:"amount_invested_monthly"`
	MonthlyBalance         float64 `json:"monthly_balance"`
	CreditMix              string  `json:"credit_mix"`
	PaymentOfMinAmount     string  `json:"payment_of_min_amount"`
	PaymentBehaviour       string  `json:"payment_behaviour"`
}

// Result is the classification payload returned on success.
type Result struct {
	Prediction     string             `json:"prediction"`
	PredictionCode int                `json:"prediction_code"`
	Probabilities  map[string]float64 `json:"probabilities"`
	Timestamp      time.Time          `json:"timestamp"`
}

// Response is the endpoint's envelope. Error is present only when Success is
// false.
type Response struct {
	Success bool    `json:"success"`
	Result  *Result `json:"result,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// probabilityTolerance bounds the accepted drift of the probability sum.
const probabilityTolerance = 1e-3

// Validate checks the probability distribution invariant: every value in
// [0,1] and the total within tolerance of 1.
func (r *Result) Validate() error {
	if r == nil {
		return errors.New("prediction: result is nil")
	}
	if r.Prediction == "" {
		return errors.New("prediction: label is empty")
	}
	if len(r.Probabilities) == 0 {
		return errors.New("prediction: probabilities are missing")
	}
	sum := 0.0
	for class, p := range r.Probabilities {
		if p < 0 || p > 1 || math.IsNaN(p) {
			return fmt.Errorf("prediction: probability for %q out of range: %v", class, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > probabilityTolerance {
		return fmt.Errorf("prediction: probabilities sum to %v, want 1", sum)
	}
	return nil
}

// ParseValues converts raw form values into a typed request. Every
// conversion failure names the offending field.
func ParseValues(values map[string]string) (Request, error) {
	var (
		req Request
		err error
	)
	if req.Age, err = parseInt(values, "age"); err != nil {
		return Request{}, err
	}
	req.Occupation = values["occupation"]
	if req.AnnualIncome, err = parseFloat(values, "annual_income"); err != nil {
		return Request{}, err
	}
	if req.MonthlySalary, err = parseFloat(values, "monthly_salary"); err != nil {
		return Request{}, err
	}
	if req.NumBankAccounts, err = parseInt(values, "num_bank_accounts"); err != nil {
		return Request{}, err
	}
	if req.NumCreditCards, err = parseInt(values, "num_credit_cards"); err != nil {
		return Request{}, err
	}
	if req.InterestRate, err = parseFloat(values, "interest_rate"); err != nil {
		return Request{}, err
	}
	if req.NumLoans, err = parseInt(values, "num_loans"); err != nil {
		return Request{}, err
	}
	if req.DelayFromDueDate, err = parseInt(values, "delay_from_due_date"); err != nil {
		return Request{}, err
	}
	if req.NumDelayedPayments, err = parseInt(values, "num_delayed_payments"); err != nil {
		return Request{}, err
	}
	if req.CreditUtilizationRatio, err = parseFloat(values, "credit_utilization_ratio"); err != nil {
		return Request{}, err
	}
	if req.CreditHistoryAge, err = parseInt(values, "credit_history_age"); err != nil {
		return Request{}, err
	}
	if req.OutstandingDebt, err = parseFloat(values, "outstanding_debt"); err != nil {
		return Request{}, err
	}
	if req.TotalEMIPerMonth, err = parseFloat(values, "total_emi_per_month"); err != nil {
		return Request{}, err
	}
	if req.AmountInvestedMonthly, err = parseFloat(values, "amount_invested_monthly"); err != nil {
		return Request{}, err
	}
	if req.MonthlyBalance, err = parseFloat(values, "monthly_balance"); err != nil {
		return Request{}, err
	}
	req.CreditMix = values["credit_mix"]
	req.PaymentOfMinAmount = values["payment_of_min_amount"]
	req.PaymentBehaviour = values["payment_behaviour"]
	return req, nil
}

// Values flattens the request back into the raw field map used by snapshots
// and form-encoded submissions.
func (r Request) Values() map[string]string {
	return map[string]string{
		"age":                      strconv.Itoa(r.Age),
		"occupation":               r.Occupation,
		"annual_income":            formatFloat(r.AnnualIncome),
		"monthly_salary":           formatFloat(r.MonthlySalary),
		"num_bank_accounts":        strconv.Itoa(r.NumBankAccounts),
		"num_credit_cards":         strconv.Itoa(r.NumCreditCards),
		"interest_rate":            formatFloat(r.InterestRate),
		"num_loans":                strconv.Itoa(r.NumLoans),
		"delay_from_due_date":      strconv.Itoa(r.DelayFromDueDate),
		"num_delayed_payments":     strconv.Itoa(r.NumDelayedPayments),
		"credit_utilization_ratio": formatFloat(r.CreditUtilizationRatio),
		"credit_history_age":       strconv.Itoa(r.CreditHistoryAge),
		"outstanding_debt":         formatFloat(r.OutstandingDebt),
		"total_emi_per_month":      formatFloat(r.TotalEMIPerMonth),
		"amount_invested_monthly":  formatFloat(r.AmountInvestedMonthly),
		"monthly_balance":          formatFloat(r.MonthlyBalance),
		"credit_mix":               r.CreditMix,
		"payment_of_min_amount":    r.PaymentOfMinAmount,
		"payment_behaviour":        r.PaymentBehaviour,
	}
}

func parseInt(values map[string]string, name string) (int, error) {
	raw := values[name]
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("prediction: field %q: %w", name, err)
	}
	if parsed != math.Trunc(parsed) {
		return 0, fmt.Errorf("prediction: field %q: %q is not an integer", name, raw)
	}
	return int(parsed), nil
}

func parseFloat(values map[string]string, name string) (float64, error) {
	parsed, err := strconv.ParseFloat(values[name], 64)
	if err != nil {
		return 0, fmt.Errorf("prediction: field %q: %w", name, err)
	}
	return parsed, nil
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
