package submit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/goliatone/go-scoreform/pkg/form"
	"github.com/goliatone/go-scoreform/pkg/prediction"
	"github.com/goliatone/go-scoreform/pkg/session"
	"github.com/goliatone/go-scoreform/pkg/store"
)

func testDefinition(t *testing.T) *form.Definition {
	t.Helper()

	minAge, maxAge := 18.0, 100.0
	def, err := form.NewDefinition("credit",
		[]form.Step{
			{Index: 1, Title: "Personal", FieldNames: []string{"age", "occupation"}},
			{Index: 2, Title: "Financial", FieldNames: []string{
				"annual_income", "monthly_salary", "num_bank_accounts", "num_credit_cards",
				"num_loans", "interest_rate", "outstanding_debt",
			}},
			{Index: 3, Title: "Credit", FieldNames: []string{
				"credit_utilization_ratio", "credit_history_age", "credit_mix",
				"delay_from_due_date", "num_delayed_payments",
			}},
			{Index: 4, Title: "Payment Behaviour", FieldNames: []string{
				"payment_of_min_amount", "payment_behaviour", "total_emi_per_month",
				"amount_invested_monthly", "monthly_balance",
			}},
		},
		[]form.Field{
			{Name: "age", Type: form.FieldTypeInteger, Required: true, Min: &minAge, Max: &maxAge},
			{Name: "occupation", Type: form.FieldTypeText, Required: true},
			{Name: "annual_income", Type: form.FieldTypeNumber, Required: true},
			{Name: "monthly_salary", Type: form.FieldTypeNumber, Required: true},
			{Name: "num_bank_accounts", Type: form.FieldTypeInteger, Required: true},
			{Name: "num_credit_cards", Type: form.FieldTypeInteger, Required: true},
			{Name: "num_loans", Type: form.FieldTypeInteger, Required: true},
			{Name: "interest_rate", Type: form.FieldTypeNumber, Required: true},
			{Name: "outstanding_debt", Type: form.FieldTypeNumber, Required: true},
			{Name: "credit_utilization_ratio", Type: form.FieldTypeNumber, Required: true},
			{Name: "credit_history_age", Type: form.FieldTypeInteger, Required: true},
			{Name: "credit_mix", Type: form.FieldTypeText, Required: true},
			{Name: "delay_from_due_date", Type: form.FieldTypeInteger, Required: true},
			{Name: "num_delayed_payments", Type: form.FieldTypeInteger, Required: true},
			{Name: "payment_of_min_amount", Type: form.FieldTypeText, Required: true},
			{Name: "payment_behaviour", Type: form.FieldTypeText, Required: true},
			{Name: "total_emi_per_month", Type: form.FieldTypeNumber, Required: true},
			{Name: "amount_invested_monthly", Type: form.FieldTypeNumber, Required: true},
			{Name: "monthly_balance", Type: form.FieldTypeNumber, Required: true},
		},
	)
	if err != nil {
		t.Fatalf("build definition: %v", err)
	}
	return def
}

func filledSession(t *testing.T, options ...session.Option) *session.Session {
	t.Helper()

	s := session.New(testDefinition(t), options...)
	values := map[string]string{
		"age":                      "35",
		"occupation":               "Engineer",
		"annual_income":            "85000",
		"monthly_salary":           "6500",
		"num_bank_accounts":        "3",
		"num_credit_cards":         "2",
		"num_loans":                "1",
		"interest_rate":            "12.5",
		"outstanding_debt":         "1500",
		"credit_utilization_ratio": "34",
		"credit_history_age":       "120",
		"credit_mix":               "Good",
		"delay_from_due_date":      "4",
		"num_delayed_payments":     "2",
		"payment_of_min_amount":    "Yes",
		"payment_behaviour":        "Low_spent_Medium_value_payments",
		"total_emi_per_month":      "450",
		"amount_invested_monthly":  "300",
		"monthly_balance":          "1200",
	}
	for name, value := range values {
		if err := s.SetValue(name, value); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}
	return s
}

func validResult() *prediction.Result {
	return &prediction.Result{
		Prediction:     "Good",
		PredictionCode: 2,
		Probabilities:  map[string]float64{"Poor": 0.1, "Standard": 0.3, "Good": 0.6},
	}
}

func TestSubmit_Accepted(t *testing.T) {
	kv := store.NewMemoryKV()
	snapshots := store.New(kv)
	snapshots.Save(mapSource{"age": "35"})

	clf := &stubClassifier{result: validResult()}
	controls := &stubControls{}
	coordinator := New(clf, WithSnapshots(snapshots), WithControls(controls))

	s := filledSession(t)
	outcome := coordinator.Submit(context.Background(), s)

	if outcome.Status != Accepted {
		t.Fatalf("expected accepted, got %s (%v)", outcome.Status, outcome.Err)
	}
	if outcome.Result == nil || outcome.Result.Prediction != "Good" {
		t.Fatalf("unexpected result: %+v", outcome.Result)
	}
	if clf.calls != 1 {
		t.Fatalf("expected exactly one classify call, got %d", clf.calls)
	}
	if _, ok := snapshots.Load(); ok {
		t.Fatalf("snapshot should be cleared after success")
	}
	if controls.disabled != 1 || controls.enabled != 1 {
		t.Fatalf("controls not toggled exactly once: %+v", controls)
	}
	if s.Submitting() {
		t.Fatalf("guard not released after success")
	}
}

func TestSubmit_RevalidatesEverything(t *testing.T) {
	sink := &recordingNotifier{}
	s := filledSession(t, session.WithNotifier(sink))

	// reach the last step legitimately, then break an earlier step's field
	for i := 0; i < 3; i++ {
		s.Advance()
	}
	if err := s.SetValue("annual_income", "oops"); err != nil {
		t.Fatalf("set: %v", err)
	}

	clf := &stubClassifier{result: validResult()}
	coordinator := New(clf)
	outcome := coordinator.Submit(context.Background(), s)

	if outcome.Status != RejectedValidation {
		t.Fatalf("expected validation rejection, got %s", outcome.Status)
	}
	if outcome.Step != 2 {
		t.Fatalf("expected first invalid step 2, got %d", outcome.Step)
	}
	if s.CurrentStep() != 2 {
		t.Fatalf("session should navigate to the invalid step, got %d", s.CurrentStep())
	}
	if clf.calls != 0 {
		t.Fatalf("classifier must not be called on validation failure")
	}
	if len(sink.errors) == 0 || sink.errors[len(sink.errors)-1] != "Please fix 1 field before submitting." {
		t.Fatalf("unexpected notifications: %v", sink.errors)
	}
}

func TestSubmit_TransportFailureKeepsSnapshot(t *testing.T) {
	kv := store.NewMemoryKV()
	snapshots := store.New(kv)
	snapshots.Save(mapSource{"age": "35"})

	sink := &recordingNotifier{}
	clf := &stubClassifier{err: errors.New("connection refused")}
	coordinator := New(clf, WithSnapshots(snapshots))

	s := filledSession(t, session.WithNotifier(sink))
	outcome := coordinator.Submit(context.Background(), s)

	if outcome.Status != RejectedTransport {
		t.Fatalf("expected transport rejection, got %s", outcome.Status)
	}
	if _, ok := snapshots.Load(); !ok {
		t.Fatalf("snapshot must survive a failed submission")
	}
	if s.Value("age") != "35" {
		t.Fatalf("form data must survive a failed submission")
	}
	if len(sink.errors) != 1 || sink.errors[0] != "Prediction request failed. Please try again." {
		t.Fatalf("unexpected notifications: %v", sink.errors)
	}
	if s.Submitting() {
		t.Fatalf("guard not released after failure")
	}
}

func TestSubmit_UpstreamMessageShownVerbatim(t *testing.T) {
	sink := &recordingNotifier{}
	clf := &stubClassifier{err: &UpstreamError{Message: "Model missing feature credit_history_age"}}
	coordinator := New(clf)

	s := filledSession(t, session.WithNotifier(sink))
	outcome := coordinator.Submit(context.Background(), s)

	if outcome.Status != RejectedTransport {
		t.Fatalf("expected transport rejection, got %s", outcome.Status)
	}
	if len(sink.errors) != 1 || sink.errors[0] != "Model missing feature credit_history_age" {
		t.Fatalf("upstream message not shown verbatim: %v", sink.errors)
	}
}

func TestSubmit_SecondAttemptWhileInFlightIsRejected(t *testing.T) {
	release := make(chan struct{})
	clf := &blockingClassifier{
		started: make(chan struct{}),
		release: release,
		result:  validResult(),
	}
	coordinator := New(clf)

	s := filledSession(t)

	var wg sync.WaitGroup
	wg.Add(1)
	first := Outcome{}
	go func() {
		defer wg.Done()
		first = coordinator.Submit(context.Background(), s)
	}()

	<-clf.started
	second := coordinator.Submit(context.Background(), s)
	if second.Status != RejectedBusy {
		t.Fatalf("expected busy rejection, got %s", second.Status)
	}

	close(release)
	wg.Wait()
	if first.Status != Accepted {
		t.Fatalf("first submission should still succeed, got %s", first.Status)
	}
	if clf.calls != 1 {
		t.Fatalf("expected exactly one classify call, got %d", clf.calls)
	}
}

type mapSource map[string]string

func (m mapSource) Values() map[string]string { return m }

type stubClassifier struct {
	result *prediction.Result
	err    error
	calls  int
}

func (s *stubClassifier) Classify(_ context.Context, _ prediction.Request) (*prediction.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type blockingClassifier struct {
	started chan struct{}
	release chan struct{}
	result  *prediction.Result
	calls   int
}

func (b *blockingClassifier) Classify(_ context.Context, _ prediction.Request) (*prediction.Result, error) {
	b.calls++
	close(b.started)
	<-b.release
	return b.result, nil
}

type stubControls struct {
	disabled int
	enabled  int
}

func (c *stubControls) DisableControls() { c.disabled++ }
func (c *stubControls) EnableControls()  { c.enabled++ }

type recordingNotifier struct {
	infos  []string
	errors []string
}

func (r *recordingNotifier) Info(message string)  { r.infos = append(r.infos, message) }
func (r *recordingNotifier) Error(message string) { r.errors = append(r.errors, message) }
