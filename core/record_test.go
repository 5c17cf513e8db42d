package core

import "testing"

func TestRawRecord_Missing(t *testing.T) {
	rec := RawRecord{
		FieldCreditScore: 600,
		FieldGeography:   "France",
		FieldAge:         nil,
	}
	got := rec.Missing([]string{FieldCreditScore, FieldAge, FieldGender})
	want := []string{FieldAge, FieldGender}
	if len(got) != len(want) {
		t.Fatalf("Missing() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Missing()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPrediction_Summary(t *testing.T) {
	tests := []struct {
		name string
		p    *Prediction
		want string
	}{
		{
			name: "churn",
			p:    &Prediction{Churn: &ChurnResult{Label: LabelChurn, Churn: true, Probability: 0.6}},
			want: "This customer is likely to churn (Probability: 60.00%)",
		},
		{
			name: "not churn",
			p:    &Prediction{Churn: &ChurnResult{Label: LabelNotChurn, Probability: 0.75}},
			want: "This customer is unlikely to churn (Probability: 75.00%)",
		},
		{
			name: "salary",
			p:    &Prediction{Salary: &SalaryResult{Estimate: 50000}},
			want: "Predicted Estimated Salary: $50000.00",
		},
		{name: "nil", p: nil, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Summary(); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}
