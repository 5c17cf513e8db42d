package dsl

import (
	"encoding/json"
	"testing"

	"github.com/rushteam/churnkit/core"
)

func TestProgram_Eval(t *testing.T) {
	record := core.RawRecord{
		"CreditScore": 600,
		"Geography":   "France",
		"Gender":      "Male",
		"Age":         json.Number("40"),
		"Balance":     "60000",
		"HasCrCard":   true,
	}
	tests := []struct {
		expr string
		want bool
	}{
		{"record.CreditScore >= 300.0 && record.CreditScore <= 850.0", true},
		{"record.Age > 92.0", false},
		{`record.Gender in ["Male", "Female"]`, true},
		{`record.Geography == "Germany"`, false},
		{"record.Balance >= 0.0", true},
		{"record.HasCrCard == 1.0", true},
		{"has(record.Exited)", false},
		{"!has(record.Exited) || record.Exited in [0.0, 1.0]", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			p, err := Compile(tt.expr)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			got, err := p.Eval(record)
			if err != nil {
				t.Fatalf("Eval() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Eval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	for _, expr := range []string{"record.Age >", `"not bool"`, "unknown.Age > 1.0"} {
		if _, err := Compile(expr); err == nil {
			t.Errorf("Compile(%q) error = nil", expr)
		}
	}
}

func TestProgram_EvalMissingKey(t *testing.T) {
	p, err := Compile("record.Tenure <= 10.0")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if _, err := p.Eval(core.RawRecord{"Age": 30}); err == nil {
		t.Error("Eval() on missing key error = nil")
	}
}
