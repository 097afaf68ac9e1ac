package daemon

import "testing"

func TestCheckStatusString(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{CheckOK, "OK"},
		{CheckWarn, "WARN"},
		{CheckFail, "FAIL"},
		{CheckSkip, "SKIP"},
		{CheckStatus(42), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestWorstStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks []CheckResult
		want   CheckStatus
	}{
		{"empty", nil, CheckOK},
		{"all ok", []CheckResult{{Status: CheckOK}, {Status: CheckOK}}, CheckOK},
		{"warn beats ok", []CheckResult{{Status: CheckOK}, {Status: CheckWarn}}, CheckWarn},
		{"fail beats warn", []CheckResult{{Status: CheckWarn}, {Status: CheckFail}}, CheckFail},
		{"skip ignored", []CheckResult{{Status: CheckSkip}, {Status: CheckOK}}, CheckOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WorstStatus(tt.checks); got != tt.want {
				t.Errorf("WorstStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}
