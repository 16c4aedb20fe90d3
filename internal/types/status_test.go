package types

import "testing"

func TestTaskStatusValid(t *testing.T) {
	cases := []struct {
		status TaskStatus
		want   bool
	}{
		{TaskStatusTodo, true},
		{TaskStatusInProgress, true},
		{TaskStatusDone, true},
		{TaskStatus(""), false},
		{TaskStatus("done"), false},
		{TaskStatus("BLOCKED"), false},
	}
	for _, tc := range cases {
		if got := tc.status.Valid(); got != tc.want {
			t.Errorf("Valid(%q) = %v, want %v", tc.status, got, tc.want)
		}
	}
}
