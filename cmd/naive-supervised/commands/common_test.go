package commands

import "testing"

func TestGroupPairArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"one pair", []string{"alpha", "a.group"}, false},
		{"two pairs", []string{"alpha", "a.group", "beta", "b.group"}, false},
		{"empty", []string{}, true},
		{"dangling name", []string{"alpha"}, true},
		{"dangling file", []string{"alpha", "a.group", "beta"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := groupPairArgs(nil, tt.args)
			if tt.wantErr && err == nil {
				t.Error("expected an error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
