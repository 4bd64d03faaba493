// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"strings"
	"testing"
)

func TestValidateOptionValue(t *testing.T) {
	t.Parallel()

	opt := configOption{Name: "max degree of parallelism", Minimum: 0, Maximum: 32767}

	tests := []struct {
		name    string
		value   int64
		wantErr bool
	}{
		{name: "minimum", value: 0, wantErr: false},
		{name: "maximum", value: 32767, wantErr: false},
		{name: "in range", value: 8, wantErr: false},
		{name: "below minimum", value: -1, wantErr: true},
		{name: "above maximum", value: 32768, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateOptionValue(opt, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateOptionValue(%d) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestPlanConfigureSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		optAdvanced   bool
		advancedOn    bool
		noReconfigure bool
		want          setPlan
	}{
		{
			name: "basic option",
			want: setPlan{Reconfigure: true},
		},
		{
			name:          "basic option pending",
			noReconfigure: true,
			want:          setPlan{},
		},
		{
			name:        "advanced option with toggle already on",
			optAdvanced: true,
			advancedOn:  true,
			want:        setPlan{Reconfigure: true},
		},
		{
			name:        "advanced option with toggle off",
			optAdvanced: true,
			want: setPlan{
				EnableAdvanced:     true,
				Reconfigure:        true,
				RestoreAdvanced:    true,
				RestoreReconfigure: true,
			},
		},
		{
			// RECONFIGURE on the restore would apply the supposedly
			// pending target value, so it must be skipped too.
			name:          "advanced option pending with toggle off",
			optAdvanced:   true,
			noReconfigure: true,
			want: setPlan{
				EnableAdvanced:  true,
				RestoreAdvanced: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := planConfigureSet(tt.optAdvanced, tt.advancedOn, tt.noReconfigure)
			if got != tt.want {
				t.Errorf("planConfigureSet(%v, %v, %v) = %+v, want %+v",
					tt.optAdvanced, tt.advancedOn, tt.noReconfigure, got, tt.want)
			}
		})
	}
}

func TestValidateOptionValue_ErrorNamesBounds(t *testing.T) {
	t.Parallel()

	opt := configOption{Name: "fill factor (%)", Minimum: 0, Maximum: 100}
	err := validateOptionValue(opt, 200)
	if err == nil {
		t.Fatal("expected an out-of-range error")
	}
	for _, want := range []string{"200", "fill factor (%)", "0..100"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}
}
