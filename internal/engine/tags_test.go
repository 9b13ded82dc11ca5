package engine

import (
	"reflect"
	"testing"
)

func TestAutoTags(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "a song about nothing in particular", nil},
		{"country", "My TRUCK runs on cheap beer", []string{"#country"}},
		{"word boundary", "trucking along", nil},
		{"multiple in rule order", "grandma dropped her vape in the mosh pit", []string{"#punk", "#character", "#meme"}},
		{"vintage", "needle on the vinyl spins", []string{"#vintage"}},
		{"dedup within rule", "beer beer whiskey mud", []string{"#country"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AutoTags(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AutoTags(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
