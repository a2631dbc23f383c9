package bigquery

import (
	"errors"
	"strings"
	"testing"
)

func TestBuildInsert(t *testing.T) {
	sql, params := buildInsert("`p.rosacash.cards`", []string{"card_id", "name"}, [][]interface{}{
		{"c1", "Nubank"},
		{"c2", "Itaú"},
	})

	want := "INSERT INTO `p.rosacash.cards` (card_id, name)\nVALUES\n\t(@card_id_0, @name_0),\n\t(@card_id_1, @name_1)"
	if sql != want {
		t.Errorf("buildInsert() sql =\n%s\nwant\n%s", sql, want)
	}

	if len(params) != 4 {
		t.Fatalf("buildInsert() params = %d, want 4", len(params))
	}
	if params[3].Name != "name_1" || params[3].Value != "Itaú" {
		t.Errorf("params[3] = %+v", params[3])
	}
}

func TestDatasetOrDefault(t *testing.T) {
	if got := datasetOrDefault(""); got != DefaultDatasetID {
		t.Errorf("datasetOrDefault(\"\") = %q", got)
	}
	if got := datasetOrDefault("staging"); got != "staging" {
		t.Errorf("datasetOrDefault(staging) = %q", got)
	}
}

func TestTruncateError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantLen int
	}{
		{"nil", nil, 0},
		{"short", errors.New("boom"), 4},
		{"long", errors.New(strings.Repeat("x", 5000)), maxErrorMessageLen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateError(tt.err); len(got) != tt.wantLen {
				t.Errorf("truncateError() len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}
