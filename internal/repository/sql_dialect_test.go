package repository

import (
	"testing"
)

func TestBuildLikeConditionByDialect(t *testing.T) {
	cases := []struct {
		name      string
		dialect   string
		columns   []string
		want      string
		wantCount int
	}{
		{name: "sqlite", dialect: "sqlite", columns: []string{"product_code", "unit_number"}, want: "product_code LIKE ? OR unit_number LIKE ?", wantCount: 2},
		{name: "postgres", dialect: "postgres", columns: []string{"customer"}, want: "customer ILIKE ?", wantCount: 1},
		{name: "skip blank", dialect: "", columns: []string{" ", "model"}, want: "model LIKE ?", wantCount: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, count := buildLikeConditionByDialect(tc.dialect, tc.columns)
			if got != tc.want {
				t.Fatalf("condition want %s got %s", tc.want, got)
			}
			if count != tc.wantCount {
				t.Fatalf("arg count want %d got %d", tc.wantCount, count)
			}
		})
	}
}

func TestDBDialectNameNil(t *testing.T) {
	if got := dbDialectName(nil); got != "sqlite" {
		t.Fatalf("nil db dialect want sqlite got %s", got)
	}
}

func TestRepeatLikeArgs(t *testing.T) {
	args := repeatLikeArgs("%SCB%", 3)
	if len(args) != 3 {
		t.Fatalf("args len want 3 got %d", len(args))
	}
	for _, arg := range args {
		if arg != "%SCB%" {
			t.Fatalf("unexpected arg: %v", arg)
		}
	}
}
