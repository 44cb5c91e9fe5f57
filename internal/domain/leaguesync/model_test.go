package leaguesync

import "testing"

func TestStatusFor(t *testing.T) {
	t.Parallel()

	ok := CategoryResult{Status: CategorySuccess}
	bad := CategoryResult{Status: CategoryFailed}

	cases := []struct {
		name    string
		results []CategoryResult
		want    Status
	}{
		{name: "all success", results: []CategoryResult{ok, ok, ok}, want: StatusSynced},
		{name: "mixed", results: []CategoryResult{ok, bad, ok}, want: StatusPartial},
		{name: "all failed", results: []CategoryResult{bad, bad}, want: StatusFailed},
		{name: "empty", results: nil, want: StatusFailed},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.results); got != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}
