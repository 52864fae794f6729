package models

import "testing"

func TestHasPlausibleAsset(t *testing.T) {
	t.Parallel()

	str := func(s string) *string { return &s }

	cases := []struct {
		label string
		asset *string
		want  bool
	}{
		{"nil", nil, false},
		{"empty", str(""), false},
		{"sentinel", str(AssetAddressSynced), false},
		{"too short", str("abc"), false},
		{"real address", str("4Nd1mYFHGQMiZ1ZkZZgwyUrKvYzUKGwEuUXXSb9Qe7CG"), true},
		{"too long", str("4Nd1mYFHGQMiZ1ZkZZgwyUrKvYzUKGwEuUXXSb9Qe7CG4Nd1mYFH"), false},
	}
	for _, tc := range cases {
		ua := UserAchievement{AssetAddress: tc.asset}
		if got := ua.HasPlausibleAsset(); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.label, got, tc.want)
		}
	}
}
