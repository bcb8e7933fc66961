package filter

import "testing"

func TestMatches(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		expr Expression
		want bool
	}{
		{
			name: "nil expression matches",
			data: map[string]any{"platform": "twitter"},
			expr: nil,
			want: true,
		},
		{
			name: "empty expression matches",
			data: map[string]any{"platform": "twitter"},
			expr: Expression{},
			want: true,
		},
		{
			name: "nil data with empty expression matches",
			data: nil,
			expr: Expression{},
			want: true,
		},
		{
			name: "literal equality",
			data: map[string]any{"platform": "twitter"},
			expr: Expression{"platform": "twitter"},
			want: true,
		},
		{
			name: "literal mismatch",
			data: map[string]any{"platform": "instagram"},
			expr: Expression{"platform": "twitter"},
			want: false,
		},
		{
			name: "literal on missing field fails",
			data: map[string]any{},
			expr: Expression{"platform": "twitter"},
			want: false,
		},
		{
			name: "numeric equality across types",
			data: map[string]any{"likes": float64(100)},
			expr: Expression{"likes": 100},
			want: true,
		},
		{
			name: "gte lte range inside",
			data: map[string]any{"likes": float64(100)},
			expr: Expression{"likes": map[string]any{"$gte": 50, "$lte": 150}},
			want: true,
		},
		{
			name: "gte lte range below",
			data: map[string]any{"likes": float64(40)},
			expr: Expression{"likes": map[string]any{"$gte": 50, "$lte": 150}},
			want: false,
		},
		{
			name: "gte boundary is inclusive",
			data: map[string]any{"likes": float64(50)},
			expr: Expression{"likes": map[string]any{"$gte": 50}},
			want: true,
		},
		{
			name: "gt boundary is exclusive",
			data: map[string]any{"likes": float64(50)},
			expr: Expression{"likes": map[string]any{"$gt": 50}},
			want: false,
		},
		{
			name: "lt strictly below",
			data: map[string]any{"likes": float64(49)},
			expr: Expression{"likes": map[string]any{"$lt": 50}},
			want: true,
		},
		{
			name: "numeric operator on non-numeric value fails",
			data: map[string]any{"likes": "many"},
			expr: Expression{"likes": map[string]any{"$gt": 10}},
			want: false,
		},
		{
			name: "numeric operator on missing field fails",
			data: map[string]any{},
			expr: Expression{"likes": map[string]any{"$gt": 10}},
			want: false,
		},
		{
			name: "in matches member",
			data: map[string]any{"platform": "twitter"},
			expr: Expression{"platform": map[string]any{"$in": []any{"twitter", "instagram"}}},
			want: true,
		},
		{
			name: "in rejects non-member",
			data: map[string]any{"platform": "tiktok"},
			expr: Expression{"platform": map[string]any{"$in": []any{"twitter", "instagram"}}},
			want: false,
		},
		{
			name: "nin rejects member",
			data: map[string]any{"platform": "twitter"},
			expr: Expression{"platform": map[string]any{"$nin": []any{"twitter", "instagram"}}},
			want: false,
		},
		{
			name: "nin matches non-member",
			data: map[string]any{"platform": "tiktok"},
			expr: Expression{"platform": map[string]any{"$nin": []any{"twitter", "instagram"}}},
			want: true,
		},
		{
			name: "in with typed string slice",
			data: map[string]any{"platform": "twitter"},
			expr: Expression{"platform": map[string]any{"$in": []string{"twitter"}}},
			want: true,
		},
		{
			name: "in with numeric members compares by value",
			data: map[string]any{"likes": float64(3)},
			expr: Expression{"likes": map[string]any{"$in": []any{1, 2, 3}}},
			want: true,
		},
		{
			name: "regex matches",
			data: map[string]any{"text": "please help me"},
			expr: Expression{"text": map[string]any{"$regex": "help"}},
			want: true,
		},
		{
			name: "regex no match",
			data: map[string]any{"text": "all good"},
			expr: Expression{"text": map[string]any{"$regex": "help"}},
			want: false,
		},
		{
			name: "regex on non-string fails",
			data: map[string]any{"text": 42},
			expr: Expression{"text": map[string]any{"$regex": "4"}},
			want: false,
		},
		{
			name: "invalid regex pattern never matches",
			data: map[string]any{"text": "abc"},
			expr: Expression{"text": map[string]any{"$regex": "("}},
			want: false,
		},
		{
			name: "exists true on present field",
			data: map[string]any{"media_url": "https://example.com/a.png"},
			expr: Expression{"media_url": map[string]any{"$exists": true}},
			want: true,
		},
		{
			name: "exists true on missing field fails",
			data: map[string]any{},
			expr: Expression{"media_url": map[string]any{"$exists": true}},
			want: false,
		},
		{
			name: "exists true on null value fails",
			data: map[string]any{"media_url": nil},
			expr: Expression{"media_url": map[string]any{"$exists": true}},
			want: false,
		},
		{
			name: "exists false on missing field",
			data: map[string]any{},
			expr: Expression{"media_url": map[string]any{"$exists": false}},
			want: true,
		},
		{
			name: "exists false on null value",
			data: map[string]any{"media_url": nil},
			expr: Expression{"media_url": map[string]any{"$exists": false}},
			want: true,
		},
		{
			name: "exists false on present field fails",
			data: map[string]any{"media_url": "x"},
			expr: Expression{"media_url": map[string]any{"$exists": false}},
			want: false,
		},
		{
			name: "unknown operator never matches",
			data: map[string]any{"likes": float64(10)},
			expr: Expression{"likes": map[string]any{"$near": 10}},
			want: false,
		},
		{
			name: "operators on one field combine with AND",
			data: map[string]any{"likes": float64(200)},
			expr: Expression{"likes": map[string]any{"$gte": 50, "$lte": 150}},
			want: false,
		},
		{
			name: "fields combine with AND",
			data: map[string]any{"platform": "twitter", "likes": float64(10)},
			expr: Expression{
				"platform": "twitter",
				"likes":    map[string]any{"$gte": 50},
			},
			want: false,
		},
		{
			name: "all fields satisfied",
			data: map[string]any{"platform": "twitter", "likes": float64(75)},
			expr: Expression{
				"platform": "twitter",
				"likes":    map[string]any{"$gte": 50, "$lte": 150},
			},
			want: true,
		},
		{
			name: "map with non-dollar key is a literal not an operator object",
			data: map[string]any{"meta": map[string]any{"kind": "photo"}},
			expr: Expression{"meta": map[string]any{"kind": "photo"}},
			want: true,
		},
		{
			name: "mixed dollar and plain keys treated as literal",
			data: map[string]any{"meta": map[string]any{"$gte": 1, "kind": "photo"}},
			expr: Expression{"meta": map[string]any{"$gte": 1, "kind": "photo"}},
			want: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Matches(tc.data, tc.expr); got != tc.want {
				t.Fatalf("Matches(%v, %v) = %v, want %v", tc.data, tc.expr, got, tc.want)
			}
		})
	}
}
