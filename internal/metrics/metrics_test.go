package metrics

import (
	"fmt"
	"testing"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/api/v1/satellites", "/api/v1/satellites"},
		{"/api/v1/positions", "/api/v1/positions"},
		{"/api/v1/stats", "/api/v1/stats"},
		{"/api/v1/stream/positions", "/api/v1/stream/positions"},

		// Parameterized routes collapse to one label.
		{"/api/v1/track/25544", "/api/v1/track/{catalog_number}"},
		{"/api/v1/track/44713", "/api/v1/track/{catalog_number}"},
		{"/api/v1/passes/25544", "/api/v1/passes/{catalog_number}"},
		{"/api/v1/passes/1", "/api/v1/passes/{catalog_number}"},

		// Extra path segments are not a known route.
		{"/api/v1/track/25544/extra", "other"},
		{"/api/v1/track/", "other"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v2/something", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that 100 unique catalog numbers
// produce exactly 1 distinct path label, not 100.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[normalizeRoute(fmt.Sprintf("/api/v1/track/%d", 10000+i))] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for parameterized paths, got %d: %v", len(seen), seen)
	}
}
