package metadata

import (
	"testing"
)

func FuzzConvertToResult(f *testing.F) {
	f.Add("Inception", "Inception", "2010-07-16")
	f.Add("Up", "", "not a date")
	f.Add("", "", "")

	f.Fuzz(func(t *testing.T, requested, title, releaseDate string) {
		resp := apiResponse{Title: title}
		if releaseDate != "" {
			resp.ReleaseDate = &releaseDate
		}

		result := convertToResult(requested, resp)
		if result == nil {
			t.Fatalf("convertToResult returned nil result")
		}
		if title != "" && result.Title != title {
			t.Fatalf("title = %q, want %q", result.Title, title)
		}
		if title == "" && result.Title != requested {
			t.Fatalf("empty upstream title should fall back to %q, got %q", requested, result.Title)
		}
		if result.ReleaseDate != nil && result.ReleaseDate.Format(releaseDateLayout) == "" {
			t.Fatalf("release date must format")
		}
	})
}
