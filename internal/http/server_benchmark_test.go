package httpserver

import (
	"fmt"
	"net/http"
	"testing"
)

func BenchmarkCreateReview(b *testing.B) {
	srv := buildTestServer(b)
	registerUser(b, srv, "owner")
	movie := createMovie(b, srv, "owner", "Benchmark Movie")
	path := "/movies/" + itoa(movie.ID) + "/reviews"

	names := make([]string, b.N)
	for i := range names {
		names[i] = fmt.Sprintf("bench-%d", i)
		registerUser(b, srv, names[i])
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := srv.do(b, call{
			method: http.MethodPost, path: path, user: names[i], password: names[i],
			body: fmt.Sprintf(`{"rating":%d,"comment":"bench"}`, i%11),
		})
		if rec.Code != http.StatusCreated {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}
