package domain

import (
	"strconv"
	"time"
)

// MaxTitleLength mirrors the width of the movies.title column.
const MaxTitleLength = 50

// Movie represents the canonical movie entity in the database/service.
type Movie struct {
	ID            int64
	Title         string
	ReleaseDate   time.Time
	RatingsSum    int64
	RatingsCount  int64
	RatingsAvg    float64
	CommentsCount int64
	CreatedAt     time.Time
}

// ApplyReview folds a new review into the movie's running statistics.
// The caller is expected to hold the movie row lock.
func (m *Movie) ApplyReview(rating int) {
	m.RatingsSum += int64(rating)
	m.RatingsCount++
	m.CommentsCount++
	m.RatingsAvg = Average(m.RatingsSum, m.RatingsCount)
}

// FormattedAverage renders the average with exactly one decimal, e.g. "8.0".
func (m Movie) FormattedAverage() string {
	return strconv.FormatFloat(m.RatingsAvg, 'f', 1, 64)
}
