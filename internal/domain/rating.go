package domain

import (
	"fmt"
	"strconv"
	"time"
)

const (
	MinRating = 0
	MaxRating = 10
)

// Review is a single user's rating and comment for a movie.
type Review struct {
	ID        int64
	MovieID   int64
	UserID    int64
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// ValidateRating reports ErrInvalidRating for values outside [MinRating, MaxRating].
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("%w: %d is outside %d..%d", ErrInvalidRating, rating, MinRating, MaxRating)
	}
	return nil
}

// Average returns sum/count rounded to one decimal place, or 0 when count is 0.
func Average(sum, count int64) float64 {
	if count <= 0 {
		return 0
	}
	return RoundToOneDecimal(float64(sum) / float64(count))
}

// RoundToOneDecimal rounds the exact binary value of value to one decimal,
// ties to even: 0.25 gives 0.2 and 0.35 (stored as 0.34999...) gives 0.3.
func RoundToOneDecimal(value float64) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(value, 'f', 1, 64), 64)
	if err != nil {
		return value
	}
	return rounded
}
