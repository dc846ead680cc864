package documents

import "math"

// Color is a rating band of the contest site.
type Color string

// Rating bands in ascending order.
const (
	Gray   Color = "gray"
	Brown  Color = "brown"
	Green  Color = "green"
	Cyan   Color = "cyan"
	Blue   Color = "blue"
	Yellow Color = "yellow"
	Orange Color = "orange"
	Red    Color = "red"
	Bronze Color = "bronze"
	Silver Color = "silver"
	Gold   Color = "gold"
)

var bands = []struct {
	below int64
	color Color
}{
	{400, Gray},
	{800, Brown},
	{1200, Green},
	{1600, Cyan},
	{2000, Blue},
	{2400, Yellow},
	{2800, Orange},
	{3200, Red},
	{3600, Bronze},
	{4000, Silver},
}

// RatingColor maps a rating or a clipped difficulty to its band.
func RatingColor(rating int64) Color {
	for _, b := range bands {
		if rating < b.below {
			return b.color
		}
	}
	return Gold
}

// ClipDifficulty maps estimates below 400 onto (0, 400) so that very easy
// problems never show a negative difficulty.
func ClipDifficulty(d int64) int64 {
	if d >= 400 {
		return d
	}
	return int64(math.Round(400 / math.Exp(1-float64(d)/400)))
}
