package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatUSD renders an amount with thousand separators, e.g. $1,497.00.
func FormatUSD(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	cents := int64(math.Round(amount * 100))
	return fmt.Sprintf("%s$%s.%02d", sign, formatThousand(cents/100), cents%100)
}

// ToCents converts a decimal amount into the smallest currency unit.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromCents converts the smallest currency unit back into a decimal amount.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}

func formatThousand(n int64) string {
	if n == 0 {
		return "0"
	}
	str := strconv.FormatInt(n, 10)
	var out strings.Builder
	for i, c := range str {
		if i != 0 && (len(str)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(c)
	}
	return out.String()
}
