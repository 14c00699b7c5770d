package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatVND renders an integer amount with thousand separators, e.g. 1.250.000 ₫.
func FormatVND(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%s VND", sign, formatThousand(amount))
}

// ParseVND parses "1.250.000", "1,250,000 VND" or "1250000đ" into an integer amount.
func ParseVND(s string) (int64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, suffix := range []string{"vnd", "₫", "đ"} {
		s = strings.TrimSuffix(s, suffix)
	}
	s = strings.NewReplacer(".", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return 0, fmt.Errorf("invalid amount")
	}
	return strconv.ParseInt(s, 10, 64)
}

func formatThousand(n int64) string {
	if n == 0 {
		return "0"
	}
	str := strconv.FormatInt(n, 10)
	var out strings.Builder
	for i, c := range str {
		if i != 0 && (len(str)-i)%3 == 0 {
			out.WriteByte('.')
		}
		out.WriteRune(c)
	}
	return out.String()
}
