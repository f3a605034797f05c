// Package validation содержит функции очистки и валидации входных данных.
package validation

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Длины полей по умолчанию.
const (
	MaxNameLength        = 100
	MaxBookingNameLength = 60
	MaxEmailLength       = 254
	MaxPhoneLength       = 20
	MaxAddressLength     = 200
	MaxPickupLength      = 90
)

var (
	dangerousPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(java|vb)script\s*:`),
		regexp.MustCompile(`(?i)data\s*:`),
		regexp.MustCompile(`(?i)\bon\w+\s*=`),
		regexp.MustCompile(`(?i)style\s*=`),
		regexp.MustCompile(`--|/\*|\*/`),
		regexp.MustCompile(`(?i)(drop|truncate|alter|create)\s+(table|database|schema)`),
		regexp.MustCompile(`(?i)\bdelete\s+from\b`),
		regexp.MustCompile(`(?i)\binsert\s+into\b`),
		regexp.MustCompile(`(?i)\bunion\s+(all\s+)?select\b`),
		regexp.MustCompile(`(?i)\bselect\s+\*`),
		regexp.MustCompile(`(?i)\b(xp|sp)_\w+`),
		regexp.MustCompile(`(?i)<\s*script`),
	}

	whitespaceRun = regexp.MustCompile(`\s+`)
	emailStrip    = regexp.MustCompile(`[^\w@.+-]`)
	phoneStrip    = regexp.MustCompile(`[^\d+\-\s()]`)
	dotRun        = regexp.MustCompile(`\.{2,}`)
	dashRun       = regexp.MustCompile(`-{2,}`)
)

// SanitizeName очищает имя или название: удаляет опасные символы и последовательности,
// схлопывает пробелы и обрезает до max рун (MaxNameLength при max <= 0).
func SanitizeName(s string, max int) string {
	if max <= 0 {
		max = MaxNameLength
	}
	return sanitizeText(s, `<>'"&;`, max)
}

// SanitizeAddress очищает адрес или свободный текст, обрезая до max рун (MaxAddressLength при max <= 0).
func SanitizeAddress(s string, max int) string {
	if max <= 0 {
		max = MaxAddressLength
	}
	return sanitizeText(s, `<>'";`, max)
}

func sanitizeText(s, strip string, max int) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		if strings.ContainsRune(strip, r) {
			return -1
		}
		return r
	}, s)

	s = removeDangerous(s)
	s = strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))

	return truncate(s, max)
}

// SanitizeEmail приводит email к нижнему регистру и оставляет только допустимые символы.
// Корректность адреса проверяет IsValidEmail.
func SanitizeEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = removeDangerous(s)
	s = emailStrip.ReplaceAllString(s, "")
	s = dotRun.ReplaceAllString(s, ".")
	s = dashRun.ReplaceAllString(s, "-")
	return truncate(s, MaxEmailLength)
}

// SanitizePhone оставляет цифры, ведущий «+», дефисы, пробелы и скобки.
func SanitizePhone(s string) string {
	s = strings.TrimSpace(phoneStrip.ReplaceAllString(strings.TrimSpace(s), ""))
	if s == "" {
		return ""
	}

	lead := ""
	if s[0] == '+' {
		lead = "+"
	}
	s = lead + strings.ReplaceAll(s, "+", "")
	s = dashRun.ReplaceAllString(s, "-")
	s = whitespaceRun.ReplaceAllString(s, " ")

	return strings.TrimSpace(truncate(s, MaxPhoneLength))
}

// SanitizeNumber приводит число к диапазону [min, max]. NaN превращается в min.
func SanitizeNumber(v, min, max float64) float64 {
	switch {
	case math.IsNaN(v):
		return min
	case v < min:
		return min
	case v > max:
		return max
	}
	return v
}

// ParseNumber разбирает число из строки без пробелов по краям. Любые посторонние символы дают NaN.
func ParseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// SanitizePaymentMethod возвращает способ оплаты, только если он точно равен cash или card.
func SanitizePaymentMethod(s string) string {
	switch s {
	case "cash", "card":
		return s
	}
	return ""
}

// SanitizePaymentStatus пропускает только известные статусы оплаты.
func SanitizePaymentStatus(s string) string {
	switch s {
	case "paid", "pending", "failed", "not_required":
		return s
	}
	return ""
}

// SanitizeBookingStatus пропускает только известные статусы бронирования.
func SanitizeBookingStatus(s string) string {
	switch s {
	case "pending", "confirmed", "cancelled":
		return s
	}
	return ""
}

// EscapeCSVCell защищает ячейку выгрузки от интерпретации как формулы.
func EscapeCSVCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}

// removeDangerous удаляет опасные последовательности до неподвижной точки,
// чтобы вложенные конструкции вида "DRDROP TABLEOP TABLE" не собирались обратно.
func removeDangerous(s string) string {
	for {
		prev := s
		for _, re := range dangerousPatterns {
			s = re.ReplaceAllString(s, "")
		}
		if s == prev {
			return s
		}
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
