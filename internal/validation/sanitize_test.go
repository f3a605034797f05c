package validation

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var maliciousInputs = []string{
	`<script>alert("XSS")</script>`,
	`<img src="x" onerror="alert(1)">`,
	`javascript:alert("XSS")`,
	`<a href="javascript:void(0)" onclick="alert(1)">Link</a>`,
	`JaVaScRiPt:alert(1)`,
	`'; DROP TABLE users; --`,
	`admin'--`,
	`1; DELETE FROM bookings; --`,
	`' UNION SELECT * FROM admin_users --`,
	`DRDROP TABLEOP TABLE users`,
	`DROP   TABLE users`,
	"DROP\tTABLE users",
	`-/**/- comment`,
	`name /* hidden */ value`,
	`java<script:alert(1)`,
	`jav<ascript:alert(1)`,
	`+40712345678<script>alert(1)</script>`,
	`+40712345678; DROP TABLE users;`,
	`user@example.com<script>alert(1)</script>`,
	`javascript:alert(1)@example.com`,
}

var forbiddenSubstrings = []string{"<script", "javascript:", "DROP TABLE", "--", "/*", "*/"}

func TestSanitizers_ExcludeDangerousSequences(t *testing.T) {
	sanitizers := map[string]func(string) string{
		"name":         func(s string) string { return SanitizeName(s, 0) },
		"booking name": func(s string) string { return SanitizeName(s, MaxBookingNameLength) },
		"address":      func(s string) string { return SanitizeAddress(s, 0) },
		"pickup":       func(s string) string { return SanitizeAddress(s, MaxPickupLength) },
		"email":        SanitizeEmail,
		"phone":        SanitizePhone,
	}

	for name, fn := range sanitizers {
		t.Run(name, func(t *testing.T) {
			for _, input := range maliciousInputs {
				got := fn(input)
				for _, bad := range forbiddenSubstrings {
					assert.NotContains(t, strings.ToUpper(got), strings.ToUpper(bad), "input %q -> %q", input, got)
				}
			}
		})
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{name: "trims and collapses", input: "  John    Doe ", want: "John Doe"},
		{name: "strips html", input: `<b>John</b> "Doe" & co`, want: "bJohn/b Doe co"},
		{name: "removes sql", input: "'; DROP TABLE users; --", want: "users"},
		{name: "caps booking length", input: strings.Repeat("a", 80), max: MaxBookingNameLength, want: strings.Repeat("a", 60)},
		{name: "caps default length", input: strings.Repeat("b", 150), want: strings.Repeat("b", 100)},
		{name: "keeps unicode", input: "Ștefan Mănescu", want: "Ștefan Mănescu"},
		{name: "drops control chars", input: "Jo\x00hn\x07", want: "John"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.input, tt.max))
		})
	}
}

func TestSanitizeName_DoesNotMutateInput(t *testing.T) {
	input := "  <John>  "
	_ = SanitizeName(input, 0)
	assert.Equal(t, "  <John>  ", input)
}

func TestSanitizeAddress(t *testing.T) {
	assert.Equal(t, "Str. Unirii 5 & 7", SanitizeAddress(`  Str. "Unirii"   5 & 7 `, 0))
	got := SanitizeAddress(`<img src="x" onerror="alert(1)">123 Main St`, 0)
	assert.NotContains(t, got, "<img")
	assert.NotContains(t, got, "onerror=")
	assert.Contains(t, got, "123 Main St")
	assert.Len(t, []rune(SanitizeAddress(strings.Repeat("x", 300), MaxPickupLength)), MaxPickupLength)
}

func TestSanitizeEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "USER@EXAMPLE.COM", want: "user@example.com"},
		{input: "  test.email@domain.co.uk ", want: "test.email@domain.co.uk"},
		{input: "user+tag@example.org", want: "user+tag@example.org"},
		{input: "user@example..com", want: "user@example.com"},
		{input: `user"@example.com`, want: "user@example.com"},
		{input: "javascript:alert(1)@example.com", want: "alert1@example.com"},
		{input: strings.Repeat("a", 300) + "@x.com", want: strings.Repeat("a", 254)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeEmail(tt.input))
		})
	}
}

func TestSanitizePhone(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "+40712345678", want: "+40712345678"},
		{input: " +40 (712) 345-678 ", want: "+40 (712) 345-678"},
		{input: "+40712345678; DROP TABLE users;", want: "+40712345678"},
		{input: `+40712345678" OR "1"="1`, want: "+40712345678 11"},
		{input: "40+712+345", want: "40712345"},
		{input: "javascript:alert(1)", want: "(1)"},
		{input: "+1234567890123456789012345", want: "+1234567890123456789"},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizePhone(tt.input))
		})
	}
}

func TestSanitizeNumber(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{name: "in range", in: 42.5, want: 42.5},
		{name: "below", in: -5, want: 0},
		{name: "above", in: 20000, want: 10000},
		{name: "positive infinity", in: math.Inf(1), want: 10000},
		{name: "negative infinity", in: math.Inf(-1), want: 0},
		{name: "nan", in: math.NaN(), want: 0},
		{name: "huge", in: math.MaxFloat64, want: 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeNumber(tt.in, 0, 10000)
			assert.Equal(t, tt.want, got)
			assert.False(t, math.IsInf(got, 0) || math.IsNaN(got))
		})
	}
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, 25.5, ParseNumber(" 25.5 "))
	assert.Equal(t, -3.0, ParseNumber("-3"))
	assert.True(t, math.IsNaN(ParseNumber("RON 120")))
	assert.True(t, math.IsNaN(ParseNumber("12abc")))
	assert.True(t, math.IsNaN(ParseNumber("abc")))
	assert.True(t, math.IsNaN(ParseNumber("1.2.3")))
	assert.True(t, math.IsNaN(ParseNumber("")))
}

func TestSanitizePaymentMethod(t *testing.T) {
	assert.Equal(t, "cash", SanitizePaymentMethod("cash"))
	assert.Equal(t, "card", SanitizePaymentMethod("card"))
	assert.Empty(t, SanitizePaymentMethod("Cash"))
	assert.Empty(t, SanitizePaymentMethod(`cash"; DROP TABLE bookings; --`))
	assert.Empty(t, SanitizePaymentMethod("crypto"))
}

func TestSanitizeStatuses(t *testing.T) {
	assert.Equal(t, "not_required", SanitizePaymentStatus("not_required"))
	assert.Empty(t, SanitizePaymentStatus("refunded"))
	assert.Equal(t, "cancelled", SanitizeBookingStatus("cancelled"))
	assert.Empty(t, SanitizeBookingStatus("CANCELLED"))
}

func TestEscapeCSVCell(t *testing.T) {
	assert.Equal(t, "'=SUM(A1:A2)", EscapeCSVCell("=SUM(A1:A2)"))
	assert.Equal(t, "'+1", EscapeCSVCell("+1"))
	assert.Equal(t, "'@cmd", EscapeCSVCell("@cmd"))
	assert.Equal(t, "Cluj", EscapeCSVCell("Cluj"))
	assert.Equal(t, "", EscapeCSVCell(""))
}
