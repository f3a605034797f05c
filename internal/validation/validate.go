package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	emailRe = regexp.MustCompile(`^[\w.+-]+@[\w.-]+\.[A-Za-z]{2,}$`)
	phoneRe = regexp.MustCompile(`^\+\d{8,15}$`)
)

// Сообщения об ошибках валидации.
const (
	MsgBookingName    = "Name is required and must be between 2 and 60 characters."
	MsgEmail          = "Enter a valid email address."
	MsgPhone          = "Enter a valid international phone number (e.g. +40712345678)."
	MsgPickup         = "Pickup city is required and must be at most 90 characters."
	MsgPaymentMethod  = "Payment method must be cash or card."
	MsgRouteRequired  = "Route is required."
	MsgRouteReference = "Route must include an id or both departure and arrival."
	MsgUserName       = "Name is required and must be between 2 and 100 characters."
	MsgUsername       = "Username is required and must be between 3 and 50 characters."
)

// Result содержит итог валидации. Запрос корректен, только если Errors пуст.
type Result struct {
	Errors []string
}

// Valid сообщает, прошла ли валидация.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

func (r *Result) check(ok bool, msg string) {
	if !ok {
		r.Errors = append(r.Errors, msg)
	}
}

// IsValidEmail проверяет синтаксис email.
func IsValidEmail(email string) bool {
	return emailRe.MatchString(email) && !strings.Contains(email, "..")
}

// IsValidPhone проверяет международный формат номера телефона.
func IsValidPhone(phone string) bool {
	return phoneRe.MatchString(phone)
}

// BookingInput содержит уже очищенные поля запроса на бронирование.
type BookingInput struct {
	Name          string
	Email         string
	Phone         string
	PickupAddress string
	PaymentMethod string
	HasRoute      bool
	RouteID       int64
	Departure     string
	Arrival       string
}

// ValidateBooking проверяет все правила бронирования и возвращает каждое нарушение.
func ValidateBooking(in BookingInput) Result {
	var res Result

	res.check(lengthBetween(in.Name, 2, MaxBookingNameLength), MsgBookingName)
	res.check(IsValidEmail(in.Email), MsgEmail)
	res.check(IsValidPhone(in.Phone), MsgPhone)
	res.check(lengthBetween(in.PickupAddress, 1, MaxPickupLength), MsgPickup)
	res.check(in.PaymentMethod == "cash" || in.PaymentMethod == "card", MsgPaymentMethod)

	if !in.HasRoute {
		res.check(false, MsgRouteRequired)
	} else {
		res.check(in.RouteID > 0 || (in.Departure != "" && in.Arrival != ""), MsgRouteReference)
	}

	return res
}

// RegistrationInput содержит очищенные поля регистрации пассажира.
type RegistrationInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// ValidateRegistration проверяет поля регистрации. Телефон необязателен.
func ValidateRegistration(in RegistrationInput) Result {
	var res Result

	res.check(lengthBetween(in.Name, 2, MaxNameLength), MsgUserName)
	res.check(IsValidEmail(in.Email), MsgEmail)
	if in.Phone != "" {
		res.check(IsValidPhone(in.Phone), MsgPhone)
	}
	res.Errors = append(res.Errors, ValidatePassword(in.Password)...)

	return res
}

// AdminSetupInput содержит поля создания первого администратора.
type AdminSetupInput struct {
	Username string
	Email    string
	Password string
}

// ValidateAdminSetup проверяет поля первичной настройки администратора.
func ValidateAdminSetup(in AdminSetupInput) Result {
	var res Result

	res.check(lengthBetween(in.Username, 3, 50), MsgUsername)
	res.check(IsValidEmail(in.Email), MsgEmail)
	res.Errors = append(res.Errors, ValidatePassword(in.Password)...)

	return res
}

// ValidatePassword проверяет стойкость пароля и возвращает все нарушенные требования.
// Пароль не очищается: он только проверяется и хешируется.
func ValidatePassword(password string) []string {
	var errs []string

	n := utf8.RuneCountInString(password)
	if n < 6 {
		errs = append(errs, "Password must be at least 6 characters long")
	}
	if n > 128 {
		errs = append(errs, "Password must be less than 128 characters")
	}

	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	if !lower {
		errs = append(errs, "Password must contain at least one lowercase letter")
	}
	if !upper {
		errs = append(errs, "Password must contain at least one uppercase letter")
	}
	if !digit {
		errs = append(errs, "Password must contain at least one number")
	}

	return errs
}

func lengthBetween(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	return n >= min && n <= max
}
