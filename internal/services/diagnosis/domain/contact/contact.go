// Package contact validates and encodes the lead-capture form.
package contact

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Field names a form input. The values double as form-encoding keys.
type Field string

const (
	FieldName    Field = "name"
	FieldAge     Field = "age"
	FieldEmail   Field = "email"
	FieldPhone   Field = "phone"
	FieldMessage Field = "message"
)

// MessageMaxLength bounds the optional message, counted in characters.
const MessageMaxLength = 500

const (
	msgNameRequired  = "お名前を入力してください"
	msgAgeRequired   = "年齢を入力してください"
	msgEmailRequired = "メールアドレスを入力してください"
	msgEmailInvalid  = "有効なメールアドレスを入力してください"
	msgPhoneRequired = "電話番号を入力してください"
	msgMessageTooBig = "500文字以内で入力してください"
)

// local@domain.tld: a single @, a dot after it, no whitespace. \s is ASCII
// only in RE2, so Unicode separators and the remaining unicode.IsSpace runes
// are listed too.
var emailPattern = regexp.MustCompile(`^[^@\s\v\x{85}\p{Z}]+@[^@\s\v\x{85}\p{Z}]+\.[^@\s\v\x{85}\p{Z}]+$`)

// Form holds the raw contact field values.
type Form struct {
	Name    string
	Age     string
	Email   string
	Phone   string
	Message string
}

// Errors maps each invalid field to its message. It is empty when the form
// is valid.
type Errors map[Field]string

// Has reports whether field carries an error.
func (e Errors) Has(field Field) bool {
	_, ok := e[field]
	return ok
}

// Validate checks every field independently.
func Validate(f Form) Errors {
	errs := Errors{}
	if isBlank(f.Name) {
		errs[FieldName] = msgNameRequired
	}
	if isBlank(f.Age) {
		errs[FieldAge] = msgAgeRequired
	}
	if isBlank(f.Email) {
		errs[FieldEmail] = msgEmailRequired
	} else if !emailPattern.MatchString(f.Email) {
		errs[FieldEmail] = msgEmailInvalid
	}
	if isBlank(f.Phone) {
		errs[FieldPhone] = msgPhoneRequired
	}
	if utf8.RuneCountInString(f.Message) > MessageMaxLength {
		errs[FieldMessage] = msgMessageTooBig
	}
	return errs
}

// Normalize folds full-width ASCII (common from Japanese IMEs) in the
// single-line fields to its narrow form, trims their surrounding whitespace,
// and NFC-composes the free text fields.
func Normalize(f Form) Form {
	return Form{
		Name:    strings.TrimSpace(norm.NFC.String(f.Name)),
		Age:     strings.TrimSpace(width.Narrow.String(f.Age)),
		Email:   strings.TrimSpace(width.Narrow.String(f.Email)),
		Phone:   strings.TrimSpace(width.Narrow.String(f.Phone)),
		Message: norm.NFC.String(f.Message),
	}
}

// Values returns the outbound payload. Message is omitted when empty.
func (f Form) Values() url.Values {
	v := url.Values{}
	v.Set(string(FieldName), f.Name)
	v.Set(string(FieldAge), f.Age)
	v.Set(string(FieldEmail), f.Email)
	v.Set(string(FieldPhone), f.Phone)
	if f.Message != "" {
		v.Set(string(FieldMessage), f.Message)
	}
	return v
}

// FromValues reads a form from posted values.
func FromValues(v url.Values) Form {
	return Form{
		Name:    v.Get(string(FieldName)),
		Age:     v.Get(string(FieldAge)),
		Email:   v.Get(string(FieldEmail)),
		Phone:   v.Get(string(FieldPhone)),
		Message: v.Get(string(FieldMessage)),
	}
}

func isBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}
