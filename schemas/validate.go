// Package schemas declares the request bodies and query strings accepted by the API
// together with their validation rules and defaults.
package schemas

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldError names one invalid field and the rule it broke.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid request"
	}
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return "invalid fields: " + strings.Join(names, ", ")
}

// Checker is implemented by schemas with rules that span several fields.
type Checker interface {
	Check() []FieldError
}

// Normalizer is implemented by schemas that fill defaults after binding.
type Normalizer interface {
	Normalize()
}

var (
	slugRe          = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	articleNumberRe = regexp.MustCompile(`^([0-9]+(\.[0-9]+)*( (bis|ter|quater|quinquies|sexies|septies|octies|novies|decies))?|único)$`)

	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(fieldName)
		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slugRe.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("article_number", func(fl validator.FieldLevel) bool {
			return IsArticleNumber(fl.Field().String())
		})
		_ = v.RegisterValidation("option", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case "a", "b", "c", "d":
				return true
			}
			return false
		})
		validate = v
	})
	return validate
}

// fieldName reports the json (or form) name of a struct field.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.Split(f.Tag.Get(tag), ",")[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func IsSlug(s string) bool {
	return slugRe.MatchString(s)
}

func IsArticleNumber(s string) bool {
	return articleNumberRe.MatchString(strings.ToLower(strings.TrimSpace(s)))
}

// Validate normalizes v (when it supports it), runs the struct rules and then the
// cross-field checks. The returned error is a *ValidationError.
func Validate(v any) error {
	if n, ok := v.(Normalizer); ok {
		n.Normalize()
	}

	var fields []FieldError
	if err := instance().Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fieldPath(fe), Rule: fe.Tag()})
		}
	}
	if c, ok := v.(Checker); ok {
		fields = append(fields, c.Check()...)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// fieldPath drops the root struct name from the namespace ("GenerateTestRequest.laws[0]" -> "laws[0]").
func fieldPath(fe validator.FieldError) string {
	ns := strings.Replace(fe.Namespace(), "Pagination.", "", 1)
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// splitCSV expands comma separated values inside a list, so both
// ?laws=ce&laws=lpac and ?laws=ce,lpac are accepted.
func splitCSV(in []string) []string {
	var out []string
	for _, v := range in {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
