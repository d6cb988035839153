// Package bind provides JSON bind and validation helpers for handlers
package bind

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	perr "vitals/internal/platform/errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// ValidatorSvc holds a singleton validator and translator
type ValidatorSvc struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *ValidatorSvc
)

// Init initializes the singleton validator with english translations and json tag names
func Init() *ValidatorSvc {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// prefer json tag names in messages
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})

		_ = en_translations.RegisterDefaultTranslations(v, trans)

		vSvc = &ValidatorSvc{Validator: v, Translator: trans}
	})
	return vSvc
}

// ParseJSON decodes the request body into T, rejecting unknown fields, then
// runs struct validation. Errors carry ErrorCodeJSON / ErrorCodeValidation
// with the first offending field attached.
func ParseJSON[T any](r *http.Request) (T, error) {
	var in T
	if r.Body == nil {
		return in, perr.JSONErrf("empty body")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		if errors.Is(err, io.EOF) {
			return in, perr.JSONErrf("empty body")
		}
		return in, perr.Wrap(err, perr.ErrorCodeJSON, "malformed json")
	}
	// a second value means trailing garbage
	if dec.More() {
		return in, perr.JSONErrf("unexpected trailing data")
	}
	return in, Validate(in)
}

// Validate runs struct validation on v and maps the first failure into a
// project validation error with a translated message
func Validate(v any) error {
	svc := Init()
	err := svc.Validator.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return perr.WithField(
			perr.Validationf("%s", fe.Translate(svc.Translator)),
			fe.Field(),
		)
	}
	return perr.Validationf("invalid payload")
}
