// Package validators wraps go-playground/validator so that failures surface as
// invalid AppErrors naming the offending JSON fields.
package validators

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	appErr "github.com/logicflow/engine/pkg/errors"
)

// Validator validates request structs.
type Validator struct {
	v *validator.Validate
}

var (
	once     sync.Once
	instance *Validator
)

// New returns the shared validator. The underlying validator caches struct
// metadata, so one instance serves the whole process.
func New() *Validator {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		instance = &Validator{v: v}
	})
	return instance
}

// FieldError describes one failed rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

func (f FieldError) String() string {
	if f.Param != "" {
		return fmt.Sprintf("%s: %s=%s", f.Field, f.Rule, f.Param)
	}
	return fmt.Sprintf("%s: %s", f.Field, f.Rule)
}

// Struct validates s and returns a CodeInvalid AppError listing every failed field.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErr.Wrap(err, appErr.CodeInvalid, "validation failed")
	}

	fields := make([]FieldError, 0, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		f := FieldError{Field: fieldPath(fe.Namespace()), Rule: fe.Tag(), Param: fe.Param()}
		fields = append(fields, f)
		msgs = append(msgs, f.String())
	}
	return appErr.New(appErr.CodeInvalid, "validation failed: "+strings.Join(msgs, "; ")).WithMeta("fields", fields)
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
