package runconfig

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hochfrequenz/arp-orchestrator/internal/domain"
)

var (
	accountRegex    = regexp.MustCompile(`^\d{3}-?\d{3}-?\d{4}$`)
	identifierRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

	validate = newValidator()
)

// nowKey carries the run's clock into the datespec validation
type nowKey struct{}

func clockFrom(ctx context.Context) time.Time {
	if now, ok := ctx.Value(nowKey{}).(time.Time); ok {
		return now
	}
	return time.Now()
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "account_id", func(fl validator.FieldLevel) bool {
		return accountRegex.MatchString(fl.Field().String())
	})
	mustRegister(v, "identifier", func(fl validator.FieldLevel) bool {
		return identifierRegex.MatchString(fl.Field().String())
	})
	if err := v.RegisterValidationCtx("datespec", func(ctx context.Context, fl validator.FieldLevel) bool {
		_, err := DateSpec(fl.Field().String()).Resolve(clockFrom(ctx))
		return err == nil
	}); err != nil {
		panic(fmt.Sprintf("registering datespec validation: %v", err))
	}

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		c := sl.Current().Interface().(Config)
		mode := c.Scripts.VideoOrientation.Mode
		if mode != VideoDisabled && mode != "" && len(c.Cohorts) == 0 {
			sl.ReportError(c.Cohorts, "cohorts", "Cohorts", "cohorts_for_video", string(mode))
		}
	}, Config{})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registering %s validation: %v", tag, err))
	}
}

// ValidateAccount checks a single account id, for interactive entry
func ValidateAccount(s string) error {
	if !accountRegex.MatchString(s) {
		return fmt.Errorf("account id must have 10 digits, optionally as 123-456-7890")
	}
	return nil
}

// ValidateDataset checks a single dataset name, for interactive entry
func ValidateDataset(s string) error {
	if !identifierRegex.MatchString(s) {
		return fmt.Errorf("dataset may only contain letters, digits and underscores")
	}
	return nil
}

// Validate checks every invariant of the configuration, resolving date
// macros against now. Failures are reported as ConfigInvalid.
func (c *Config) Validate(now time.Time) error {
	var problems []string

	ctx := context.WithValue(context.Background(), nowKey{}, now)
	if err := validate.StructCtx(ctx, c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return domain.ConfigInvalid(err)
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	if len(problems) == 0 {
		start, end, err := c.Range(now)
		if err != nil {
			problems = append(problems, err.Error())
		} else if start.After(end) {
			problems = append(problems, fmt.Sprintf("start_date %s is after end_date %s",
				start.Format(DateLayout), end.Format(DateLayout)))
		}
	}

	if len(problems) > 0 {
		return domain.ConfigInvalid(errors.New(strings.Join(problems, "; ")))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_if":
		return field + " is required when scripts.video_orientation.mode is regex"
	case "account_id":
		return fmt.Sprintf("%s %q must have 10 digits, optionally as 123-456-7890", field, fe.Value())
	case "identifier":
		return fmt.Sprintf("%s %q may only contain letters, digits and underscores", field, fe.Value())
	case "datespec":
		return fmt.Sprintf("%s %q is neither YYYY-MM-DD nor :YYYYMMDD-N", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s %q must be one of %s", field, fe.Value(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "unique":
		return field + " contains duplicates"
	case "cohorts_for_video":
		return fmt.Sprintf("%s must not be empty when scripts.video_orientation.mode is %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
