package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Tomlord1122/todo-service/internal/domain"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100
	maxTitleLength = 200
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON names so clients see the field they sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// toValidationError converts validator output into a domain error.
func toValidationError(err error, field string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &domain.ValidationError{}
	for _, fe := range verrs {
		name := fe.Field()
		if name == "" {
			name = field
		}
		ve.Add(name, fieldMessage(fe))
	}
	return ve
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required and must not be blank"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	}
	return fmt.Sprintf("failed %q validation", fe.Tag())
}

func validateCreate(req *CreateTodoRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	if err := validate.Struct(req); err != nil {
		return toValidationError(err, "")
	}
	return nil
}

// validateUpdate checks the fields present in req and returns the column
// values to write.
func validateUpdate(req UpdateTodoRequest) (map[string]any, error) {
	fields := make(map[string]any, 3)
	ve := &domain.ValidationError{}

	if req.Title.Set {
		if req.Title.Null {
			ve.Add("title", "must not be null")
		} else {
			title := strings.TrimSpace(req.Title.Value)
			if err := validate.Var(title, fmt.Sprintf("required,max=%d", maxTitleLength)); err != nil {
				var fieldErr *domain.ValidationError
				if errors.As(toValidationError(err, "title"), &fieldErr) {
					ve.Fields = append(ve.Fields, fieldErr.Fields...)
				} else {
					return nil, err
				}
			} else {
				fields["title"] = title
			}
		}
	}

	if req.Description.Set {
		if req.Description.Null {
			fields["description"] = nil
		} else {
			fields["description"] = req.Description.Value
		}
	}

	if req.Completed.Set {
		if req.Completed.Null {
			ve.Add("completed", "must be true or false")
		} else {
			fields["completed"] = req.Completed.Value
		}
	}

	if len(ve.Fields) > 0 {
		return nil, ve
	}
	return fields, nil
}

func validateListQuery(q ListTodosQuery) (ListTodosQuery, error) {
	if q.Page == 0 {
		q.Page = DefaultPage
	}
	if q.PerPage == 0 {
		q.PerPage = DefaultPerPage
	}
	q.Search = strings.TrimSpace(q.Search)

	ve := &domain.ValidationError{}
	if err := validate.Var(q.Page, "gte=1"); err != nil {
		ve.Add("page", "must be greater than or equal to 1")
	}
	if err := validate.Var(q.PerPage, fmt.Sprintf("gte=1,lte=%d", MaxPerPage)); err != nil {
		ve.Add("per_page", fmt.Sprintf("must be between 1 and %d", MaxPerPage))
	}
	if len(ve.Fields) > 0 {
		return q, ve
	}
	return q, nil
}
