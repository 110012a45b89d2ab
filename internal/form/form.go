package form

import "fmt"

// Form is a login form bound to its validation result. Every Set
// recomputes the result, so Errors always reflects the current values.
type Form struct {
	values Values
	result ValidationResult
}

// New returns an empty form. An empty form is invalid.
func New() *Form {
	f := &Form{}
	f.result = Validate(f.values)
	return f
}

// Set updates a single field and revalidates.
func (f *Form) Set(field, value string) error {
	switch field {
	case FieldEmail:
		f.values.Email = value
	case FieldPassword:
		f.values.Password = value
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	f.result = Validate(f.values)
	return nil
}

// Values returns the current field values.
func (f *Form) Values() Values { return f.values }

// Errors returns the current validation result.
func (f *Form) Errors() ValidationResult { return f.result }

// Submit returns the values only when every field passes.
func (f *Form) Submit() (Values, error) {
	if !f.result.Valid() {
		return Values{}, &ValidationError{Result: f.result}
	}
	return f.values, nil
}
