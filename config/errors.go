package config

import "strings"

// Errors accumulates validation failures so a caller can report
// every problem with the environment at once instead of failing on
// the first one.
type Errors struct {
	errs []error
}

func (e *Errors) Add(err error) {
	if err != nil {
		e.errs = append(e.errs, err)
	}
}

// Errors returns the individual accumulated errors.
func (e Errors) Errors() []error {
	return e.errs
}

func (e Errors) Error() string {
	switch len(e.errs) {
	case 0:
		return "no error"
	case 1:
		return e.errs[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("multiple configuration errors:")
	for _, err := range e.errs {
		sb.WriteString("\n\t")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// AsError returns nil when no errors were accumulated.
func (e Errors) AsError() error {
	if len(e.errs) == 0 {
		return nil
	}
	return e
}
