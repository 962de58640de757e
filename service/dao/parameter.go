package dao

// Parameter narrows a List call; Name identifies the filtered attribute.
type Parameter struct {
	Name  string
	Value interface{}
}

// NewParameter creates a list filter; a single value is stored as string,
// multiple values as []string.
func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}
