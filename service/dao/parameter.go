package dao

// Parameter is a named List filter
type Parameter struct {
	Name  string
	Value interface{}
}

func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}

// NewIntParameter creates an integer valued filter, e.g. Resource.
func NewIntParameter(name string, value int) *Parameter {
	return &Parameter{Name: name, Value: value}
}
