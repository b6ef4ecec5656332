package dao

// Parameter is a named list criterion, e.g. State=exited
type Parameter struct {
	Name  string
	Value interface{}
}

// NewParameter creates a parameter holding a single value or a value list
func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}

// Lookup returns the first parameter with the given name
func Lookup(name string, parameters []*Parameter) *Parameter {
	for _, parameter := range parameters {
		if parameter != nil && parameter.Name == name {
			return parameter
		}
	}
	return nil
}
