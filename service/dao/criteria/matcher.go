package criteria

import (
	"github.com/viant/procfork/service/dao"
)

// StateParameter is the parameter name matched by FilterByState
const StateParameter = "State"

// FilterByState reports whether state satisfies a "State" parameter; records
// always match when no such parameter is given.
func FilterByState[S ~string](state S, parameters []*dao.Parameter) bool {
	parameter := dao.Lookup(StateParameter, parameters)
	if parameter == nil {
		return true
	}
	switch actual := parameter.Value.(type) {
	case string:
		return string(state) == actual
	case []string:
		for _, s := range actual {
			if string(state) == s {
				return true
			}
		}
		return false
	}
	return true
}
