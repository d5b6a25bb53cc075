package criteria

import (
	"github.com/viant/pagesim/runtime/execution"
	"github.com/viant/pagesim/service/dao"
)

// FilterByState matches a state against "State" parameters holding a string
// or a []string; other parameters are ignored.
func FilterByState(state string, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil || parameter.Name != "State" {
			continue
		}
		switch actual := parameter.Value.(type) {
		case string:
			if state != actual {
				return false
			}
		case []string:
			matched := false
			for _, s := range actual {
				if state == s {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
	}
	return true
}

// Match applies State and Resource parameters to a process.
func Match(p *execution.Process, parameters []*dao.Parameter) bool {
	if !FilterByState(string(p.State), parameters) {
		return false
	}
	for _, parameter := range parameters {
		if parameter == nil || parameter.Name != "Resource" {
			continue
		}
		if resource, ok := parameter.Value.(int); ok && resource != p.Resource {
			return false
		}
	}
	return true
}
