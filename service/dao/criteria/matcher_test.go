package criteria

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/pagesim/runtime/execution"
	"github.com/viant/pagesim/service/dao"
)

func TestMatch(t *testing.T) {
	p := execution.NewProcess(1, 100, 2, time.Now())
	p.State = execution.StateBlocked

	testCases := []struct {
		name       string
		parameters []*dao.Parameter
		expect     bool
	}{
		{name: "no parameters", expect: true},
		{name: "single state match", parameters: []*dao.Parameter{dao.NewParameter("State", "blocked")}, expect: true},
		{name: "single state mismatch", parameters: []*dao.Parameter{dao.NewParameter("State", "ready")}, expect: false},
		{name: "state list", parameters: []*dao.Parameter{dao.NewParameter("State", "ready", "blocked")}, expect: true},
		{name: "resource match", parameters: []*dao.Parameter{dao.NewIntParameter("Resource", 2)}, expect: true},
		{name: "resource mismatch", parameters: []*dao.Parameter{dao.NewIntParameter("Resource", 0)}, expect: false},
		{
			name: "state and resource",
			parameters: []*dao.Parameter{
				dao.NewParameter("State", "blocked"),
				dao.NewIntParameter("Resource", 0),
			},
			expect: false,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, Match(p, tc.parameters))
		})
	}
}
