package filter

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type AdminUsersHandler struct{}

type CompaniesController struct{}

type Reports struct{}

type Handler struct{}

func TestHostName(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"handler suffix", AdminUsersHandler{}, "admin_users"},
		{"pointer", &AdminUsersHandler{}, "admin_users"},
		{"controller suffix", &CompaniesController{}, "companies"},
		{"no suffix", Reports{}, "reports"},
		{"suffix only", Handler{}, "handler"},
		{"generic", &Request[table]{}, "request"},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HostName(tt.value))
		})
	}
}

func TestValues_Get(t *testing.T) {
	v := Values{"a": "1", "b": nil}

	got, ok := v.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", got)

	got, ok = v.Get("b")
	assert.True(t, ok)
	assert.Nil(t, got)

	_, ok = v.Get("c")
	assert.False(t, ok)
}

func TestURLParams_Get(t *testing.T) {
	q, err := url.ParseQuery("status=active&tag=a&tag=b&empty=")
	require.NoError(t, err)

	p := URLParams(q)

	got, ok := p.Get("status")
	assert.True(t, ok)
	assert.Equal(t, "active", got)

	got, ok = p.Get("tag")
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	got, ok = p.Get("empty")
	assert.True(t, ok)
	assert.True(t, IsBlank(got))

	_, ok = p.Get("missing")
	assert.False(t, ok)
}

func TestRequest_Slots(t *testing.T) {
	req := NewRequest[table]("users", Values{"a": 1})

	_, ok := req.ParamSource(DefaultParamSource)
	assert.True(t, ok)

	_, ok = req.Collection()
	assert.False(t, ok)

	req.SetCollection(sampleTable())
	c, ok := req.LoadSlot("users")
	assert.True(t, ok)
	assert.Len(t, c.rows, 3)
	assert.Equal(t, "users", req.FilterHost())
}

func TestNewRequest_NilParamsRegistersNoSource(t *testing.T) {
	req := NewRequest[table]("users", nil)

	_, ok := req.ParamSource(DefaultParamSource)
	assert.False(t, ok)
}
