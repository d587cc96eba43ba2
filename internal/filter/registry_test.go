package filter

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func specNames(specs []*Spec[table]) []string {
	out := make([]string, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.Name())
	}

	return out
}

func TestRegistry_DeclareAccumulates(t *testing.T) {
	r := NewRegistry[table]()

	require.NoError(t, r.Declare("companies", "x"))
	require.NoError(t, r.Declare("companies", "y"))

	assert.Equal(t, []string{"x", "y"}, specNames(r.List("companies")))
}

func TestRegistry_DeclareMixedPreservesOrder(t *testing.T) {
	r := NewRegistry[table]()
	require.NoError(t, r.RegisterScope("admins", adminsScope))

	require.NoError(t, r.Declare("users", "status", "type"))
	require.NoError(t, r.DeclareFilter("users", "role", WithScope[table]("admins")))
	require.NoError(t, r.DeclareFilter("users", "q", WithQuery[table](searchQuery)))

	specs := r.List("users")
	assert.Equal(t, []string{"status", "type", "role", "q"}, specNames(specs))
	assert.Equal(t, "admins", specs[2].ScopeName())
	assert.True(t, specs[3].HasQuery())
}

func TestRegistry_DuplicatesAreKept(t *testing.T) {
	r := NewRegistry[table]()
	require.NoError(t, r.Declare("users", "status", "status"))
	assert.Len(t, r.List("users"), 2)
}

func TestRegistry_DeclareIsAllOrNothing(t *testing.T) {
	r := NewRegistry[table]()

	err := r.Declare("users", "status", "", "role")
	require.ErrorIs(t, err, ErrEmptyName)
	assert.Empty(t, r.List("users"))
}

func TestRegistry_UnknownScopeFailsAtDeclaration(t *testing.T) {
	r := NewRegistry[table]()

	err := r.DeclareFilter("users", "role", WithScope[table]("admins"))
	require.ErrorIs(t, err, ErrUnknownScope)
	assert.ErrorContains(t, err, `"users"`)
	assert.Empty(t, r.List("users"))
}

func TestRegistry_RegisterScopeValidation(t *testing.T) {
	r := NewRegistry[table]()

	require.ErrorIs(t, r.RegisterScope(" ", adminsScope), ErrEmptyName)
	require.ErrorContains(t, r.RegisterScope("admins", nil), "nil function")
	assert.Empty(t, r.Scopes())
}

func TestRegistry_ScopeLookup(t *testing.T) {
	r := NewRegistry[table]()
	require.NoError(t, r.RegisterScope("b", adminsScope))
	require.NoError(t, r.RegisterScope("a", adminsScope))

	_, ok := r.Scope("a")
	assert.True(t, ok)

	_, ok = r.Scope("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"a", "b"}, r.Scopes())
}

func TestRegistry_ListCreatesEmptyEntry(t *testing.T) {
	r := NewRegistry[table]()
	assert.Empty(t, r.Hosts())

	specs := r.List("orders")
	assert.NotNil(t, specs)
	assert.Empty(t, specs)
	assert.Equal(t, []string{"orders"}, r.Hosts())
}

func TestRegistry_ListReturnsCopy(t *testing.T) {
	r := NewRegistry[table]()
	require.NoError(t, r.Declare("users", "a", "b"))

	specs := r.List("users")
	specs[0] = nil

	assert.NotNil(t, r.List("users")[0])
}

func TestRegistry_HostsAreIndependent(t *testing.T) {
	r := NewRegistry[table]()
	require.NoError(t, r.Declare("users", "a"))
	require.NoError(t, r.Declare("orders", "b", "c"))

	assert.Equal(t, []string{"orders", "users"}, r.Hosts())
	assert.Len(t, r.List("users"), 1)
	assert.Len(t, r.List("orders"), 2)
}

func TestRegistry_ConcurrentDeclare(t *testing.T) {
	r := NewRegistry[table]()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()
			assert.NoError(t, r.Declare("users", fmt.Sprintf("f%d", i)))
		}(i)
	}

	wg.Wait()
	assert.Len(t, r.List("users"), 50)
}

func TestRegistry_Add(t *testing.T) {
	r := NewRegistry[table]()

	s, err := NewSpec[table]("status")
	require.NoError(t, err)

	r.Add("users", s)
	assert.Equal(t, []*Spec[table]{s}, r.List("users"))
}
