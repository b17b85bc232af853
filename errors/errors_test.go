package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestGenErrorKind(t *testing.T) {
	err := &GenError{
		Kind:   ErrNameCollision,
		Unit:   "geom",
		Decl:   "Point",
		Origin: Origin{File: "geom/point.go", Line: 4, Column: 6},
		Msg:    "also declared by other.Point",
	}

	assert.True(t, Is(err, ErrNameCollision))
	assert.False(t, Is(err, ErrAliasCycle))
	assert.Equal(t, "name collision in unit geom: Point (geom/point.go:4:6): also declared by other.Point", err.Error())

	wrapped := Wrap(err, "normalize")
	assert.True(t, Is(wrapped, ErrNameCollision))

	var ge *GenError
	require.True(t, As(wrapped, &ge))
	assert.Equal(t, "Point", ge.Decl)
}

func TestUnsupportedCarriesHint(t *testing.T) {
	err := Unsupported("geom.Stream", Origin{Package: "geom"}, "channel type %s", "chan int")

	assert.True(t, Is(err, ErrUnsupportedConstruct))
	assert.Contains(t, err.Error(), "channel type chan int")
	assert.NotEmpty(t, GetAllHints(err))
}

func TestWithUnit(t *testing.T) {
	err := Unsupported("geom.Stream", Origin{}, "channel")
	err = WithUnit(err, "geom")

	var ge *GenError
	require.True(t, As(err, &ge))
	assert.Equal(t, "geom", ge.Unit)

	// An existing unit is kept
	err = WithUnit(err, "other")
	require.True(t, As(err, &ge))
	assert.Equal(t, "geom", ge.Unit)

	assert.Nil(t, WithUnit(nil, "geom"))
}

func TestList(t *testing.T) {
	var list List
	assert.NoError(t, list.Err())

	first := &GenError{Kind: ErrAliasCycle, Decl: "A"}
	list = append(list, first)
	assert.Same(t, first, list.Err())

	list = append(list, &GenError{Kind: ErrConflict, Decl: "geom.ts"})
	err := list.Err()
	assert.Contains(t, err.Error(), "2 errors")
	assert.True(t, stderrors.Is(err, ErrAliasCycle))
	assert.True(t, stderrors.Is(err, ErrConflict))
	assert.False(t, stderrors.Is(err, ErrIO))
}

func TestOriginString(t *testing.T) {
	assert.Equal(t, "a.go:1:2", Origin{File: "a.go", Line: 1, Column: 2}.String())
	assert.Equal(t, "a.go", Origin{File: "a.go"}.String())
	assert.Equal(t, "example.com/geom", Origin{Package: "example.com/geom"}.String())
}
