package parser

import (
	"testing"

	"github.com/structviz/godsl/internal/testutil"
)

func TestContextStackPushPop(t *testing.T) {
	s := NewContextStack()
	testutil.Equal(t, s.Depth(), 0)

	s.Push(NewContext(ctxWorkspace))
	s.Push(NewContext(ctxModel))
	testutil.Equal(t, s.Depth(), 2)

	top, err := s.Current()
	testutil.NoError(t, err)
	testutil.Equal(t, top.Name, ctxModel)

	popped, err := s.Pop()
	testutil.NoError(t, err)
	testutil.Equal(t, popped.Name, ctxModel)
	testutil.Equal(t, s.Depth(), 1)
}

func TestContextStackEmpty(t *testing.T) {
	s := NewContextStack()

	_, err := s.Pop()
	testutil.Error(t, err)

	_, err = s.Current()
	testutil.Error(t, err)
}

func TestContextWithData(t *testing.T) {
	base := NewContext(ctxElement)
	named := base.WithData("name", "Web App")

	testutil.Equal(t, named.Data["name"], "Web App")
	// The original is unchanged.
	testutil.Equal(t, len(base.Data), 0)
}

func TestContextStackPopUntil(t *testing.T) {
	s := NewContextStack()
	s.Push(NewContext(ctxWorkspace))
	s.Push(NewContext(ctxModel))
	s.Push(NewContext(ctxElement))

	found, ok := s.PopUntil(func(c Context) bool { return c.Name == ctxModel })
	testutil.True(t, ok)
	testutil.Equal(t, found.Name, ctxModel)
	testutil.Equal(t, s.Depth(), 1)

	_, ok = s.PopUntil(func(c Context) bool { return c.Name == ctxViews })
	testutil.True(t, !ok)
	testutil.Equal(t, s.Depth(), 0)
}

func TestContextStackNames(t *testing.T) {
	s := NewContextStack()
	s.Push(NewContext(ctxWorkspace))
	s.Push(NewContext(ctxViews))
	s.Push(NewContext(ctxView))

	testutil.SliceEqual(t, s.Names(), []string{ctxWorkspace, ctxViews, ctxView})
}
