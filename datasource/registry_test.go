package datasource

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name string
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Browse(context.Context, BrowseRequest) (*Page, error) {
	return &Page{Entries: []Entry{{ID: "doc-1", Name: "doc-1"}}}, nil
}

func (s *fakeSource) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, ErrNotFound
}

func resetRegistry() {
	mu.Lock()
	registry = make(map[string]func() (Source, error))
	mu.Unlock()
}

func TestRegisterAndGet(t *testing.T) {
	resetRegistry()
	Register("fake", func() (Source, error) {
		return &fakeSource{name: "fake"}, nil
	})

	src, err := Get("fake")
	require.NoError(t, err)
	assert.Equal(t, "fake", src.Name())
	assert.True(t, IsRegistered("fake"))
}

func TestGetUnknownListsAvailable(t *testing.T) {
	resetRegistry()
	Register("s3", func() (Source, error) { return &fakeSource{name: "s3"}, nil })

	_, err := Get("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"nope"`)
	assert.Contains(t, err.Error(), "s3")
}

func TestGetPropagatesFactoryError(t *testing.T) {
	resetRegistry()
	boom := errors.New("missing credentials")
	Register("broken", func() (Source, error) { return nil, boom })

	_, err := Get("broken")
	assert.ErrorIs(t, err, boom)
}

func TestAvailableSorted(t *testing.T) {
	resetRegistry()
	for _, name := range []string{"gitlab", "confluence", "s3"} {
		name := name
		Register(name, func() (Source, error) { return &fakeSource{name: name}, nil })
	}

	assert.Equal(t, []string{"confluence", "gitlab", "s3"}, Available())
}
