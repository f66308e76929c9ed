package provider

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Call(ctx context.Context, req *Request) (*Response, error) {
	return &Response{Content: "ok"}, nil
}

func resetRegistry() {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[string]func() (Provider, error))
}

func TestRegisterAndGet(t *testing.T) {
	resetRegistry()

	Register("alpha", func() (Provider, error) {
		return &fakeProvider{name: "alpha"}, nil
	})

	assert.True(t, IsRegistered("alpha"))
	assert.False(t, IsRegistered("beta"))

	p, err := Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", p.Name())
}

func TestRegisterReplacesFactory(t *testing.T) {
	resetRegistry()

	Register("dup", func() (Provider, error) { return &fakeProvider{name: "first"}, nil })
	Register("dup", func() (Provider, error) { return &fakeProvider{name: "second"}, nil })

	p, err := Get("dup")
	require.NoError(t, err)
	assert.Equal(t, "second", p.Name())
}

func TestGetUnknownListsAvailable(t *testing.T) {
	resetRegistry()

	Register("alpha", func() (Provider, error) { return &fakeProvider{name: "alpha"}, nil })
	Register("beta", func() (Provider, error) { return &fakeProvider{name: "beta"}, nil })

	_, err := Get("gamma")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gamma")
	assert.Contains(t, err.Error(), "alpha")
	assert.Contains(t, err.Error(), "beta")
}

func TestGetPropagatesFactoryError(t *testing.T) {
	resetRegistry()

	Register("broken", func() (Provider, error) {
		return nil, errors.New("no credentials")
	})

	_, err := Get("broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials")
}

func TestAvailableSorted(t *testing.T) {
	resetRegistry()

	for _, name := range []string{"zulu", "alpha", "mike"} {
		Register(name, func() (Provider, error) { return &fakeProvider{name: name}, nil })
	}

	assert.Equal(t, []string{"alpha", "mike", "zulu"}, Available())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	resetRegistry()

	Register("shared", func() (Provider, error) {
		return &fakeProvider{name: "shared"}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = Get("shared")
			_ = Available()
			_ = IsRegistered("shared")
		}()
		go func() {
			defer wg.Done()
			Register("shared", func() (Provider, error) {
				return &fakeProvider{name: "shared"}, nil
			})
		}()
	}
	wg.Wait()

	assert.True(t, IsRegistered("shared"))
}
