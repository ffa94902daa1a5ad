package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSelectAndSet(t *testing.T) {
	store := NewStore(State{AppURL: "https://api.example.com"})

	store.SetToken("tok-1")
	token := Select(store, func(s State) string { return s.Token })
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, "https://api.example.com", store.State().AppURL)
	assert.True(t, store.State().SignedIn())
}

func TestStoreSubscribe(t *testing.T) {
	store := NewStore(State{})
	var seen []State
	unsubscribe := store.Subscribe(func(s State) { seen = append(seen, s) })

	store.SetToken("a")
	store.SetAppURL("https://b.example.com")
	unsubscribe()
	store.SetToken("ignored")

	require.Len(t, seen, 2)
	assert.Equal(t, State{Token: "a"}, seen[0])
	assert.Equal(t, State{Token: "a", AppURL: "https://b.example.com"}, seen[1])
}

func TestStoreLogout(t *testing.T) {
	store := NewStore(State{Token: "tok", AppURL: "https://api.example.com"})
	var reasons []string
	store.OnLogout(func(reason string) {
		// listeners observe the cleared state
		assert.False(t, store.State().SignedIn())
		reasons = append(reasons, reason)
	})

	store.Logout("session expired")

	assert.Equal(t, []string{"session expired"}, reasons)
	assert.Equal(t, State{AppURL: "https://api.example.com"}, store.State())
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore(State{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.SetToken("t")
		}()
		go func() {
			defer wg.Done()
			_ = Select(store, func(s State) bool { return s.SignedIn() })
		}()
	}
	wg.Wait()
	assert.Equal(t, "t", store.State().Token)
}

func TestStoreNotifiesInUpdateOrder(t *testing.T) {
	store := NewStore(State{Token: "old"})
	entered := make(chan struct{})
	release := make(chan struct{})

	var mu sync.Mutex
	var last State
	first := true
	store.Subscribe(func(s State) {
		mu.Lock()
		slow := first
		first = false
		mu.Unlock()
		if slow {
			close(entered)
			<-release
		}
		mu.Lock()
		last = s
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		store.SetToken("refreshed")
	}()
	<-entered

	loggedOut := make(chan struct{})
	go func() {
		defer close(loggedOut)
		store.Logout("pushed out")
	}()

	// give Logout the chance to overtake the slow listener
	time.Sleep(20 * time.Millisecond)
	close(release)
	<-done
	<-loggedOut

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, store.State(), last)
	assert.Empty(t, last.Token)
}
