package storage

import (
	"testing"
	"time"

	"chatcart/internal/cart"
	"chatcart/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManagerCreateGetDelete(t *testing.T) {
	m := NewSessionManager(time.Minute)
	s := m.Create("u1", State{CurrentCategory: "fashion"})
	require.NotEmpty(t, s.ID)

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, "fashion", got.Snapshot().CurrentCategory)
	assert.NotNil(t, got.Snapshot().Cart)

	m.Delete(s.ID)
	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionSingleTurnGate(t *testing.T) {
	m := NewSessionManager(time.Minute)
	s := m.Create("u1", State{})

	require.True(t, s.TryBegin())
	assert.False(t, s.TryBegin(), "second turn rejected while first is in flight")
	s.End()
	assert.True(t, s.TryBegin())
	s.End()
}

func TestSessionSnapshotIsDeepCopy(t *testing.T) {
	m := NewSessionManager(time.Minute)
	s := m.Create("u1", State{Cart: cart.New(nil)})
	s.Update(func(st *State) {
		st.Cart.Add(pkg.Product{ID: "101", Title: "iPhone 15 Pro"}, 1, true, time.Now())
		st.LastDisplayed = []pkg.Product{{ID: "101"}}
	})

	snap := s.Snapshot()
	snap.Cart.Add(pkg.Product{ID: "102"}, 1, true, time.Now())
	snap.LastDisplayed[0].ID = "999"

	again := s.Snapshot()
	assert.Equal(t, 1, again.Cart.Len())
	assert.Equal(t, pkg.ProductID("101"), again.LastDisplayed[0].ID)
}

func TestTranscriptBound(t *testing.T) {
	var st State
	for i := 0; i < MaxTranscript+5; i++ {
		st.AppendTranscript("user", "hi", time.Now())
	}
	assert.Len(t, st.Transcript, MaxTranscript)
}

func TestExpireInactive(t *testing.T) {
	m := NewSessionManager(time.Minute)
	idle := m.Create("u1", State{})
	busy := m.Create("u2", State{})
	require.True(t, busy.TryBegin())

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, 1, m.expireInactive())

	_, err := m.Get(idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Get(busy.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, m.Len())
}
