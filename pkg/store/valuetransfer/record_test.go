/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package valuetransfer

import (
	"errors"
	"sync"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mock"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/stretchr/testify/require"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
	vtplib "github.com/sicpa-dlab/aries-vtp-go/pkg/vtp"
)

type mockProvider struct {
	provider storage.Provider
}

func (p *mockProvider) StorageProvider() storage.Provider {
	return p.provider
}

func newMemProvider() *mockProvider {
	return &mockProvider{provider: mem.NewProvider()}
}

func TestNew(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s, err := New(newMemProvider())
		require.NoError(t, err)
		require.NotNil(t, s)
	})

	t.Run("open store error", func(t *testing.T) {
		s, err := New(&mockProvider{provider: &mock.Provider{ErrOpenStore: errors.New("open failed")}})
		require.EqualError(t, err, "open value transfer store: open failed")
		require.Nil(t, s)
	})

	t.Run("store config error", func(t *testing.T) {
		s, err := New(&mockProvider{provider: &mock.Provider{
			OpenStoreReturn:   &mock.Store{},
			ErrSetStoreConfig: errors.New("config failed"),
		}})
		require.EqualError(t, err, "set value transfer store config: config failed")
		require.Nil(t, s)
	})
}

func TestStore_SaveAndGet(t *testing.T) {
	s, err := New(newMemProvider())
	require.NoError(t, err)

	record := &Record{
		Role:        RoleGetter,
		State:       StateRequestSent,
		Status:      StatusPending,
		ThreadID:    "thread-1",
		Payment:     vtp.Payment{Amount: 10, Getter: "did:peer:getter", Witness: "did:peer:witness"},
		LastMessage: service.DIDCommMsgMap{"id": "msg-1", "type": "request"},
	}

	require.NoError(t, s.Save(record))
	require.NotEmpty(t, record.ID)
	require.False(t, record.CreatedAt.IsZero())

	t.Run("get by id", func(t *testing.T) {
		got, err := s.Get(record.ID)
		require.NoError(t, err)
		require.Equal(t, record.ThreadID, got.ThreadID)
		require.Equal(t, record.Payment, got.Payment)
		require.Equal(t, "msg-1", got.LastMessage.ID())
	})

	t.Run("get by thread", func(t *testing.T) {
		got, err := s.GetByThreadID("thread-1")
		require.NoError(t, err)
		require.Equal(t, record.ID, got.ID)
	})

	t.Run("duplicate thread", func(t *testing.T) {
		err := s.Save(&Record{ThreadID: "thread-1", Role: RoleGiver})
		require.ErrorIs(t, err, ErrRecordExists)
	})

	t.Run("missing thread id", func(t *testing.T) {
		require.Error(t, s.Save(&Record{}))
	})

	t.Run("unknown thread", func(t *testing.T) {
		_, err := s.GetByThreadID("thread-unknown")
		require.ErrorIs(t, err, ErrRecordNotFound)

		got, err := s.FindByThreadID("thread-unknown")
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.Get("unknown")
		require.ErrorIs(t, err, ErrRecordNotFound)
	})
}

func TestStore_Update(t *testing.T) {
	s, err := New(newMemProvider())
	require.NoError(t, err)

	record := &Record{Role: RoleWitness, State: StateRequestAcceptanceReceived, Status: StatusPending, ThreadID: "t"}
	require.NoError(t, s.Save(record))

	record.State = StateRequestAcceptanceSent
	record.Status = StatusPaused
	require.NoError(t, s.Update(record))

	got, err := s.FindByThreadID("t")
	require.NoError(t, err)
	require.Equal(t, StateRequestAcceptanceSent, got.State)
	require.Equal(t, StatusPaused, got.Status)

	paused, err := s.FindAllByStatus(StatusPaused)
	require.NoError(t, err)
	require.Len(t, paused, 1)

	pending, err := s.FindAllByStatus(StatusPending)
	require.NoError(t, err)
	require.Empty(t, pending)

	t.Run("update of unsaved record", func(t *testing.T) {
		err := s.Update(&Record{ID: "missing", ThreadID: "missing"})
		require.ErrorIs(t, err, ErrRecordNotFound)
	})
}

func TestStore_Find(t *testing.T) {
	s, err := New(newMemProvider())
	require.NoError(t, err)

	require.NoError(t, s.Save(&Record{Role: RoleGetter, Status: StatusInProgress, ThreadID: "a"}))
	require.NoError(t, s.Save(&Record{Role: RoleGiver, Status: StatusFinished, ThreadID: "b"}))
	require.NoError(t, s.Save(&Record{Role: RoleGetter, Status: StatusFinished, ThreadID: "c"}))

	all, err := s.FindAll()
	require.NoError(t, err)
	require.Len(t, all, 3)

	getters, err := s.FindAllByRole(RoleGetter)
	require.NoError(t, err)
	require.Len(t, getters, 2)

	finished, err := s.FindAllByStatus(StatusFinished)
	require.NoError(t, err)
	require.Len(t, finished, 2)

	witnesses, err := s.FindAllByRole(RoleWitness)
	require.NoError(t, err)
	require.Empty(t, witnesses)

	t.Run("query error", func(t *testing.T) {
		broken := &Store{store: &mock.Store{ErrQuery: errors.New("query failed")}}

		_, err := broken.FindAll()
		require.Error(t, err)
		require.Contains(t, err.Error(), "query failed")
	})
}

func TestPartyStateStore(t *testing.T) {
	s, err := NewPartyStateStore(newMemProvider())
	require.NoError(t, err)

	_, err = s.Get()
	require.ErrorIs(t, err, ErrStateNotFound)

	require.NoError(t, s.Save(&vtplib.PartyState{PublicDID: "did:peer:me", PublicKey: []byte("pub")}))

	t.Run("failed update leaves the wallet unchanged", func(t *testing.T) {
		err := s.Update(func(state *vtplib.PartyState) error {
			state.Notes = append(state.Notes, vtp.VerifiableNote{ID: "n0"})

			return errors.New("rejected")
		})
		require.EqualError(t, err, "rejected")

		state, err := s.Get()
		require.NoError(t, err)
		require.Empty(t, state.Notes)
	})

	t.Run("concurrent updates are serialised", func(t *testing.T) {
		var wg sync.WaitGroup

		for i := 0; i < 20; i++ {
			wg.Add(1)

			go func(i int) {
				defer wg.Done()

				require.NoError(t, s.Update(func(state *vtplib.PartyState) error {
					state.Notes = append(state.Notes, vtp.VerifiableNote{ID: string(rune('a' + i))})

					return nil
				}))
			}(i)
		}

		wg.Wait()

		state, err := s.Get()
		require.NoError(t, err)
		require.Equal(t, uint64(20), state.Balance())
	})
}

func TestWitnessStateStore(t *testing.T) {
	s, err := NewWitnessStateStore(newMemProvider())
	require.NoError(t, err)

	exists, err := s.Exists()
	require.NoError(t, err)
	require.False(t, exists)

	_, err = s.Get()
	require.ErrorIs(t, err, ErrStateNotFound)

	require.NoError(t, s.Save(&vtplib.WitnessState{
		Info:   vtp.WitnessInfo{WID: "w1", DID: "did:peer:w1", Type: vtp.WitnessTypeOne},
		Hashes: map[string]bool{"h1": true},
		Supply: 5,
	}))

	exists, err = s.Exists()
	require.NoError(t, err)
	require.True(t, exists)

	state, err := s.Get()
	require.NoError(t, err)
	require.Equal(t, "w1", state.Info.WID)
	require.True(t, state.Hashes["h1"])
	require.NotNil(t, state.Consumed)
	require.NotNil(t, state.LastUpdateTracker)
	require.Equal(t, uint64(5), state.Supply)
}
