/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package valuetransfer persists value transfer records, party wallets and the witness ledger.
package valuetransfer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/pkg/errors"

	"github.com/sicpa-dlab/aries-vtp-go/pkg/common/log"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/didcomm/common/service"
	"github.com/sicpa-dlab/aries-vtp-go/pkg/doc/vtp"
)

const (
	// Namespace is the store name of value transfer records.
	Namespace = "valuetransfer"

	recordKeyPrefix = "vtrecord_"
	threadKeyPrefix = "vtthid_"
	recordTag       = "vtrecord"
	statusTag       = "vtstatus"
	roleTag         = "vtrole"
)

var logger = log.New("aries-framework/store/valuetransfer")

var (
	// ErrRecordNotFound is returned when no record matches.
	ErrRecordNotFound = errors.New("value transfer record not found")
	// ErrRecordExists is returned by Save for an already known thread.
	ErrRecordExists = errors.New("value transfer record already exists")
)

// Role of the local agent in a transaction.
type Role string

// Roles.
const (
	RoleGetter  Role = "getter"
	RoleGiver   Role = "giver"
	RoleWitness Role = "witness"
)

// State is the protocol state of a record. The order of states is fixed per role.
type State string

// States.
const (
	StateRequestSent               State = "request-sent"
	StateRequestReceived           State = "request-received"
	StateRequestAcceptanceReceived State = "request-acceptance-received"
	StateRequestAcceptanceSent     State = "request-acceptance-sent"
	StateCashAcceptanceSent        State = "cash-acceptance-sent"
	StateCashRemovalSent           State = "cash-removal-sent"
	StateCompleted                 State = "completed"
	StateFailed                    State = "failed"
)

// Status is the lifecycle status of a record, orthogonal to its state.
type Status string

// Statuses.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusPaused     Status = "paused"
	StatusFinished   Status = "finished"
)

// Record is the local view of one transaction.
type Record struct {
	ID             string                `json:"id"`
	Role           Role                  `json:"role"`
	State          State                 `json:"state"`
	Status         Status                `json:"status"`
	ThreadID       string                `json:"thid"`
	Payment        vtp.Payment           `json:"payment"`
	Transaction    *vtp.Transaction      `json:"transaction,omitempty"`
	Receipt        *vtp.Receipt          `json:"receipt,omitempty"`
	Getter         *vtp.PartyInfo        `json:"getter,omitempty"`
	Giver          *vtp.PartyInfo        `json:"giver,omitempty"`
	Witness        *vtp.PartyInfo        `json:"witness,omitempty"`
	ProblemReport  *vtp.ProblemReport    `json:"problemReport,omitempty"`
	LastMessage    service.DIDCommMsgMap `json:"lastMessage,omitempty"`
	ResumeAttempts int                   `json:"resumeAttempts,omitempty"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// Finished reports whether the record reached its terminal status.
func (r *Record) Finished() bool {
	return r.Status == StatusFinished
}

// Store keeps value transfer records. Records are never deleted.
type Store struct {
	store storage.Store
	now   func() time.Time
}

type provider interface {
	StorageProvider() storage.Provider
}

// New opens the record store.
func New(p provider) (*Store, error) {
	store, err := p.StorageProvider().OpenStore(Namespace)
	if err != nil {
		return nil, errors.Wrap(err, "open value transfer store")
	}

	err = p.StorageProvider().SetStoreConfig(Namespace,
		storage.StoreConfiguration{TagNames: []string{recordTag, statusTag, roleTag}})
	if err != nil {
		return nil, errors.Wrap(err, "set value transfer store config")
	}

	return &Store{store: store, now: time.Now}, nil
}

// Save persists a new record. The thread must not be known yet.
func (s *Store) Save(r *Record) error {
	if r.ThreadID == "" {
		return errors.New("record thread id is mandatory")
	}

	_, err := s.store.Get(threadKeyPrefix + r.ThreadID)
	if err == nil {
		return errors.Wrapf(ErrRecordExists, "thread %s", r.ThreadID)
	}

	if !errors.Is(err, storage.ErrDataNotFound) {
		return errors.Wrap(err, "lookup thread index")
	}

	if r.ID == "" {
		r.ID = uuid.New().String()
	}

	r.CreatedAt = s.now().UTC()
	r.UpdatedAt = r.CreatedAt

	return s.put(r, true)
}

// Update overwrites an existing record.
func (s *Store) Update(r *Record) error {
	if _, err := s.Get(r.ID); err != nil {
		return err
	}

	r.UpdatedAt = s.now().UTC()

	return s.put(r, false)
}

func (s *Store) put(r *Record, withIndex bool) error {
	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "marshal value transfer record")
	}

	ops := []storage.Operation{{
		Key:   recordKeyPrefix + r.ID,
		Value: data,
		Tags: []storage.Tag{
			{Name: recordTag},
			{Name: statusTag, Value: string(r.Status)},
			{Name: roleTag, Value: string(r.Role)},
		},
	}}

	if withIndex {
		ops = append(ops, storage.Operation{Key: threadKeyPrefix + r.ThreadID, Value: []byte(r.ID)})
	}

	if err = s.store.Batch(ops); err != nil {
		return errors.Wrapf(err, "store value transfer record %s", r.ID)
	}

	logger.Debugf("stored record %s thid=%s role=%s state=%s status=%s", r.ID, r.ThreadID, r.Role, r.State, r.Status)

	return nil
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (*Record, error) {
	data, err := s.store.Get(recordKeyPrefix + id)
	if err != nil {
		if errors.Is(err, storage.ErrDataNotFound) {
			return nil, errors.Wrapf(ErrRecordNotFound, "id %s", id)
		}

		return nil, errors.Wrap(err, "get value transfer record")
	}

	r := &Record{}
	if err = json.Unmarshal(data, r); err != nil {
		return nil, errors.Wrap(err, "unmarshal value transfer record")
	}

	return r, nil
}

// GetByThreadID returns the record of a thread or ErrRecordNotFound.
func (s *Store) GetByThreadID(thid string) (*Record, error) {
	id, err := s.store.Get(threadKeyPrefix + thid)
	if err != nil {
		if errors.Is(err, storage.ErrDataNotFound) {
			return nil, errors.Wrapf(ErrRecordNotFound, "thread %s", thid)
		}

		return nil, errors.Wrap(err, "get thread index")
	}

	return s.Get(string(id))
}

// FindByThreadID returns the record of a thread, nil when the thread is unknown.
func (s *Store) FindByThreadID(thid string) (*Record, error) {
	r, err := s.GetByThreadID(thid)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, nil
	}

	return r, err
}

// FindAllByStatus returns the records in the given status.
func (s *Store) FindAllByStatus(status Status) ([]*Record, error) {
	return s.query(statusTag + ":" + string(status))
}

// FindAllByRole returns the records the agent holds in the given role.
func (s *Store) FindAllByRole(role Role) ([]*Record, error) {
	return s.query(roleTag + ":" + string(role))
}

// FindAll returns every record.
func (s *Store) FindAll() ([]*Record, error) {
	return s.query(recordTag)
}

func (s *Store) query(expression string) ([]*Record, error) {
	iter, err := s.store.Query(expression)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", expression)
	}

	defer storage.Close(iter, logger)

	var records []*Record

	more, err := iter.Next()
	if err != nil {
		return nil, errors.Wrap(err, "iterate records")
	}

	for more {
		data, err := iter.Value()
		if err != nil {
			return nil, errors.Wrap(err, "read record")
		}

		r := &Record{}
		if err = json.Unmarshal(data, r); err != nil {
			return nil, errors.Wrap(err, "unmarshal value transfer record")
		}

		records = append(records, r)

		more, err = iter.Next()
		if err != nil {
			return nil, errors.Wrap(err, "iterate records")
		}
	}

	return records, nil
}
