/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package badger is a Badger implementation of the spi storage interfaces. All stores of a provider share
// one database; each store is a key prefix.
package badger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/hyperledger/aries-framework-go/spi/storage"
)

const (
	separator = ":"

	valuePrefix  = "v"
	tagPrefix    = "t"
	configPrefix = "c"

	invalidStoreName             = `"%s" is an invalid store name since it contains one or more ':' characters`
	invalidTagName               = `"%s" is an invalid tag name since it contains one or more ':' characters`
	invalidTagValue              = `"%s" is an invalid tag value since it contains one or more ':' characters`
	invalidQueryExpressionFormat = `"%s" is not in a valid expression format. ` +
		"it must be in the following format: TagName:TagValue"
)

// Provider is a Badger implementation of the spi.Provider interface.
type Provider struct {
	db     *badger.DB
	stores map[string]*store
	lock   sync.RWMutex
}

type dbEntry struct {
	Value []byte        `json:"value,omitempty"`
	Tags  []storage.Tag `json:"tags,omitempty"`
}

// NewProvider opens the database at dbPath.
func NewProvider(dbPath string) (*Provider, error) {
	if dbPath == "" {
		return nil, errors.New("badger database path is mandatory")
	}

	return open(badger.DefaultOptions(dbPath))
}

// NewInMemoryProvider opens a database that lives in memory only.
func NewInMemoryProvider() (*Provider, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Provider, error) {
	db, err := badger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &Provider{db: db, stores: map[string]*store{}}, nil
}

// OpenStore opens and returns a store for given name space.
func (p *Provider) OpenStore(name string) (storage.Store, error) {
	if name == "" {
		return nil, errors.New("store name cannot be blank")
	}

	if strings.Contains(name, separator) {
		return nil, fmt.Errorf(invalidStoreName, name)
	}

	name = strings.ToLower(name)

	p.lock.Lock()
	defer p.lock.Unlock()

	if s, ok := p.stores[name]; ok {
		return s, nil
	}

	s := &store{db: p.db, name: name, close: p.removeStore}
	p.stores[name] = s

	return s, nil
}

// SetStoreConfig saves the store config for later retrieval. Badger needs no indexes to be declared.
func (p *Provider) SetStoreConfig(name string, config storage.StoreConfiguration) error {
	for _, tagName := range config.TagNames {
		if strings.Contains(tagName, separator) {
			return fmt.Errorf(invalidTagName, tagName)
		}
	}

	name = strings.ToLower(name)

	if p.getStore(name) == nil {
		return storage.ErrStoreNotFound
	}

	configBytes, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal store configuration: %w", err)
	}

	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(configKey(name), configBytes)
	})
}

// GetStoreConfig returns the current store configuration.
func (p *Provider) GetStoreConfig(name string) (storage.StoreConfiguration, error) {
	name = strings.ToLower(name)

	if p.getStore(name) == nil {
		return storage.StoreConfiguration{}, storage.ErrStoreNotFound
	}

	var config storage.StoreConfiguration

	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(configKey(name))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &config)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return storage.StoreConfiguration{}, storage.ErrStoreNotFound
	}

	if err != nil {
		return storage.StoreConfiguration{}, fmt.Errorf(`failed to get store configuration for "%s": %w`, name, err)
	}

	return config, nil
}

// GetOpenStores returns all Stores currently open in the Provider.
func (p *Provider) GetOpenStores() []storage.Store {
	p.lock.RLock()
	defer p.lock.RUnlock()

	openStores := make([]storage.Store, 0, len(p.stores))

	for _, s := range p.stores {
		openStores = append(openStores, s)
	}

	return openStores
}

// Close closes all stores and the database.
func (p *Provider) Close() error {
	p.lock.Lock()
	p.stores = map[string]*store{}
	p.lock.Unlock()

	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	return nil
}

func (p *Provider) getStore(name string) *store {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return p.stores[name]
}

func (p *Provider) removeStore(name string) {
	p.lock.Lock()
	defer p.lock.Unlock()

	delete(p.stores, name)
}

type store struct {
	db    *badger.DB
	name  string
	close func(name string)
}

// Put stores the value and replaces the tags of key.
func (s *store) Put(key string, value []byte, tags ...storage.Tag) error {
	if err := validatePut(key, value, tags); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return s.put(txn, key, value, tags)
	})
}

// Get fetches the value of key.
func (s *store) Get(key string) ([]byte, error) {
	entry, err := s.getEntry(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get DB entry: %w", err)
	}

	return entry.Value, nil
}

// GetTags fetches the tags of key.
func (s *store) GetTags(key string) ([]storage.Tag, error) {
	entry, err := s.getEntry(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get DB entry: %w", err)
	}

	return entry.Tags, nil
}

// GetBulk fetches the values of keys in one read transaction. Missing keys yield nil values.
func (s *store) GetBulk(keys ...string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, errors.New("keys slice must contain at least one key")
	}

	values := make([][]byte, len(keys))

	err := s.db.View(func(txn *badger.Txn) error {
		for i, key := range keys {
			if key == "" {
				return errors.New("key cannot be blank")
			}

			entry, err := s.readEntry(txn, key)
			if errors.Is(err, storage.ErrDataNotFound) {
				continue
			}

			if err != nil {
				return fmt.Errorf("unexpected failure while retrieving the value stored under %s: %w", key, err)
			}

			values[i] = entry.Value
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return values, nil
}

// Query returns the entries tagged with the expression's tag name, and value when given. Page size is
// ignored; initial page and sort order are not supported.
func (s *store) Query(expression string, options ...storage.QueryOption) (storage.Iterator, error) {
	var queryOptions storage.QueryOptions

	for _, option := range options {
		option(&queryOptions)
	}

	if queryOptions.InitialPageNum != 0 || queryOptions.SortOptions != nil {
		return nil, errors.New("badger provider does not support paging or sorting of query results")
	}

	if expression == "" {
		return nil, fmt.Errorf(invalidQueryExpressionFormat, expression)
	}

	parts := strings.Split(expression, separator)
	if len(parts) > 2 || parts[0] == "" {
		return nil, fmt.Errorf(invalidQueryExpressionFormat, expression)
	}

	nameOnly := len(parts) == 1 || parts[1] == ""

	prefix := s.tagKey(parts[0], "", "")
	if !nameOnly {
		prefix = s.tagKey(parts[0], parts[1], "")
	}

	it := &iterator{index: -1}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		dbIt := txn.NewIterator(opts)
		defer dbIt.Close()

		for dbIt.Rewind(); dbIt.Valid(); dbIt.Next() {
			key := keyOfTagEntry(dbIt.Item().Key(), prefix, nameOnly)

			entry, err := s.readEntry(txn, key)
			if err != nil {
				return fmt.Errorf("failed to get tagged entry %s: %w", key, err)
			}

			it.entries = append(it.entries, queryResult{key: key, entry: entry})
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get database keys matching query: %w", err)
	}

	return it, nil
}

// Delete removes key and its tags.
func (s *store) Delete(key string) error {
	if key == "" {
		return errors.New("key cannot be blank")
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return s.delete(txn, key)
	})
}

// Batch performs the operations in one transaction.
func (s *store) Batch(operations []storage.Operation) error {
	if len(operations) == 0 {
		return errors.New("batch requires at least one operation")
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, op := range operations {
			if op.Value == nil {
				if err := s.delete(txn, op.Key); err != nil {
					return fmt.Errorf("failed to delete value: %w", err)
				}

				continue
			}

			if err := validatePut(op.Key, op.Value, op.Tags); err != nil {
				return err
			}

			if op.PutOptions != nil && op.PutOptions.IsNewKey {
				if _, err := s.readEntry(txn, op.Key); err == nil {
					return fmt.Errorf("%s: %w", op.Key, storage.ErrDuplicateKey)
				}
			}

			if err := s.put(txn, op.Key, op.Value, op.Tags); err != nil {
				return fmt.Errorf("failed to put value: %w", err)
			}
		}

		return nil
	})
}

// Flush is a no-op: writes are committed by the transaction that makes them.
func (s *store) Flush() error {
	return nil
}

// Close removes the store from the provider. The database stays open until the provider is closed.
func (s *store) Close() error {
	s.close(s.name)

	return nil
}

func (s *store) put(txn *badger.Txn, key string, value []byte, tags []storage.Tag) error {
	if err := s.deleteTags(txn, key); err != nil {
		return err
	}

	entryBytes, err := json.Marshal(dbEntry{Value: value, Tags: tags})
	if err != nil {
		return fmt.Errorf("failed to marshal new DB entry: %w", err)
	}

	if err = txn.Set(s.valueKey(key), entryBytes); err != nil {
		return err
	}

	for _, tag := range tags {
		if err = txn.Set(s.tagKey(tag.Name, tag.Value, key), nil); err != nil {
			return err
		}
	}

	return nil
}

func (s *store) delete(txn *badger.Txn, key string) error {
	if err := s.deleteTags(txn, key); err != nil {
		return err
	}

	return txn.Delete(s.valueKey(key))
}

func (s *store) deleteTags(txn *badger.Txn, key string) error {
	old, err := s.readEntry(txn, key)
	if errors.Is(err, storage.ErrDataNotFound) {
		return nil
	}

	if err != nil {
		return err
	}

	for _, tag := range old.Tags {
		if err = txn.Delete(s.tagKey(tag.Name, tag.Value, key)); err != nil {
			return fmt.Errorf("failed to remove key from tag index: %w", err)
		}
	}

	return nil
}

func (s *store) getEntry(key string) (dbEntry, error) {
	if key == "" {
		return dbEntry{}, errors.New("key cannot be blank")
	}

	var entry dbEntry

	err := s.db.View(func(txn *badger.Txn) error {
		var err error

		entry, err = s.readEntry(txn, key)

		return err
	})

	return entry, err
}

func (s *store) readEntry(txn *badger.Txn, key string) (dbEntry, error) {
	item, err := txn.Get(s.valueKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return dbEntry{}, storage.ErrDataNotFound
	}

	if err != nil {
		return dbEntry{}, err
	}

	var entry dbEntry

	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entry)
	})
	if err != nil {
		return dbEntry{}, fmt.Errorf("failed to unmarshal retrieved DB entry: %w", err)
	}

	return entry, nil
}

func (s *store) valueKey(key string) []byte {
	return []byte(valuePrefix + separator + s.name + separator + key)
}

// tagKey builds the index key of a tagged entry, or a scan prefix when value or key are empty.
func (s *store) tagKey(name, value, key string) []byte {
	k := tagPrefix + separator + s.name + separator + name + separator

	if value == "" && key == "" {
		return []byte(k)
	}

	return []byte(k + value + separator + key)
}

// keyOfTagEntry extracts the entry key from an index key. Tag values never contain the separator, so
// for a tag name prefix the key starts after the first separator of the remainder.
func keyOfTagEntry(indexKey, prefix []byte, nameOnly bool) string {
	rest := string(indexKey[len(prefix):])

	if nameOnly {
		_, key, _ := strings.Cut(rest, separator)

		return key
	}

	return rest
}

func configKey(name string) []byte {
	return []byte(configPrefix + separator + name)
}

func validatePut(key string, value []byte, tags []storage.Tag) error {
	if key == "" {
		return errors.New("key cannot be blank")
	}

	if value == nil {
		return errors.New("value cannot be nil")
	}

	for _, tag := range tags {
		if strings.Contains(tag.Name, separator) {
			return fmt.Errorf(invalidTagName, tag.Name)
		}

		if strings.Contains(tag.Value, separator) {
			return fmt.Errorf(invalidTagValue, tag.Value)
		}
	}

	return nil
}

type queryResult struct {
	key   string
	entry dbEntry
}

type iterator struct {
	entries []queryResult
	index   int
}

func (i *iterator) Next() (bool, error) {
	if i.index+1 >= len(i.entries) {
		return false, nil
	}

	i.index++

	return true, nil
}

func (i *iterator) Key() (string, error) {
	if i.index < 0 || i.index >= len(i.entries) {
		return "", errors.New("iterator is exhausted")
	}

	return i.entries[i.index].key, nil
}

func (i *iterator) Value() ([]byte, error) {
	if i.index < 0 || i.index >= len(i.entries) {
		return nil, errors.New("iterator is exhausted")
	}

	return i.entries[i.index].entry.Value, nil
}

func (i *iterator) Tags() ([]storage.Tag, error) {
	if i.index < 0 || i.index >= len(i.entries) {
		return nil, errors.New("iterator is exhausted")
	}

	return i.entries[i.index].entry.Tags, nil
}

func (i *iterator) TotalItems() (int, error) {
	return len(i.entries), nil
}

func (i *iterator) Close() error {
	return nil
}
