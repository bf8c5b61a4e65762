package badgerdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/ark-network/dcd/internal/core/domain"
	"github.com/ark-network/dcd/internal/core/ports"
	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

const registryStoreDir = "registry"

type entropyRecord struct {
	Name    string
	Entropy []byte
}

type contractRecord struct {
	Key    string
	Params []byte
}

type registry struct {
	store *badgerhold.Store
	locks *keyLocks
}

// NewRegistry opens the registry under baseDir, or in memory if baseDir is
// empty.
func NewRegistry(baseDir string, logger badger.Logger) (ports.Registry, error) {
	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, registryStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry store: %s", err)
	}

	return &registry{store, newKeyLocks()}, nil
}

func (r *registry) Exists(ctx context.Context, name string) (bool, error) {
	var record entropyRecord
	if err := r.store.Get(name, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *registry) Put(ctx context.Context, name string, entropy domain.AssetEntropy) error {
	unlock := r.locks.lockKey(entropyKey(name))
	defer unlock()

	err := r.insert(name, entropyRecord{name, entropy.Bytes()})
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateName, name)
	}
	return err
}

func (r *registry) Get(ctx context.Context, name string) (domain.AssetEntropy, error) {
	var record entropyRecord
	if err := r.store.Get(name, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return domain.AssetEntropy{}, fmt.Errorf("%w: %s", domain.ErrNotFound, name)
		}
		return domain.AssetEntropy{}, err
	}
	return domain.NewAssetEntropy(record.Entropy)
}

func (r *registry) ListEntropies(ctx context.Context) (map[string]domain.AssetEntropy, error) {
	records := make([]entropyRecord, 0)
	if err := r.store.Find(&records, nil); err != nil {
		return nil, err
	}

	entropies := make(map[string]domain.AssetEntropy, len(records))
	for _, record := range records {
		entropy, err := domain.NewAssetEntropy(record.Entropy)
		if err != nil {
			return nil, fmt.Errorf("corrupted entropy %s: %w", record.Name, err)
		}
		entropies[record.Name] = entropy
	}
	return entropies, nil
}

func (r *registry) PutContract(ctx context.Context, key string, encodedParams []byte) error {
	unlock := r.locks.lockKey(contractKey(key))
	defer unlock()

	var existing contractRecord
	err := r.store.Get(key, &existing)
	if err == nil {
		if bytes.Equal(existing.Params, encodedParams) {
			return nil
		}
		return fmt.Errorf("%w: contract %s", domain.ErrDuplicateName, key)
	}
	if !errors.Is(err, badgerhold.ErrNotFound) {
		return err
	}

	err = r.insert(key, contractRecord{key, encodedParams})
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return fmt.Errorf("%w: contract %s", domain.ErrDuplicateName, key)
	}
	return err
}

func (r *registry) GetContract(ctx context.Context, key string) ([]byte, error) {
	var record contractRecord
	if err := r.store.Get(key, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: contract %s", domain.ErrNotFound, key)
		}
		return nil, err
	}
	return record.Params, nil
}

func (r *registry) ListContracts(ctx context.Context) ([]string, error) {
	records := make([]contractRecord, 0)
	if err := r.store.Find(&records, nil); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(records))
	for _, record := range records {
		keys = append(keys, record.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *registry) SaveContract(
	ctx context.Context, key string, encodedParams []byte,
	entropies map[string]domain.AssetEntropy,
) error {
	lockKeys := make([]string, 0, len(entropies)+1)
	names := make([]string, 0, len(entropies))
	for name := range entropies {
		names = append(names, name)
		lockKeys = append(lockKeys, entropyKey(name))
	}
	sort.Strings(names)
	lockKeys = append(lockKeys, contractKey(key))
	sort.Strings(lockKeys)
	for _, k := range lockKeys {
		unlock := r.locks.lockKey(k)
		defer unlock()
	}

	return r.update(func(tx *badger.Txn) error {
		for _, name := range names {
			record := entropyRecord{name, entropies[name].Bytes()}
			if err := r.store.TxInsert(tx, name, record); err != nil {
				if errors.Is(err, badgerhold.ErrKeyExists) {
					return fmt.Errorf("%w: %s", domain.ErrDuplicateName, name)
				}
				return err
			}
		}
		if err := r.store.TxInsert(tx, key, contractRecord{key, encodedParams}); err != nil {
			if errors.Is(err, badgerhold.ErrKeyExists) {
				return fmt.Errorf("%w: contract %s", domain.ErrDuplicateName, key)
			}
			return err
		}
		return nil
	})
}

func (r *registry) Close() {
	r.store.Close()
}

func (r *registry) insert(key string, record interface{}) error {
	return r.update(func(tx *badger.Txn) error {
		return r.store.TxInsert(tx, key, record)
	})
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (r *registry) update(fn func(tx *badger.Txn) error) error {
	err := r.store.Badger().Update(fn)
	attempts := 1
	for errors.Is(err, badger.ErrConflict) && attempts <= maxRetries {
		time.Sleep(100 * time.Millisecond)
		err = r.store.Badger().Update(fn)
		attempts++
	}
	return err
}

func entropyKey(name string) string {
	return "entropy/" + name
}

func contractKey(key string) string {
	return "contract/" + key
}
