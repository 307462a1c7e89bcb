package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"stakevault/core/types"
	"stakevault/crypto"
	"stakevault/native/rewards"
	"stakevault/storage"
)

var (
	// ErrInsufficientModuleBalance aborts a transfer whose debit exceeds the
	// ledger's own holdings of the asset.
	ErrInsufficientModuleBalance = errors.New("state: insufficient module balance for transfer")
)

var (
	keyPoolCount = []byte("rewards/poolcount")
	keyVote      = []byte("rewards/vote")
)

func poolKey(id uint64) []byte {
	key := make([]byte, 0, len("rewards/pool/")+8)
	key = append(key, []byte("rewards/pool/")...)
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], id)
	return append(key, raw[:]...)
}

func positionKey(poolID uint64, addr crypto.Address) []byte {
	key := make([]byte, 0, len("rewards/pos/")+8+1+20)
	key = append(key, []byte("rewards/pos/")...)
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], poolID)
	key = append(key, raw[:]...)
	key = append(key, '/')
	return append(key, addr.Bytes()...)
}

func votingBalanceKey(asset string) []byte {
	return append([]byte("rewards/vrb/"), asset...)
}

func accountKey(addr crypto.Address) []byte {
	return append([]byte("accounts/"), addr.Bytes()...)
}

// storedPosition is the RLP projection of a position; the address travels as
// its raw payload bytes.
type storedPosition struct {
	Addr        []byte
	Stake       *uint256.Int
	RewardDebt  *uint256.Int
	DepositTime uint64
}

type storedBalance struct {
	Asset  string
	Amount *uint256.Int
}

type storedAccount struct {
	Balances []storedBalance
}

// Keeper persists the rewards ledger in a key-value store and doubles as the
// engine's asset-transfer collaborator over an internal per-address account
// table. Pools live in a dense arena keyed by id; positions are created
// lazily and never removed.
type Keeper struct {
	db         storage.Database
	moduleAddr crypto.Address
	events     []*types.Event
}

// NewKeeper wraps db. moduleAddr is the account holding the ledger's own
// asset balances, debited on every outgoing transfer.
func NewKeeper(db storage.Database, moduleAddr crypto.Address) *Keeper {
	return &Keeper{db: db, moduleAddr: moduleAddr}
}

// ModuleAddress returns the ledger's own account address.
func (k *Keeper) ModuleAddress() crypto.Address { return k.moduleAddr }

func (k *Keeper) PoolCount() (uint64, error) {
	raw, err := k.db.Get(keyPoolCount)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, fmt.Errorf("state: malformed pool counter")
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (k *Keeper) AllocatePoolID() (uint64, error) {
	count, err := k.PoolCount()
	if err != nil {
		return 0, err
	}
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], count+1)
	if err := k.db.Put(keyPoolCount, raw[:]); err != nil {
		return 0, err
	}
	return count, nil
}

func (k *Keeper) GetPool(id uint64) (*rewards.Pool, error) {
	raw, err := k.db.Get(poolKey(id))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	pool := new(rewards.Pool)
	if err := rlp.DecodeBytes(raw, pool); err != nil {
		return nil, fmt.Errorf("state: decode pool %d: %w", id, err)
	}
	return pool, nil
}

func (k *Keeper) PutPool(pool *rewards.Pool) error {
	encoded, err := rlp.EncodeToBytes(pool)
	if err != nil {
		return fmt.Errorf("state: encode pool %d: %w", pool.ID, err)
	}
	return k.db.Put(poolKey(pool.ID), encoded)
}

func (k *Keeper) GetPosition(poolID uint64, addr crypto.Address) (*rewards.Position, error) {
	raw, err := k.db.Get(positionKey(poolID, addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	stored := new(storedPosition)
	if err := rlp.DecodeBytes(raw, stored); err != nil {
		return nil, fmt.Errorf("state: decode position: %w", err)
	}
	return &rewards.Position{
		Address:     crypto.NewAddress(crypto.SVTPrefix, stored.Addr),
		Stake:       stored.Stake,
		RewardDebt:  stored.RewardDebt,
		DepositTime: stored.DepositTime,
	}, nil
}

func (k *Keeper) PutPosition(poolID uint64, pos *rewards.Position) error {
	stored := &storedPosition{
		Addr:        pos.Address.Bytes(),
		Stake:       pos.Stake,
		RewardDebt:  pos.RewardDebt,
		DepositTime: pos.DepositTime,
	}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return fmt.Errorf("state: encode position: %w", err)
	}
	return k.db.Put(positionKey(poolID, pos.Address), encoded)
}

func (k *Keeper) VotingRewardBalance(asset string) (*uint256.Int, error) {
	raw, err := k.db.Get(votingBalanceKey(asset))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	balance := new(uint256.Int)
	if err := rlp.DecodeBytes(raw, balance); err != nil {
		return nil, fmt.Errorf("state: decode voting balance: %w", err)
	}
	return balance, nil
}

func (k *Keeper) SetVotingRewardBalance(asset string, amount *uint256.Int) error {
	encoded, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return err
	}
	return k.db.Put(votingBalanceKey(asset), encoded)
}

func (k *Keeper) CurrentVote() (string, error) {
	raw, err := k.db.Get(keyVote)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (k *Keeper) SetVote(vote string) error {
	if vote == "" {
		return k.db.Delete(keyVote)
	}
	return k.db.Put(keyVote, []byte(vote))
}

// AppendEvent collects an event emitted by the current operation.
func (k *Keeper) AppendEvent(evt *types.Event) {
	if evt == nil {
		return
	}
	k.events = append(k.events, evt)
}

// DrainEvents returns the events collected since the last drain.
func (k *Keeper) DrainEvents() []*types.Event {
	events := k.events
	k.events = nil
	return events
}

// --- account ledger / asset transfer collaborator ---

func (k *Keeper) GetAccount(addr crypto.Address) (*types.Account, error) {
	raw, err := k.db.Get(accountKey(addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return types.NewAccount(), nil
	}
	if err != nil {
		return nil, err
	}
	stored := new(storedAccount)
	if err := rlp.DecodeBytes(raw, stored); err != nil {
		return nil, fmt.Errorf("state: decode account: %w", err)
	}
	account := types.NewAccount()
	for _, balance := range stored.Balances {
		account.SetBalance(balance.Asset, balance.Amount)
	}
	return account, nil
}

func (k *Keeper) PutAccount(addr crypto.Address, account *types.Account) error {
	stored := &storedAccount{}
	assets := make([]string, 0, len(account.Balances))
	for asset := range account.Balances {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	for _, asset := range assets {
		stored.Balances = append(stored.Balances, storedBalance{Asset: asset, Amount: account.Balances[asset]})
	}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return fmt.Errorf("state: encode account: %w", err)
	}
	return k.db.Put(accountKey(addr), encoded)
}

// Credit adds amount of asset to addr's account. The dispatch layer credits
// the module account with every payable operation's attached value once the
// engine accepts the operation.
func (k *Keeper) Credit(addr crypto.Address, asset string, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	account, err := k.GetAccount(addr)
	if err != nil {
		return err
	}
	updated := new(uint256.Int).Add(account.Balance(asset), amount)
	account.SetBalance(asset, updated)
	return k.PutAccount(addr, account)
}

// Transfer debits the module account and credits the recipient. Both writes
// happen only after the balance check so a failed transfer leaves no trace.
func (k *Keeper) Transfer(to crypto.Address, asset string, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return nil
	}
	moduleAccount, err := k.GetAccount(k.moduleAddr)
	if err != nil {
		return err
	}
	held := moduleAccount.Balance(asset)
	if held.Lt(amount) {
		return ErrInsufficientModuleBalance
	}
	recipient, err := k.GetAccount(to)
	if err != nil {
		return err
	}
	moduleAccount.SetBalance(asset, new(uint256.Int).Sub(held, amount))
	recipient.SetBalance(asset, new(uint256.Int).Add(recipient.Balance(asset), amount))
	if err := k.PutAccount(k.moduleAddr, moduleAccount); err != nil {
		return err
	}
	return k.PutAccount(to, recipient)
}
