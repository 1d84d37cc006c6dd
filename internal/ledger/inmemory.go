package ledger

import (
	"context"
	"sync"
)

type inMemoryLedger struct {
	mu           sync.RWMutex
	balances     map[string]int64
	transactions map[string]TransactionResult
	postings     map[string]PostingResult
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests
// and local development.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		balances:     make(map[string]int64),
		transactions: make(map[string]TransactionResult),
		postings:     make(map[string]PostingResult),
	}
}

func (l *inMemoryLedger) EnsureAccount(_ context.Context, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[code]; !exists {
		l.balances[code] = 0
	}
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, code string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	balance, exists := l.balances[code]
	if !exists {
		return 0, ErrAccountNotFound
	}
	return balance, nil
}

func (l *inMemoryLedger) Transfer(_ context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := txKey(kind, clientTxID)
	if res, exists := l.transactions[key]; exists {
		return res, ErrDuplicateTransaction
	}

	fromBalance, ok := l.balances[fromCode]
	if !ok {
		return TransactionResult{}, ErrAccountNotFound
	}
	toBalance, ok := l.balances[toCode]
	if !ok {
		return TransactionResult{}, ErrAccountNotFound
	}

	if fromBalance < amount {
		return TransactionResult{}, ErrInsufficientFunds
	}

	fromBalance -= amount
	toBalance += amount

	l.balances[fromCode] = fromBalance
	l.balances[toCode] = toBalance

	res := TransactionResult{
		TransactionID: key,
		FromBalance:   fromBalance,
		ToBalance:     toBalance,
	}

	l.transactions[key] = res
	return res, nil
}

func (l *inMemoryLedger) Posted(_ context.Context, kind, clientTxID string) (PostingResult, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	key := txKey(kind, clientTxID)
	if res, ok := l.postings[key]; ok {
		return PostingResult{TransactionID: res.TransactionID, Status: res.Status}, true, nil
	}
	if res, ok := l.transactions[key]; ok {
		return PostingResult{TransactionID: res.TransactionID, Status: StatusCompleted}, true, nil
	}
	return PostingResult{}, false, nil
}

func (l *inMemoryLedger) Post(_ context.Context, p Posting) (PostingResult, error) {
	if p.Amount <= 0 {
		return PostingResult{}, ErrInvalidAmount
	}
	if p.Status == "" {
		p.Status = StatusCompleted
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := txKey(p.Kind, p.ClientTxID)
	if res, exists := l.postings[key]; exists {
		return res, ErrDuplicateTransaction
	}

	balance, ok := l.balances[p.Account]
	if !ok {
		return PostingResult{}, ErrAccountNotFound
	}
	if _, ok := l.balances[p.Source]; !ok {
		return PostingResult{}, ErrAccountNotFound
	}

	balance += p.Amount
	l.balances[p.Account] = balance
	l.balances[p.Source] -= p.Amount

	res := PostingResult{
		TransactionID: key,
		Balance:       balance,
		Status:        p.Status,
	}
	l.postings[key] = res
	return res, nil
}
