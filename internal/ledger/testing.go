package ledger

// openingAccountCode absorbs seeded balances so an in-memory ledger still
// sums to zero.
const openingAccountCode = "opening:seed"

// SeedBalance sets an in-memory account to amount and books the difference
// against an opening-balance account. Other backends are left untouched:
// fund them through Post.
func SeedBalance(l Ledger, code string, amount int64) {
	mem, ok := l.(*inMemoryLedger)
	if !ok {
		return
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	delta := amount - mem.balances[code]
	mem.balances[code] = amount
	mem.balances[openingAccountCode] -= delta
}
