package engine

// Tape is the append-only log of executed trades. Only the matching engine
// appends to it; readers may copy it or drain it between polls.
type Tape struct {
	trades []Trade
}

func NewTape() *Tape {
	return &Tape{trades: make([]Trade, 0, 64)}
}

func (t *Tape) record(trade Trade) {
	t.trades = append(t.trades, trade)
}

func (t *Tape) Len() int {
	return len(t.trades)
}

// Trades returns a copy of the trades currently on the tape.
func (t *Tape) Trades() []Trade {
	out := make([]Trade, len(t.trades))
	copy(out, t.trades)
	return out
}

// Drain returns the trades currently on the tape and clears it.
func (t *Tape) Drain() []Trade {
	out := t.trades
	t.trades = make([]Trade, 0, cap(out))
	return out
}
