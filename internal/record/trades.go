package record

import (
	"strconv"
	"strings"

	"github.com/nssanta/bybitarc/internal/errors"
)

// Trade is the flattened projection of one tick from the public trade
// dump CSV.
type Trade struct {
	Timestamp int64 // trade time, ms
	Symbol    string
	Side      string // "Buy" or "Sell"
	Size      float64
	Price     float64
	Direction string // tick direction, when present
	TradeID   string

	// Notional columns, present in the full dump header.
	GrossValue      float64
	HomeNotional    float64
	ForeignNotional float64
}

// TradeParser maps CSV rows to Trade values using the column order
// declared in the file header. The public dumps have varied their header
// over time, so columns are resolved by name, not position.
type TradeParser struct {
	timestamp       int
	symbol          int
	side            int
	size            int
	price           int
	direction       int
	tradeID         int
	grossValue      int
	homeNotional    int
	foreignNotional int
}

// NewTradeParser resolves column indices from the header row. Timestamp,
// side, size and price are required; the rest are optional.
func NewTradeParser(header []string) (*TradeParser, error) {
	p := &TradeParser{
		timestamp: -1, symbol: -1, side: -1, size: -1,
		price: -1, direction: -1, tradeID: -1,
		grossValue: -1, homeNotional: -1, foreignNotional: -1,
	}

	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "timestamp":
			p.timestamp = i
		case "symbol":
			p.symbol = i
		case "side":
			p.side = i
		case "size", "volume":
			p.size = i
		case "price":
			p.price = i
		case "tickdirection":
			p.direction = i
		case "trdmatchid", "id":
			p.tradeID = i
		case "grossvalue":
			p.grossValue = i
		case "homenotional":
			p.homeNotional = i
		case "foreignnotional":
			p.foreignNotional = i
		}
	}

	if p.timestamp < 0 || p.side < 0 || p.size < 0 || p.price < 0 {
		return nil, errors.New("trade header missing required columns")
	}
	return p, nil
}

// Parse converts one CSV row. Rows with missing or non-numeric required
// fields are rejected; the caller counts and skips them.
func (p *TradeParser) Parse(row []string) (Trade, error) {
	get := func(idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	// Optional numeric columns: absent or empty is zero, a present value
	// must still parse.
	optFloat := func(idx int, name string) (float64, error) {
		s := get(idx)
		if s == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errors.Wrap(err, "parse "+name)
		}
		return v, nil
	}

	ts, err := parseTimestampMs(get(p.timestamp))
	if err != nil {
		return Trade{}, err
	}

	size, err := strconv.ParseFloat(get(p.size), 64)
	if err != nil {
		return Trade{}, errors.Wrap(err, "parse size")
	}

	price, err := strconv.ParseFloat(get(p.price), 64)
	if err != nil {
		return Trade{}, errors.Wrap(err, "parse price")
	}

	side := get(p.side)
	if side == "" {
		return Trade{}, errors.New("empty side")
	}

	gross, err := optFloat(p.grossValue, "gross value")
	if err != nil {
		return Trade{}, err
	}
	home, err := optFloat(p.homeNotional, "home notional")
	if err != nil {
		return Trade{}, err
	}
	foreign, err := optFloat(p.foreignNotional, "foreign notional")
	if err != nil {
		return Trade{}, err
	}

	return Trade{
		Timestamp:       ts,
		Symbol:          get(p.symbol),
		Side:            side,
		Size:            size,
		Price:           price,
		Direction:       get(p.direction),
		TradeID:         get(p.tradeID),
		GrossValue:      gross,
		HomeNotional:    home,
		ForeignNotional: foreign,
	}, nil
}

// parseTimestampMs accepts both integer millisecond and fractional second
// timestamps, which the dumps have used at different times.
func parseTimestampMs(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("empty timestamp")
	}
	if !strings.Contains(s, ".") {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, errors.Wrap(err, "parse timestamp")
		}
		// Second-resolution stamps fit in 10 digits until 2286.
		if v < 1e12 {
			v *= 1000
		}
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse timestamp")
	}
	return int64(f * 1000), nil
}
