package record

import "testing"

func TestNewTradeParser_ResolvesColumns(t *testing.T) {
	p, err := NewTradeParser([]string{"timestamp", "symbol", "side", "size", "price", "tickDirection", "trdMatchID"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr, err := p.Parse([]string{"1714521600000", "BTCUSDT", "Buy", "0.05", "62000.1", "PlusTick", "abc-123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tr.Timestamp != 1714521600000 {
		t.Errorf("timestamp: expected 1714521600000, got %d", tr.Timestamp)
	}
	if tr.Symbol != "BTCUSDT" || tr.Side != "Buy" {
		t.Errorf("symbol/side: got %s/%s", tr.Symbol, tr.Side)
	}
	if tr.Size != 0.05 || tr.Price != 62000.1 {
		t.Errorf("size/price: got %v/%v", tr.Size, tr.Price)
	}
	if tr.Direction != "PlusTick" || tr.TradeID != "abc-123" {
		t.Errorf("direction/id: got %s/%s", tr.Direction, tr.TradeID)
	}
}

func TestNewTradeParser_FullHeader(t *testing.T) {
	header := []string{
		"timestamp", "symbol", "side", "size", "price",
		"tickDirection", "trdMatchID", "grossValue", "homeNotional", "foreignNotional",
	}
	p, err := NewTradeParser(header)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr, err := p.Parse([]string{
		"1714521600000", "BTCUSDT", "Sell", "0.02", "62000.5",
		"MinusTick", "id-7", "1240.01", "0.02", "1240.01",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tr.GrossValue != 1240.01 {
		t.Errorf("gross value: expected 1240.01, got %v", tr.GrossValue)
	}
	if tr.HomeNotional != 0.02 {
		t.Errorf("home notional: expected 0.02, got %v", tr.HomeNotional)
	}
	if tr.ForeignNotional != 1240.01 {
		t.Errorf("foreign notional: expected 1240.01, got %v", tr.ForeignNotional)
	}

	// Malformed optional numerics reject the row like required ones do.
	_, err = p.Parse([]string{
		"1714521600000", "BTCUSDT", "Sell", "0.02", "62000.5",
		"MinusTick", "id-7", "lots", "0.02", "1240.01",
	})
	if err == nil {
		t.Error("expected error for non-numeric gross value")
	}
}

func TestNewTradeParser_VolumeAlias(t *testing.T) {
	p, err := NewTradeParser([]string{"timestamp", "price", "volume", "side"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tr, err := p.Parse([]string{"1714521600.5", "62000", "1.5", "Sell"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Size != 1.5 {
		t.Errorf("size: expected 1.5, got %v", tr.Size)
	}
	if tr.Timestamp != 1714521600500 {
		t.Errorf("timestamp: expected 1714521600500, got %d", tr.Timestamp)
	}
	if tr.GrossValue != 0 || tr.HomeNotional != 0 || tr.ForeignNotional != 0 {
		t.Errorf("absent notional columns must stay zero: %+v", tr)
	}
}

func TestNewTradeParser_MissingColumns(t *testing.T) {
	if _, err := NewTradeParser([]string{"timestamp", "side", "price"}); err == nil {
		t.Error("expected error for header without size column")
	}
	if _, err := NewTradeParser(nil); err == nil {
		t.Error("expected error for empty header")
	}
}

func TestTradeParser_RejectsBadRows(t *testing.T) {
	p, err := NewTradeParser([]string{"timestamp", "side", "size", "price"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		row  []string
	}{
		{"bad timestamp", []string{"yesterday", "Buy", "1", "100"}},
		{"bad size", []string{"1714521600", "Buy", "lots", "100"}},
		{"bad price", []string{"1714521600", "Buy", "1", "cheap"}},
		{"empty side", []string{"1714521600", "", "1", "100"}},
		{"short row", []string{"1714521600", "Buy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Parse(tt.row); err == nil {
				t.Errorf("expected error for row %v", tt.row)
			}
		})
	}
}

func TestParseTimestampMs(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1714521600000", 1714521600000}, // already ms
		{"1714521600", 1714521600000},    // seconds
		{"1714521600.25", 1714521600250}, // fractional seconds
	}

	for _, tt := range tests {
		got, err := parseTimestampMs(tt.in)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: expected %d, got %d", tt.in, tt.want, got)
		}
	}

	if _, err := parseTimestampMs(""); err == nil {
		t.Error("expected error for empty timestamp")
	}
}
