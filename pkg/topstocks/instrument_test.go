package topstocks

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeChange(t *testing.T) {
	tests := []struct {
		name  string
		open  float64
		price float64
		want  int64
	}{
		{"up 10%", 100, 110, 1000},
		{"down 10%", 100, 90, -1000},
		{"flat", 100, 100, 0},
		{"round up", 634.12, 697.20, 995},
		{"round down", 23.87, 25.60, 725},
		{"small price", 0.54, 0.55, 185},
		{"negative round away from zero", 1.35, 1.28, -519},
		{"negative round toward zero", 5.66, 5.55, -194},
		{"negative large", 324.90, 287.2, -1160},
		{"price to zero", 100, 0, -10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeChange(tt.open, tt.price))
		})
	}
}

func TestInstrumentView(t *testing.T) {
	v := InstrumentView{ID: 34, Open: 634.12, Last: 697.20, Change: 995}

	assert.InDelta(t, 9.95, v.ChangePercent(), 1e-9)
	assert.True(t, v.IsGainer())
	assert.False(t, v.IsLoser())
	assert.Equal(t, "    34    634.12    697.20   9.95%", v.String())

	v.Change = -12
	assert.True(t, v.IsLoser())
	assert.Equal(t, "    34    634.12    697.20  -0.12%", v.String())
}

func TestInstrument_Open(t *testing.T) {
	s := Instrument{ID: 7, rank: NoHandle}
	assert.False(t, s.initialized())

	s.open(12.5)
	assert.True(t, s.initialized())
	assert.Equal(t, 12.5, s.Open)
	assert.Equal(t, 12.5, s.Last)
	assert.Equal(t, int64(0), s.Change)
	assert.False(t, s.Ranked())
}
