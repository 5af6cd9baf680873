package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topmovers.com/pkg/config"
	"topmovers.com/pkg/market"
	"topmovers.com/pkg/topstocks"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestPrintTops(t *testing.T) {
	var buf bytes.Buffer
	printTops(&buf,
		[]topstocks.InstrumentView{{ID: 34, Open: 634.12, Last: 697.20, Change: 995}},
		[]topstocks.InstrumentView{
			{ID: 523, Open: 324.90, Last: 287.2, Change: -1160},
			{ID: 1093, Open: 83.55, Last: 76.5, Change: -844},
		},
		true, false)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Gainers*"))
	assert.Contains(t, lines[0], "Losers")
	assert.NotContains(t, lines[0], "Losers*")
	assert.Contains(t, lines[1], "    34    634.12    697.20   9.95%")
	assert.Contains(t, lines[1], "   523    324.90    287.20 -11.60%")
	assert.Equal(t, strings.Repeat(" ", columnWidth), lines[2][:columnWidth])
}

func TestReplay_Demo(t *testing.T) {
	out := execute(t, "replay", "testdata/demo.csv", "--depth", "4")

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	table := lines[len(lines)-5:]

	wantGainers := []string{"34", "235", "9722", "482"}
	wantLosers := []string{"523", "1093", "618", "208"}
	for i := range 4 {
		row := table[i+1]
		assert.Equal(t, wantGainers[i], strings.Fields(row[:columnWidth])[0])
		assert.Equal(t, wantLosers[i], strings.Fields(row[columnWidth:])[0])
	}
}

func TestSimulate_Random(t *testing.T) {
	out := execute(t, "simulate", "--quotes", "20000", "--stocks", "500",
		"--depth", "5", "--check-every", "1000", "--seed", "7", "--index", "btree")
	assert.Contains(t, out, "Gainers")
	assert.Contains(t, out, "Losers")
}

func TestSimulate_GBMWithoutStocks(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		simulateOpts.gbm = false
		simulateOpts.stocks = 10000
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"simulate", "--gbm", "--stocks", "0", "--duration", "10ms"})
	assert.ErrorIs(t, rootCmd.Execute(), market.ErrNoInstruments)
}

func TestNewTops_Override(t *testing.T) {
	cfg := config.EngineConfig{Depth: 10, MaxID: 100, Index: "skiplist"}

	tops, err := newTops(cfg, 3, "btree")
	require.NoError(t, err)
	assert.Equal(t, 3, tops.GetDepth())

	tops, err = newTops(cfg, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 10, tops.GetDepth())

	_, err = newTops(cfg, 0, "avl")
	assert.ErrorIs(t, err, topstocks.ErrUnknownIndex)
}
