package commands

import (
	"fmt"
	"io"

	"topmovers.com/pkg/topstocks"
)

const columnWidth = 40

// printTops 左右两栏输出涨幅榜和跌幅榜，有变化的一侧标 *
func printTops(w io.Writer, gainers, losers []topstocks.InstrumentView, gainersChanged, losersChanged bool) {
	fmt.Fprintf(w, "%-*s%s\n", columnWidth, title("Gainers", gainersChanged), title("Losers", losersChanged))
	for i := range max(len(gainers), len(losers)) {
		var left, right string
		if i < len(gainers) {
			left = gainers[i].String()
		}
		if i < len(losers) {
			right = losers[i].String()
		}
		fmt.Fprintf(w, "%-*s%s\n", columnWidth, left, right)
	}
}

func title(name string, changed bool) string {
	if changed {
		return name + "*"
	}
	return name
}
