package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"

	"topmovers.com/pkg/feed"
)

// ReadQuotes 逐行读取 "id,price" 格式的报价
//
//	# 注释行和空行会被跳过
//	34,697.20
//	235,7.69
//
// 解析失败时产出带行号的错误，调用方决定是否继续
func ReadQuotes(r io.Reader) iter.Seq2[feed.Quote, error] {
	return func(yield func(feed.Quote, error) bool) {
		cr := csv.NewReader(r)
		cr.Comment = '#'
		cr.FieldsPerRecord = 2
		cr.TrimLeadingSpace = true
		cr.ReuseRecord = true

		for {
			record, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				// csv.ParseError 自带行号
				if !yield(feed.Quote{}, fmt.Errorf("read quotes: %w", err)) {
					return
				}
				var pe *csv.ParseError
				if errors.As(err, &pe) && errors.Is(pe.Err, csv.ErrFieldCount) {
					continue
				}
				return
			}

			line, _ := cr.FieldPos(0)
			q, err := parseQuote(record)
			if err != nil {
				err = fmt.Errorf("read quotes: line %d: %w", line, err)
			}
			if !yield(q, err) {
				return
			}
		}
	}
}

func parseQuote(record []string) (feed.Quote, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(record[0]), 10, 64)
	if err != nil {
		return feed.Quote{}, fmt.Errorf("bad id %q", record[0])
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return feed.Quote{}, fmt.Errorf("bad price %q", record[1])
	}
	return feed.Quote{ID: id, Price: price}, nil
}
