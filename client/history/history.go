package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/drakos74/level-trader/internal/model"
	ctime "github.com/drakos74/level-trader/internal/time"
	"github.com/rs/zerolog/log"
)

const timeLayout = "2006-01-02 15:04:05"

var timeColumns = []string{"timestamp", "open_time", "time"}

// Load reads the bars of a csv file.
func Load(path string) (model.Klines, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open history file '%s': %w", path, err)
	}
	defer f.Close()
	kk, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("could not read history file '%s': %w", path, err)
	}
	log.Info().Str("file", path).Int("bars", len(kk)).Msg("loaded history")
	return kk, nil
}

// Read parses csv bars with a header row.
// The time is epoch milliseconds or a UTC date time. Malformed rows are skipped.
func Read(r io.Reader) (model.Klines, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("could not read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[strings.ToLower(strings.TrimSpace(h))] = i
	}
	timeIndex := -1
	for _, c := range timeColumns {
		if i, ok := columns[c]; ok {
			timeIndex = i
			break
		}
	}
	if timeIndex < 0 {
		return nil, fmt.Errorf("no time column in %v", header)
	}
	indexes := make([]int, 0, 5)
	for _, c := range []string{"open", "high", "low", "close", "volume"} {
		i, ok := columns[c]
		if !ok {
			return nil, fmt.Errorf("no '%s' column in %v", c, header)
		}
		indexes = append(indexes, i)
	}

	kk := make(model.Klines, 0)
	skipped := 0
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			skipped++
			log.Debug().Err(err).Int("line", line).Msg("skipping row")
			continue
		}
		k, err := parse(record, timeIndex, indexes)
		if err != nil {
			skipped++
			log.Debug().Err(err).Int("line", line).Msg("skipping row")
			continue
		}
		if last, ok := kk.Last(); ok && k.Time <= last.Time {
			skipped++
			log.Debug().Int("line", line).Int64("time", k.Time).Msg("skipping out of order row")
			continue
		}
		kk = append(kk, k)
	}
	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Int("bars", len(kk)).Msg("skipped malformed rows")
	}
	return kk, nil
}

func parse(record []string, timeIndex int, indexes []int) (model.Kline, error) {
	var k model.Kline
	if timeIndex >= len(record) {
		return k, fmt.Errorf("missing time")
	}
	t, err := parseTime(strings.TrimSpace(record[timeIndex]))
	if err != nil {
		return k, err
	}
	values := make([]float64, len(indexes))
	for i, index := range indexes {
		if index >= len(record) {
			return k, fmt.Errorf("missing column %d", index)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[index]), 64)
		if err != nil {
			return k, fmt.Errorf("could not parse value: %w", err)
		}
		values[i] = v
	}
	k = model.Kline{
		Time:   t,
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}
	return k, k.Validate()
}

func parseTime(s string) (int64, error) {
	if strings.Contains(s, "-") {
		t, err := time.Parse(timeLayout, s)
		if err != nil {
			return 0, fmt.Errorf("could not parse time: %w", err)
		}
		return ctime.ToMilli(t), nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse timestamp: %w", err)
	}
	return ms, nil
}
