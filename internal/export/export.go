package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/guregu/null/v6"

	"github.com/econwatch/recession-radar/internal/cache"
	"github.com/econwatch/recession-radar/internal/indicator"
	"github.com/econwatch/recession-radar/internal/normalize"
)

const dateLayout = "2006-01-02"

// WriteCSV writes the cached series as one table: a date column plus one
// column per indicator, in registry order, aligned to the target
// frequency. Absent values render as empty cells. Indicators without a
// cache entry get an all-empty column so the header stays stable.
func WriteCSV(w io.Writer, reg *indicator.Registry, entries map[string]*cache.Entry, target indicator.Frequency) error {
	seriesByID := make(map[string]*indicator.Series, len(entries))
	for id, entry := range entries {
		seriesByID[id] = entry.Series
	}

	aligned, err := normalize.AlignAll(seriesByID, reg, target)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	byDate := make(map[time.Time]map[string]null.Float)
	for id, s := range aligned {
		for _, obs := range s.Observations {
			row, ok := byDate[obs.Date]
			if !ok {
				row = make(map[string]null.Float)
				byDate[obs.Date] = row
			}
			row[id] = obs.Value
		}
	}

	dates := make([]time.Time, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	metas := reg.All()
	header := make([]string, 0, len(metas)+1)
	header = append(header, "date")
	for _, meta := range metas {
		header = append(header, meta.ID)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	record := make([]string, len(header))
	for _, date := range dates {
		record[0] = date.Format(dateLayout)
		for i, meta := range metas {
			v := byDate[date][meta.ID]
			if v.Valid {
				record[i+1] = strconv.FormatFloat(v.Float64, 'f', -1, 64)
			} else {
				record[i+1] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
