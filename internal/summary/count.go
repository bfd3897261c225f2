// Package summary turns the report listing into a status histogram and
// renders it as a PNG bar chart.
package summary

import (
	"pengaduan/internal/model"
)

// StatusCount is the number of reports at one status.
type StatusCount struct {
	Status model.Status `json:"status"`
	Count  int          `json:"count"`
}

// Counts holds one entry per workflow status, in workflow order.
type Counts []StatusCount

// Count builds the histogram of reports. Reports without an action record or
// with an unknown status count as the first status.
func Count(reports []model.Report) Counts {
	counts := make(Counts, len(model.Statuses))
	for i, status := range model.Statuses {
		counts[i].Status = status
	}
	for i := range reports {
		counts[model.IndexOf(reports[i].Status())].Count++
	}
	return counts
}

// Total returns the number of counted reports.
func (c Counts) Total() int {
	n := 0
	for _, sc := range c {
		n += sc.Count
	}
	return n
}

// Of returns the count of status.
func (c Counts) Of(status model.Status) int {
	for _, sc := range c {
		if sc.Status == status {
			return sc.Count
		}
	}
	return 0
}

func (c Counts) max() int {
	m := 0
	for _, sc := range c {
		if sc.Count > m {
			m = sc.Count
		}
	}
	return m
}
