package imap

import "github.com/bscott/mailsync/internal/model"

// Range is an inclusive window of sequence numbers.
type Range struct {
	Start uint32
	End   uint32
}

func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return int(r.End-r.Start) + 1
}

// ComputeRange maps a newest-first page onto sequence numbers. Page 1 is
// the highest sequence numbers. ok is false when the page holds nothing.
func ComputeRange(total uint32, page, limit int) (r Range, ok bool) {
	if total == 0 || page < 1 || limit < 1 {
		return Range{}, false
	}

	offset := int64(page-1) * int64(limit)
	start := int64(total) - offset - int64(limit) + 1
	if start < 1 {
		start = 1
	}
	end := int64(total) - offset
	if end > int64(total) {
		end = int64(total)
	}
	if start > end {
		return Range{}, false
	}
	return Range{Start: uint32(start), End: uint32(end)}, true
}

func NewPagination(page, limit int, total uint32) model.Pagination {
	return model.Pagination{
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasNext: int64(page)*int64(limit) < int64(total),
		HasPrev: page > 1,
	}
}
