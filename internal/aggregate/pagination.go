package aggregate

// Locate translates a 1-based global index into a 1-based page and a
// 0-based offset within that page.
func Locate(index, pageSize int) (page, offset int) {
	if index < 1 || pageSize < 1 {
		return 0, 0
	}
	return (index-1)/pageSize + 1, (index - 1) % pageSize
}

// PageBounds returns the half-open slice bounds of page within a list of
// length total. start == end when the page is empty.
func PageBounds(page, pageSize, total int) (start, end int) {
	if page < 1 || pageSize < 1 {
		return 0, 0
	}
	start = (page - 1) * pageSize
	if start > total {
		start = total
	}
	end = start + pageSize
	if end > total {
		end = total
	}
	return start, end
}

// LastPage returns the number of pages needed for total items.
func LastPage(total, pageSize int) int {
	if pageSize < 1 || total < 1 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
