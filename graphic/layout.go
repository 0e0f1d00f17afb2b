package graphic

import "math"

const (
	// BarRune is a full cell.
	BarRune rune = '█'

	// PeakRune marks a peak.
	PeakRune rune = '▔'

	// NumRunes is the number of eighth steps in one cell.
	NumRunes = 8
)

// partials are the lower eighth blocks, index is the number of eighths.
var partials = [NumRunes]rune{
	' ',
	'▁',
	'▂',
	'▃',
	'▄',
	'▅',
	'▆',
	'▇',
}

// stopAndTop splits value in [0, 1] over rows cells. full is the number of
// whole cells and top the rune for the partial cell above them, ' ' when
// there is none.
func stopAndTop(value float64, rows int) (full int, top rune) {
	if rows <= 0 || !(value > 0) {
		return 0, partials[0]
	}

	if value >= 1 {
		return rows, partials[0]
	}

	eighths := int(value * float64(rows*NumRunes))

	return eighths / NumRunes, partials[eighths%NumRunes]
}

// peakRow returns how many cells from the bottom the peak marker sits, or
// -1 when there is no room for it above the bar.
func peakRow(peak float64, full int, top rune, rows int) int {
	if rows <= 0 || !(peak > 0) {
		return -1
	}

	row := int(math.Min(peak, 1) * float64(rows))
	if row >= rows {
		row = rows - 1
	}

	used := full
	if top != partials[0] {
		used++
	}

	if row < used {
		return -1
	}

	return row
}

// fit returns how many bars of barWidth with spaceWidth gaps fit in width,
// and the column the first bar starts at so the set is centred.
func fit(width, barWidth, spaceWidth int) (count, offset int) {
	if barWidth < 1 || width < barWidth {
		return 0, 0
	}

	step := barWidth + spaceWidth
	count = (width + spaceWidth) / step

	used := count*step - spaceWidth
	return count, (width - used) / 2
}
