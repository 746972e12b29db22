package pdfdoc

import (
	"math"
	"sort"
	"strings"

	rpdf "rsc.io/pdf"
)

// run is one positioned piece of text on a page.
type run struct {
	X, Y, W, Size float64
	S             string
}

func runsOf(texts []rpdf.Text) []run {
	out := make([]run, 0, len(texts))
	for _, t := range texts {
		out = append(out, run{X: t.X, Y: t.Y, W: t.W, Size: t.FontSize, S: t.S})
	}
	return out
}

// layout rebuilds reading-order lines from positioned runs: runs sharing a
// baseline (within half a font size) form a line, lines go top to bottom, and
// a visible horizontal gap between runs becomes a space.
func layout(runs []run) string {
	if len(runs) == 0 {
		return ""
	}
	rs := append([]run(nil), runs...)
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Y > rs[j].Y })

	var lines [][]run
	var lineY float64
	for _, r := range rs {
		tol := math.Max(r.Size, 1) / 2
		if len(lines) == 0 || lineY-r.Y > tol {
			lines = append(lines, []run{r})
			lineY = r.Y
			continue
		}
		lines[len(lines)-1] = append(lines[len(lines)-1], r)
	}

	var b strings.Builder
	for n, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].X < line[j].X })
		var lb strings.Builder
		for i, r := range line {
			if i > 0 {
				prev := line[i-1]
				gap := r.X - (prev.X + prev.W)
				if gap > math.Max(r.Size, 1)*0.2 && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(r.S, " ") {
					lb.WriteByte(' ')
				}
			}
			lb.WriteString(r.S)
		}
		if n > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.TrimRight(lb.String(), " "))
	}
	return b.String()
}
