package panel

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/stitcher/internal/selection"
)

const maxRows = 15

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%s)", m.page.Title, m.page.Host)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d images, %d shown (%s), %d selected, %s",
		len(m.page.Images), len(m.visible), m.filterLabel(), len(m.Chosen()), m.orientation)))
	b.WriteString("\n\n")

	if len(m.visible) == 0 {
		b.WriteString(mutedStyle.Render("No images match the current filter"))
		b.WriteString("\n")
	}

	start := 0
	if m.cursor >= maxRows {
		start = m.cursor - maxRows + 1
	}
	end := min(start+maxRows, len(m.visible))
	for i := start; i < end; i++ {
		c := m.visible[i]
		box := "[ ]"
		if m.set.Contains(c.Src) {
			box = checkedStyle.Render("[x]")
		}
		line := fmt.Sprintf("%s %4dx%-4d %7s  %s", box, c.Width, c.Height, selection.FormatBytes(c.Size), truncate(c.Src, m.width-30))
		if i == m.cursor {
			line = cursorStyle.Render(">") + " " + line
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.editing {
		b.WriteString("\n")
		b.WriteString(boxStyle.Render(m.filter.View()))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		if m.statusErr {
			b.WriteString(statusErrorStyle.Render(m.status))
		} else {
			b.WriteString(statusStyle.Render(m.status))
		}
		b.WriteString("\n")
	}

	help := "space select  a all  h/v orientation  f size filter  r refresh  m stitch  d download  q quit"
	if !m.enabled {
		help = "working..."
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(help))
	return b.String()
}

func truncate(s string, n int) string {
	if n < 10 {
		n = 10
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
