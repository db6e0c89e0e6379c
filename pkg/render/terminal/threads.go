package terminal

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rhuss/docchat/pkg/storage"
)

const timeLayout = "2006-01-02 15:04"

// RenderThreads prints the locally recorded threads as a table, most
// recently used first.
func (r *Renderer) RenderThreads(w io.Writer, threads []storage.ThreadSummary) {
	fmt.Fprintln(w, styleTitle.Render("Threads")+"  "+styleMeta.Render(pluralize(len(threads), "thread")))
	if len(threads) == 0 {
		fmt.Fprintln(w, styleHint.Render("No recorded threads."))
		return
	}

	rows := make([][]string, 0, len(threads))
	for _, th := range threads {
		rows = append(rows, []string{th.ThreadID, strconv.Itoa(th.Turns), th.UpdatedAt.Local().Format(timeLayout)})
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("THREAD", "TURNS", "UPDATED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleMeta.Bold(true).PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})
	fmt.Fprintln(w, t.Render())
}
