package plot

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/fumin/schrodinger"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Table lists the energies of states, next to exact values where exact has them.
func Table(states []schrodinger.State, exact []float64) string {
	rows := make([][]string, 0, len(states))
	for i, s := range states {
		row := []string{fmt.Sprintf("E[%d]", i+1), fmt.Sprintf("%.4f", s.Energy), "", ""}
		if i < len(exact) {
			row[2] = fmt.Sprintf("%.4f", exact[i])
			row[3] = fmt.Sprintf("%.2e", s.Energy-exact[i])
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("level", "energy", "exact", "error").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return dimStyle
			}
			return cellStyle
		})
	return t.String()
}

// Overlaps renders a matrix of inner products <psi_i|psi_j>.
func Overlaps(m [][]float64) string {
	headers := make([]string, 0, len(m)+1)
	headers = append(headers, "")
	rows := make([][]string, 0, len(m))
	for i, mi := range m {
		headers = append(headers, fmt.Sprintf("%d", i))
		row := []string{fmt.Sprintf("%d", i)}
		for _, v := range mi {
			row = append(row, fmt.Sprintf("%.5f", v))
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow, col == 0:
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}
