// Package term is a terminal implementation of form.UI.
package term

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	alertStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	navigateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	fieldStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
)

// UI keeps the form fields in memory and prints alerts and navigations.
type UI struct {
	out io.Writer

	mu          sync.Mutex
	fields      map[string]string
	handlers    map[string][]func()
	alerts      []string
	navigations []string
}

func New(out io.Writer) *UI {
	return &UI{
		out:      out,
		fields:   make(map[string]string),
		handlers: make(map[string][]func()),
	}
}

func (u *UI) SetValue(fieldID, value string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.fields[fieldID] = value
}

func (u *UI) Value(fieldID string) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.fields[fieldID]
}

func (u *UI) OnClick(elementID string, handler func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.handlers[elementID] = append(u.handlers[elementID], handler)
}

// Click runs every handler registered for elementID, in registration order.
// It reports whether any handler was registered.
func (u *UI) Click(elementID string) bool {
	u.mu.Lock()
	handlers := append([]func(){}, u.handlers[elementID]...)
	u.mu.Unlock()

	for _, h := range handlers {
		h()
	}
	return len(handlers) > 0
}

func (u *UI) Alert(message string) {
	u.mu.Lock()
	u.alerts = append(u.alerts, message)
	u.mu.Unlock()

	fmt.Fprintln(u.out, alertStyle.Render(message))
}

func (u *UI) Navigate(path string) {
	u.mu.Lock()
	u.navigations = append(u.navigations, path)
	u.mu.Unlock()

	fmt.Fprintln(u.out, navigateStyle.Render("→ "+path))
}

func (u *UI) Alerts() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.alerts...)
}

func (u *UI) Navigations() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.navigations...)
}

// Navigated reports whether the last action ended on another page, which the
// controller only does on success.
func (u *UI) Navigated() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.navigations) > 0
}

// PrintFields writes the current form values, one per line.
func (u *UI) PrintFields(ids ...string) {
	for _, id := range ids {
		fmt.Fprintf(u.out, "%s %s\n", fieldStyle.Render(id+":"), u.Value(id))
	}
}
