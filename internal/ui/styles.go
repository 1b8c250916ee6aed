package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Color palette.
var (
	ColorSuccess   = lipgloss.Color("#00D26A") // success, confirmed
	ColorWarning   = lipgloss.Color("#FFB800") // pending, warning
	ColorError     = lipgloss.Color("#FF4444") // error, reverted
	ColorAddress   = lipgloss.Color("#00B4D8") // addresses, hashes
	ColorValue     = lipgloss.Color("#FFFFFF") // values
	ColorMeta      = lipgloss.Color("#555555") // metadata
	ColorBorder    = lipgloss.Color("#1E3A5F") // UI chrome
	ColorContract  = lipgloss.Color("#9B5DE5") // contract names
	ColorHighlight = lipgloss.Color("#F15BB5") // selected rows
)

// Base styles.
var (
	StyleSuccess  = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning  = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError    = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleAddress  = lipgloss.NewStyle().Foreground(ColorAddress)
	StyleValue    = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	StyleMeta     = lipgloss.NewStyle().Foreground(ColorMeta)
	StyleContract = lipgloss.NewStyle().Foreground(ColorContract).Bold(true)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleSelected = lipgloss.NewStyle().
			Background(ColorHighlight).
			Foreground(lipgloss.Color("#000000")).
			Bold(true)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorContract).
			Bold(true).
			MarginBottom(1)

	StylePrompt = lipgloss.NewStyle().Foreground(ColorContract).Bold(true)
)

// Banner returns the shell greeting.
func Banner(version, provider string) string {
	title := StyleContract.Render("ucwallet") + StyleMeta.Render(" v"+version)
	sub := StyleMeta.Render("Ulord side-chain wallet  ·  " + provider)
	hint := StyleMeta.Render(`type "help" for commands, Ctrl-D to leave`)
	return title + "\n" + sub + "\n" + hint + "\n"
}

// Prompt is the shell prompt.
func Prompt() string { return StylePrompt.Render("ucwallet>") + " " }

// Success formats a success message.
func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }

// Warn formats a warning message.
func Warn(msg string) string { return StyleWarning.Render("⚠ " + msg) }

// Err formats an error message.
func Err(msg string) string { return StyleError.Render("✗ " + msg) }

// Info formats a neutral message.
func Info(msg string) string { return StyleAddress.Render("ℹ " + msg) }

// Hint formats a suggestion for the next step.
func Hint(msg string) string { return StyleMeta.Render("💡 " + msg) }

// Addr formats an address or hash.
func Addr(a string) string { return StyleAddress.Render(a) }

// Val formats a value.
func Val(v string) string { return StyleValue.Render(v) }

// Meta formats metadata text.
func Meta(m string) string { return StyleMeta.Render(m) }

// ContractName formats a contract name.
func ContractName(c string) string { return StyleContract.Render(c) }

// Pending formats the refusal shown while a transaction awaits its receipt.
func Pending(hash string) string {
	return Warn(fmt.Sprintf("last transaction %s is not confirmed yet, try again later", TruncateAddr(hash)))
}

// TruncateAddr shortens an address for display: 0x1234…5678.
func TruncateAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
