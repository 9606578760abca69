package theme

import (
	"os"
	"strings"
)

// SymbolSet holds all UI symbols, allowing runtime switching between
// Unicode and ASCII fallback sets.
type SymbolSet struct {
	Success string
	Error   string
	Warning string
	Spinner string
	Bullet  string
	On      string
	Off     string
}

var unicodeSymbols = SymbolSet{
	Success: "✓", // ✓
	Error:   "✗", // ✗
	Warning: "⚠", // ⚠
	Spinner: "⏳", // ⏳
	Bullet:  "•", // •
	On:      "●", // ●
	Off:     "○", // ○
}

var asciiSymbols = SymbolSet{
	Success: "[OK]",
	Error:   "[ERR]",
	Warning: "[!]",
	Spinner: "[...]",
	Bullet:  "*",
	On:      "[x]",
	Off:     "[ ]",
}

// DetectUnicodeSupport checks whether the terminal likely supports Unicode.
// CREATORCHAT_ASCII_SYMBOLS=1 forces ASCII.
func DetectUnicodeSupport() bool {
	if v := os.Getenv("CREATORCHAT_ASCII_SYMBOLS"); v == "1" || strings.EqualFold(v, "true") {
		return false
	}
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		val := strings.ToLower(os.Getenv(key))
		if strings.Contains(val, "utf-8") || strings.Contains(val, "utf8") {
			return true
		}
	}
	return true
}

// InitSymbols sets the package-level Symbol* variables based on terminal
// capabilities. Called by init(); tests may call it again after changing
// the environment.
func InitSymbols() {
	set := unicodeSymbols
	if !DetectUnicodeSupport() {
		set = asciiSymbols
	}

	SymbolSuccess = set.Success
	SymbolError = set.Error
	SymbolWarning = set.Warning
	SymbolSpinner = set.Spinner
	SymbolBullet = set.Bullet
	SymbolOn = set.On
	SymbolOff = set.Off
}

func init() {
	InitSymbols()
}
