package tui

// Command enumerates every named UI action. Key presses resolve to a
// Command and route through the dispatch table, so an unmapped action is a
// compile-time hole rather than a silent no-op.
type Command int

const (
	CommandNone Command = iota
	CommandQuit
	CommandSwitchScreen
	CommandSync
	CommandPost
	CommandCategorize
	CommandApplyRules
	CommandSkipCategory
	CommandSimilar
	CommandToggleVisibility
	CommandSearch
	CommandClearPosted
	CommandCursorUp
	CommandCursorDown
)

// commandForKey maps key presses on the main screens to commands.
func commandForKey(key string) Command {
	switch key {
	case "q", "ctrl+c":
		return CommandQuit
	case "tab":
		return CommandSwitchScreen
	case "s":
		return CommandSync
	case "p":
		return CommandPost
	case "enter", "c":
		return CommandCategorize
	case "r":
		return CommandApplyRules
	case "x":
		return CommandSkipCategory
	case "a":
		return CommandSimilar
	case "v":
		return CommandToggleVisibility
	case "/":
		return CommandSearch
	case "P":
		return CommandClearPosted
	case "up", "k":
		return CommandCursorUp
	case "down", "j":
		return CommandCursorDown
	}
	return CommandNone
}
