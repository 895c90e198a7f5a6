package errors

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Transport Errors (PA100-PA119)
	// ============================================

	"PA101": {
		Category:   CategoryTransport,
		Message:    "Action request failed",
		Suggestion: "Check that the server is reachable and the base path is correct",
	},
	"PA102": {
		Category: CategoryResponse,
		Message:  "Action endpoint returned a non-OK status",
	},
	"PA103": {
		Category: CategoryResponse,
		Message:  "Action response is not a valid envelope",
	},
	"PA104": {
		Category: CategoryTransport,
		Message:  "Could not build action request",
	},
	"PA110": {
		Category: CategoryTransport,
		Message:  "Data reload failed",
	},
	"PA111": {
		Category: CategoryResponse,
		Message:  "Data reload returned a non-OK status",
	},

	// ============================================
	// Dispatch Errors (PA200-PA219)
	// ============================================

	"PA201": {
		Category:   CategoryDispatch,
		Message:    "No action matched the request",
		Suggestion: "POST to <path>?action.<name>[=<key>] with a registered action name",
	},
	"PA202": {
		Category: CategoryDispatch,
		Message:  "Could not parse submitted form",
	},
	"PA203": {
		Category: CategoryDispatch,
		Message:  "Server action failed",
	},
	"PA204": {
		Category: CategoryDispatch,
		Message:  "Page data could not be loaded",
	},
	"PA205": {
		Category: CategoryDispatch,
		Message:  "Unknown action",
	},

	// ============================================
	// Config Errors (PA300-PA319)
	// ============================================

	"PA301": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Create pageactions.json or pass --config",
	},
	"PA302": {
		Category: CategoryConfig,
		Message:  "Configuration file could not be parsed",
	},
	"PA303": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},

	// ============================================
	// CLI Errors (PA400-PA419)
	// ============================================

	"PA401": {
		Category:   CategoryCLI,
		Message:    "Invalid field argument",
		Suggestion: "Fields are passed as --field name=value",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
