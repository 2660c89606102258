package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://github.com/vango-dev/extstore/blob/main/docs/errors.md#"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (E001-E019)
	// ============================================

	"E001": {
		Category: CategoryRuntime,
		Message:  "Store accessed outside its provider",
		Detail:   "store.Use was called by a component that has no store.Provider for this context above it in the tree.",
		DocURL:   docBase + "e001",
	},
	"E002": {
		Category: CategoryRuntime,
		Message:  "Selector panicked",
		Detail:   "A selector passed to store.Use or store.Select panicked while projecting the record.",
		DocURL:   docBase + "e002",
	},
	"E003": {
		Category: CategoryRuntime,
		Message:  "Hook order changed",
		Detail:   "Hooks must be called unconditionally and in the same order on every render of a component.",
		DocURL:   docBase + "e003",
	},
	"E004": {
		Category: CategoryRuntime,
		Message:  "Component render failed",
		Detail:   "A component's render function panicked.",
		DocURL:   docBase + "e004",
	},
	"E005": {
		Category: CategoryRuntime,
		Message:  "Handler not found",
		Detail:   "The event target does not match any handler registered by the last render.",
		DocURL:   docBase + "e005",
	},
	"E006": {
		Category: CategoryRuntime,
		Message:  "Handler panicked",
		Detail:   "An event handler panicked. The store keeps the last completed update.",
		DocURL:   docBase + "e006",
	},
	"E007": {
		Category: CategoryRuntime,
		Message:  "Render loop detected",
		Detail:   "Components kept marking each other dirty while flushing. A render is probably writing to a store it reads.",
		DocURL:   docBase + "e007",
	},

	// ============================================
	// Patch Errors (E020-E039)
	// ============================================

	"E020": {
		Category: CategoryPatch,
		Message:  "Invalid patch",
		Detail:   "The partial update is not a JSON object, or a value does not match the field type.",
		DocURL:   docBase + "e020",
	},
	"E021": {
		Category: CategoryPatch,
		Message:  "Unknown field in patch",
		Detail:   "The partial update names a field the record does not have.",
		DocURL:   docBase + "e021",
	},

	// ============================================
	// Protocol Errors (E060-E079)
	// ============================================

	"E060": {
		Category: CategoryProtocol,
		Message:  "Invalid message",
		Detail:   "The WebSocket message could not be decoded.",
		DocURL:   docBase + "e060",
	},
	"E061": {
		Category: CategoryProtocol,
		Message:  "Event queue full",
		Detail:   "The session received events faster than it could process them.",
		DocURL:   docBase + "e061",
	},
	"E062": {
		Category: CategoryProtocol,
		Message:  "Session limit reached",
		Detail:   "The server is already hosting the configured maximum number of sessions.",
		DocURL:   docBase + "e062",
	},

	// ============================================
	// Config Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "The configuration file could not be parsed.",
		DocURL:   docBase + "e120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No extstore.yaml, extstore.yml or extstore.json was found.",
		DocURL:   docBase + "e121",
	},
	"E122": {
		Category: CategoryConfig,
		Message:  "Invalid port number",
		Detail:   "The configured port must be between 1 and 65535.",
		DocURL:   docBase + "e122",
	},
	"E123": {
		Category: CategoryConfig,
		Message:  "Invalid log setting",
		Detail:   "Log level must be debug, info, warn or error; format must be text or json.",
		DocURL:   docBase + "e123",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Invalid demo script",
		Detail:   "Each demo step must look like target=value, e.g. first=Ada or count=+1.",
		DocURL:   docBase + "e140",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
