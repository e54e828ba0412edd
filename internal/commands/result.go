package commands

// Result is the envelope every handler and the router return. Success is
// authoritative; Error may be empty on some failure paths.
type Result struct {
	Success  bool           `json:"success"`
	Data     any            `json:"data"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata"`
}

func OK(data any, metadata map[string]any) Result {
	return Result{Success: true, Data: data, Metadata: ensureMetadata(metadata)}
}

func Fail(data any, err string, metadata map[string]any) Result {
	return Result{Success: false, Data: data, Error: err, Metadata: ensureMetadata(metadata)}
}

// Text returns Data when it is a string.
func (r Result) Text() string {
	if text, ok := r.Data.(string); ok {
		return text
	}
	return ""
}

func ensureMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return map[string]any{}
	}
	return metadata
}
