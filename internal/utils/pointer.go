package utils

// IntPtr returns a pointer to the given int value.
func IntPtr(v int) *int { return &v }
