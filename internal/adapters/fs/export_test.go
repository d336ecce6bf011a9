package fs

// SetBeforeRename replaces the pre-rename hook and returns a restore function.
func SetBeforeRename(fn func(string) error) func() {
	prev := beforeRename
	beforeRename = fn
	return func() { beforeRename = prev }
}
